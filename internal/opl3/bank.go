package opl3

import (
	"github.com/pkg/errors"
)

var ErrUnknownBank = errors.New("opl3: unknown bank")

// Bank is an instrument set: one patch per General MIDI program and a
// percussion map keyed by note for MIDI channel 10.
type Bank struct {
	Index       int
	Title       string
	VolumeModel int // model used when AUTO is selected
	melodic     [128]Patch
	percussion  map[uint8]Patch
	fallback    Patch
}

// Melodic returns the patch for a GM program.
func (b *Bank) Melodic(program uint8) Patch {
	return b.melodic[program&0x7f]
}

// Percussion returns the drum patch for key, falling back to a short noise
// hit for keys the bank does not define.
func (b *Bank) Percussion(key uint8) Patch {
	if p, ok := b.percussion[key]; ok {
		return p
	}
	p := b.fallback
	p.FixedNote = key
	return p
}

// One patch per GM family of eight programs.
var familyPatches = [16]Patch{
	{Name: "Piano", Mod: Operator{0x01, 0x4f, 0xf1, 0x53, 0}, Car: Operator{0x01, 0x00, 0xd2, 0x74, 0}, FBConn: 0x06},
	{Name: "Chromatic Percussion", Mod: Operator{0x07, 0x1c, 0xf6, 0x56, 0}, Car: Operator{0x01, 0x00, 0xf5, 0xa6, 0}, FBConn: 0x04},
	{Name: "Organ", Mod: Operator{0x22, 0x54, 0xf0, 0x04, 0}, Car: Operator{0x21, 0x00, 0xf0, 0x05, 0}, FBConn: 0x09},
	{Name: "Guitar", Mod: Operator{0x03, 0x8d, 0xf2, 0x86, 1}, Car: Operator{0x01, 0x00, 0xf2, 0x86, 0}, FBConn: 0x0a},
	{Name: "Bass", Mod: Operator{0x00, 0x0e, 0xf6, 0x64, 0}, Car: Operator{0x01, 0x00, 0xf4, 0x86, 0}, FBConn: 0x0a, NoteOffset: -12},
	{Name: "Strings", Mod: Operator{0x21, 0x1e, 0x71, 0x13, 0}, Car: Operator{0x21, 0x00, 0x61, 0x14, 0}, FBConn: 0x0e},
	{Name: "Ensemble", Mod: Operator{0x61, 0x12, 0x62, 0x27, 0}, Car: Operator{0x21, 0x00, 0x52, 0x17, 0}, FBConn: 0x0c},
	{Name: "Brass", Mod: Operator{0x21, 0x16, 0x71, 0x0b, 0}, Car: Operator{0x21, 0x00, 0x81, 0x0b, 0}, FBConn: 0x0c},
	{Name: "Reed", Mod: Operator{0x31, 0x1c, 0x71, 0x06, 0}, Car: Operator{0x22, 0x00, 0x72, 0x07, 0}, FBConn: 0x0a},
	{Name: "Pipe", Mod: Operator{0xe1, 0x8f, 0x75, 0x03, 0}, Car: Operator{0x21, 0x00, 0x56, 0x07, 0}, FBConn: 0x0e},
	{Name: "Synth Lead", Mod: Operator{0x22, 0x16, 0xf1, 0x07, 2}, Car: Operator{0x21, 0x00, 0xf1, 0x08, 1}, FBConn: 0x0e},
	{Name: "Synth Pad", Mod: Operator{0x61, 0x1a, 0x31, 0x15, 0}, Car: Operator{0x22, 0x00, 0x41, 0x15, 0}, FBConn: 0x0d},
	{Name: "Synth Effects", Mod: Operator{0xa3, 0x14, 0x52, 0x36, 3}, Car: Operator{0x21, 0x00, 0x31, 0x47, 0}, FBConn: 0x08},
	{Name: "Ethnic", Mod: Operator{0x05, 0x1a, 0xf3, 0x65, 0}, Car: Operator{0x01, 0x00, 0xe2, 0x45, 1}, FBConn: 0x04},
	{Name: "Percussive", Mod: Operator{0x11, 0x0b, 0xf8, 0x76, 0}, Car: Operator{0x01, 0x00, 0xf7, 0x77, 0}, FBConn: 0x06},
	{Name: "Sound Effects", Mod: Operator{0x0f, 0x00, 0xf4, 0x44, 7}, Car: Operator{0x01, 0x00, 0xf4, 0x46, 0}, FBConn: 0x0e},
}

var (
	drumKick  = Patch{Name: "Kick", Mod: Operator{0x00, 0x0d, 0xf8, 0xf6, 0}, Car: Operator{0x00, 0x00, 0xf6, 0xf6, 0}, FBConn: 0x06, FixedNote: 32}
	drumSnare = Patch{Name: "Snare", Mod: Operator{0x0c, 0x00, 0xf8, 0xb5, 0}, Car: Operator{0x00, 0x00, 0xd6, 0x4f, 0}, FBConn: 0x0e, FixedNote: 60}
	drumHat   = Patch{Name: "Hi-Hat", Mod: Operator{0x0e, 0x00, 0xfa, 0xf8, 3}, Car: Operator{0x0f, 0x04, 0xf9, 0xf8, 0}, FBConn: 0x0e, FixedNote: 84}
	drumOpen  = Patch{Name: "Open Hi-Hat", Mod: Operator{0x0e, 0x00, 0xf8, 0xf5, 3}, Car: Operator{0x0f, 0x04, 0xf6, 0xf5, 0}, FBConn: 0x0e, FixedNote: 84}
	drumTom   = Patch{Name: "Tom", Mod: Operator{0x02, 0x0b, 0xf8, 0xf5, 0}, Car: Operator{0x00, 0x00, 0xf6, 0xf6, 0}, FBConn: 0x04}
	drumCrash = Patch{Name: "Crash", Mod: Operator{0x0e, 0x00, 0xf5, 0x31, 3}, Car: Operator{0x0e, 0x00, 0xf3, 0x32, 0}, FBConn: 0x0e, FixedNote: 72}
	drumRide  = Patch{Name: "Ride", Mod: Operator{0x0e, 0x04, 0xf6, 0x43, 3}, Car: Operator{0x07, 0x02, 0xf5, 0x44, 0}, FBConn: 0x0c, FixedNote: 79}
	drumClap  = Patch{Name: "Clap", Mod: Operator{0x0f, 0x00, 0xf8, 0xa6, 0}, Car: Operator{0x02, 0x00, 0xf8, 0x86, 0}, FBConn: 0x0e, FixedNote: 64}
)

func standardPercussion() map[uint8]Patch {
	tom := func(note uint8) Patch {
		p := drumTom
		p.FixedNote = note
		return p
	}
	return map[uint8]Patch{
		35: drumKick, 36: drumKick,
		38: drumSnare, 40: drumSnare,
		39: drumClap,
		42: drumHat, 44: drumHat,
		46: drumOpen,
		41: tom(41), 43: tom(45), 45: tom(48), 47: tom(52), 48: tom(55), 50: tom(59),
		49: drumCrash, 57: drumCrash, 52: drumCrash, 55: drumCrash,
		51: drumRide, 53: drumRide, 59: drumRide,
	}
}

func newBank(index int, title string, volModel int, shape func(Patch) Patch) *Bank {
	b := &Bank{Index: index, Title: title, VolumeModel: volModel, percussion: standardPercussion(), fallback: drumHat}
	for prog := range b.melodic {
		b.melodic[prog] = shape(familyPatches[prog/8])
	}
	for key, p := range b.percussion {
		b.percussion[key] = shape(p)
	}
	b.fallback = shape(b.fallback)
	return b
}

var banks = []*Bank{
	newBank(0, "OPL3 General MIDI (built-in)", volGeneric, func(p Patch) Patch { return p }),
	newBank(1, "Soft sine set", volNativeOPL3, func(p Patch) Patch {
		p = p.withWave(0)
		p.FBConn &^= 0x0e
		p.FBConn |= 0x02
		return p
	}),
	newBank(2, "DMX-style set", volDMX, func(p Patch) Patch {
		p.Mod.AMVib &^= 0xc0
		p.Car.AMVib &^= 0xc0
		return p
	}),
}

// Banks returns the embedded bank catalog ordered by index.
func Banks() []*Bank {
	out := make([]*Bank, len(banks))
	copy(out, banks)
	return out
}

// LookupBank returns the bank at index.
func LookupBank(index int) (*Bank, error) {
	if index < 0 || index >= len(banks) {
		return nil, errors.Wrapf(ErrUnknownBank, "index %d (have 0-%d)", index, len(banks)-1)
	}
	return banks[index], nil
}
