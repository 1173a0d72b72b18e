package opl3

import (
	"errors"
	"testing"
)

type regWrite struct {
	addr uint16
	data uint8
}

type fakeChip struct {
	writes []regWrite
	regs   map[uint16]uint8
}

func newFakeChip() *fakeChip {
	return &fakeChip{regs: make(map[uint16]uint8)}
}

func (c *fakeChip) WriteReg(addr uint16, data uint8) {
	c.writes = append(c.writes, regWrite{addr, data})
	c.regs[addr] = data
}

func (c *fakeChip) keyedOn(ch int) bool {
	return c.regs[chanReg(regKeyBlock, ch)]&keyOnBit != 0
}

func (c *fakeChip) keyedChannels() []int {
	var out []int
	for ch := 0; ch < Channels; ch++ {
		if c.keyedOn(ch) {
			out = append(out, ch)
		}
	}
	return out
}

func newTestDriver(t *testing.T) (*Driver, *fakeChip) {
	t.Helper()
	bank, err := LookupBank(0)
	if err != nil {
		t.Fatalf("lookup bank: %v", err)
	}
	model, err := LookupVolumeModel(volGeneric)
	if err != nil {
		t.Fatalf("lookup volume model: %v", err)
	}
	chip := newFakeChip()
	d := NewDriver(chip, bank, model)
	d.Reset()
	return d, chip
}

func TestRegisterAddressing(t *testing.T) {
	cases := []struct {
		got, want uint16
	}{
		{chanReg(regKeyBlock, 0), 0x0b0},
		{chanReg(regKeyBlock, 8), 0x0b8},
		{chanReg(regKeyBlock, 9), 0x1b0},
		{chanReg(regFnumLow, 17), 0x1a8},
		{opReg(regKSLTL, 0, false), 0x040},
		{opReg(regKSLTL, 0, true), 0x043},
		{opReg(regAMVib, 3, false), 0x028},
		{opReg(regAMVib, 8, true), 0x035},
		{opReg(regWave, 12, true), 0x1eb},
	}
	for i, tc := range cases {
		if tc.got != tc.want {
			t.Fatalf("case %d: addr = %#x, want %#x", i, tc.got, tc.want)
		}
	}
}

func TestFnumBlock(t *testing.T) {
	fnum, block := fnumBlock(440)
	if block != 4 || fnum < 578 || fnum > 582 {
		t.Fatalf("A4 = fnum %d block %d, want ~580 block 4", fnum, block)
	}
	for note := 0; note < 128; note++ {
		fnum, block := fnumBlock(noteHz(float64(note)))
		if fnum > 1023 || block > 7 {
			t.Fatalf("note %d: fnum %d block %d out of range", note, fnum, block)
		}
	}
}

func TestResetSilencesAllChannels(t *testing.T) {
	_, chip := newTestDriver(t)
	for ch := 0; ch < Channels; ch++ {
		if chip.keyedOn(ch) {
			t.Fatalf("channel %d keyed on after reset", ch)
		}
		if got := chip.regs[opReg(regKSLTL, ch, true)]; got != maxAtten {
			t.Fatalf("channel %d carrier TL = %#x, want %#x", ch, got, maxAtten)
		}
		if got := chip.regs[chanReg(regFBConn, ch)]; got != outLeft|outRight {
			t.Fatalf("channel %d output bits = %#x", ch, got)
		}
	}
}

func TestNoteOnOff(t *testing.T) {
	d, chip := newTestDriver(t)
	d.NoteOn(0, 69, 127)
	keyed := chip.keyedChannels()
	if len(keyed) != 1 {
		t.Fatalf("keyed channels = %v, want one", keyed)
	}
	ch := keyed[0]
	if got := chip.regs[chanReg(regKeyBlock, ch)] >> 2 & 0x07; got != 4 {
		t.Fatalf("block = %d, want 4", got)
	}
	if d.ActiveVoices() != 1 {
		t.Fatalf("active voices = %d", d.ActiveVoices())
	}
	d.NoteOff(0, 69)
	if chip.keyedOn(ch) {
		t.Fatalf("channel %d still keyed on", ch)
	}
	if d.ActiveVoices() != 0 {
		t.Fatalf("active voices = %d after note off", d.ActiveVoices())
	}
}

func TestVelocityZeroIsNoteOff(t *testing.T) {
	d, chip := newTestDriver(t)
	d.NoteOn(2, 60, 90)
	d.NoteOn(2, 60, 0)
	if len(chip.keyedChannels()) != 0 || d.ActiveVoices() != 0 {
		t.Fatalf("velocity 0 did not release the note")
	}
}

func TestVoiceStealingTakesOldest(t *testing.T) {
	d, chip := newTestDriver(t)
	for i := 0; i < Channels; i++ {
		d.NoteOn(0, uint8(40+i), 100)
	}
	if n := len(chip.keyedChannels()); n != Channels {
		t.Fatalf("keyed = %d, want %d", n, Channels)
	}
	first := d.find(0, 40)
	d.NoteOn(0, 100, 100)
	if d.find(0, 40) >= 0 {
		t.Fatalf("oldest note not stolen")
	}
	if got := d.find(0, 100); got != first {
		t.Fatalf("new note on channel %d, want stolen channel %d", got, first)
	}
	if d.ActiveVoices() != Channels {
		t.Fatalf("active voices = %d", d.ActiveVoices())
	}
}

func TestSustainPedalHoldsNotes(t *testing.T) {
	d, chip := newTestDriver(t)
	d.ControlChange(1, ccSustain, 127)
	d.NoteOn(1, 64, 100)
	d.NoteOff(1, 64)
	if len(chip.keyedChannels()) != 1 {
		t.Fatalf("note released while pedal down")
	}
	d.ControlChange(1, ccSustain, 0)
	if len(chip.keyedChannels()) != 0 {
		t.Fatalf("note held after pedal up")
	}
}

func TestResetControllersReleasesHeldNotes(t *testing.T) {
	d, chip := newTestDriver(t)
	d.ControlChange(0, ccSustain, 127)
	d.NoteOn(0, 60, 100)
	d.NoteOn(0, 67, 100)
	d.NoteOff(0, 60)
	d.ControlChange(0, ccResetControls, 0)
	if d.find(0, 60) >= 0 {
		t.Fatalf("held note survived controller reset")
	}
	if keyed := chip.keyedChannels(); len(keyed) != 1 || keyed[0] != d.find(0, 67) {
		t.Fatalf("keyed channels = %v, want only the sounding note", keyed)
	}
	d.AllNotesOff()
	if keyed := chip.keyedChannels(); len(keyed) != 0 {
		t.Fatalf("channels %v still keyed on", keyed)
	}
}

func TestAllNotesOffControllerRespectsSustain(t *testing.T) {
	d, chip := newTestDriver(t)
	d.NoteOn(2, 60, 100)
	d.ControlChange(2, ccSustain, 127)
	d.ControlChange(2, ccAllNotesOff, 0)
	if len(chip.keyedChannels()) != 1 || d.ActiveVoices() != 1 {
		t.Fatalf("note released while pedal down")
	}
	d.ControlChange(2, ccSustain, 0)
	if len(chip.keyedChannels()) != 0 || d.ActiveVoices() != 0 {
		t.Fatalf("note held after pedal up")
	}

	d.NoteOn(3, 62, 100)
	d.ControlChange(3, ccAllNotesOff, 0)
	if len(chip.keyedChannels()) != 0 {
		t.Fatalf("note sounding after all notes off")
	}
}

func TestAllocateReusesLongestReleased(t *testing.T) {
	d, _ := newTestDriver(t)
	d.NoteOn(0, 60, 100)
	d.NoteOn(0, 62, 100)
	a, b := d.find(0, 60), d.find(0, 62)
	for v := range d.voices {
		if v != a && v != b {
			d.voices[v].stamp = d.clock + 100
		}
	}
	d.NoteOff(0, 62)
	d.NoteOff(0, 60)
	d.NoteOn(0, 64, 100)
	if got := d.find(0, 64); got != b {
		t.Fatalf("new note on channel %d, want %d released first", got, b)
	}
}

func TestPercussionUsesFixedNote(t *testing.T) {
	d, chip := newTestDriver(t)
	d.NoteOn(percussionChannel, 36, 127)
	v := d.find(percussionChannel, 36)
	if v < 0 {
		t.Fatalf("drum voice not found")
	}
	if d.voices[v].patch.Name != "Kick" {
		t.Fatalf("patch = %q, want Kick", d.voices[v].patch.Name)
	}
	fnum, block := fnumBlock(noteHz(float64(drumKick.FixedNote)))
	if got := chip.regs[chanReg(regFnumLow, v)]; got != uint8(fnum) {
		t.Fatalf("fnum low = %#x, want %#x", got, uint8(fnum))
	}
	if got := chip.regs[chanReg(regKeyBlock, v)] >> 2 & 0x07; got != block {
		t.Fatalf("block = %d, want %d", got, block)
	}
}

func TestPanAndVolumeControllers(t *testing.T) {
	d, chip := newTestDriver(t)
	d.NoteOn(3, 60, 127)
	v := d.find(3, 60)
	d.ControlChange(3, ccPan, 0)
	if got := chip.regs[chanReg(regFBConn, v)] & (outLeft | outRight); got != outLeft {
		t.Fatalf("hard left output bits = %#x", got)
	}
	d.ControlChange(3, ccPan, 127)
	if got := chip.regs[chanReg(regFBConn, v)] & (outLeft | outRight); got != outRight {
		t.Fatalf("hard right output bits = %#x", got)
	}
	d.ControlChange(3, ccVolume, 127)
	loud := chip.regs[opReg(regKSLTL, v, true)] & tlMask
	d.ControlChange(3, ccVolume, 10)
	quiet := chip.regs[opReg(regKSLTL, v, true)] & tlMask
	if quiet <= loud {
		t.Fatalf("lower volume did not raise attenuation: loud %d quiet %d", loud, quiet)
	}
}

func TestPitchBendRange(t *testing.T) {
	d, chip := newTestDriver(t)
	d.NoteOn(0, 60, 100)
	v := d.find(0, 60)
	d.PitchBend(0, 8191)
	bent := chip.regs[chanReg(regFnumLow, v)]
	want, _ := fnumBlock(noteHz(60 + 2*8191.0/8192))
	if bent != uint8(want) {
		t.Fatalf("bent fnum low = %#x, want %#x", bent, uint8(want))
	}
	if !chip.keyedOn(v) {
		t.Fatalf("pitch bend keyed the voice off")
	}
	// RPN 0 data entry sets the range in semitones.
	d.ControlChange(0, ccRPNMSB, 0)
	d.ControlChange(0, ccRPNLSB, 0)
	d.ControlChange(0, ccDataEntry, 12)
	if got := d.chans[0].bendRange; got != 12 {
		t.Fatalf("bend range = %v, want 12", got)
	}
}

func TestShadowSkipsRedundantWrites(t *testing.T) {
	d, chip := newTestDriver(t)
	d.NoteOn(0, 60, 100)
	n := len(chip.writes)
	d.ControlChange(0, ccVolume, 100) // unchanged from default
	if len(chip.writes) != n {
		t.Fatalf("unchanged volume produced %d writes", len(chip.writes)-n)
	}
}

func TestAllNotesOff(t *testing.T) {
	d, chip := newTestDriver(t)
	for i := 0; i < 5; i++ {
		d.NoteOn(uint8(i), 60, 100)
	}
	d.AllNotesOff()
	if len(chip.keyedChannels()) != 0 || d.ActiveVoices() != 0 {
		t.Fatalf("voices still sounding after AllNotesOff")
	}
}

func TestCatalogLookups(t *testing.T) {
	if _, err := LookupBank(len(Banks())); !errors.Is(err, ErrUnknownBank) {
		t.Fatalf("err = %v, want ErrUnknownBank", err)
	}
	if _, err := LookupVolumeModel(-1); !errors.Is(err, ErrUnknownVolumeModel) {
		t.Fatalf("err = %v, want ErrUnknownVolumeModel", err)
	}
	models := VolumeModels()
	if len(models) != 12 || models[0].Name != "AUTO" || models[11].Name != "HMI_OLD" {
		t.Fatalf("unexpected volume model catalog")
	}
	for i, b := range Banks() {
		if b.Index != i || b.Title == "" {
			t.Fatalf("bank %d: index %d title %q", i, b.Index, b.Title)
		}
	}
}

func TestVolumeModelsExtremes(t *testing.T) {
	for _, m := range VolumeModels() {
		if got := m.Attenuation(127, 127, 127); got != 0 {
			t.Fatalf("%s: full scale attenuation = %d, want 0", m.Name, got)
		}
		if got := m.Attenuation(0, 127, 127); got != maxAtten {
			t.Fatalf("%s: velocity 0 attenuation = %d, want %d", m.Name, got, maxAtten)
		}
		if m.Attenuation(64, 127, 127) < m.Attenuation(127, 127, 127) {
			t.Fatalf("%s: softer note is louder", m.Name)
		}
	}
}

func TestAutoResolvesToBankModel(t *testing.T) {
	auto, _ := LookupVolumeModel(volAuto)
	for _, b := range Banks() {
		if got := auto.Resolve(b); got.Index != b.VolumeModel {
			t.Fatalf("bank %d: AUTO resolved to %d, want %d", b.Index, got.Index, b.VolumeModel)
		}
	}
	dmx, _ := LookupVolumeModel(volDMX)
	if got := dmx.Resolve(Banks()[0]); got.Index != volDMX {
		t.Fatalf("explicit model replaced by bank default")
	}
}
