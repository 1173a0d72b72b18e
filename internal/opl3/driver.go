package opl3

// RegisterWriter receives chip register writes; addr bit 0x100 selects the
// second register bank.
type RegisterWriter interface {
	WriteReg(addr uint16, data uint8)
}

const (
	percussionChannel = 9

	ccDataEntry     = 6
	ccVolume        = 7
	ccPan           = 10
	ccExpression    = 11
	ccSustain       = 64
	ccRPNLSB        = 100
	ccRPNMSB        = 101
	ccAllSoundOff   = 120
	ccResetControls = 121
	ccAllNotesOff   = 123
)

type voice struct {
	active    bool // keyed on or held by the sustain pedal
	held      bool // note-off arrived while sustain was down
	midiCh    uint8
	key       uint8
	vel       uint8
	patch     Patch
	stamp     uint64
	keyOnByte uint8 // last B0 value without the key-on bit
}

type channelState struct {
	program    uint8
	volume     uint8
	expression uint8
	pan        uint8
	sustain    bool
	bend       int16 // -8192..8191
	bendRange  float64
	rpnMSB     uint8
	rpnLSB     uint8
}

func defaultChannelState() channelState {
	return channelState{volume: 100, expression: 127, pan: 64, bendRange: 2, rpnMSB: 0x7f, rpnLSB: 0x7f}
}

// Driver turns MIDI channel events into YMF262 register writes. It runs the
// chip as 18 two-operator melodic channels.
type Driver struct {
	w      RegisterWriter
	bank   *Bank
	model  VolumeModel
	voices [Channels]voice
	chans  [16]channelState
	clock  uint64
	shadow [0x200]int16
}

// NewDriver binds a driver to w. AUTO volume models resolve against bank.
func NewDriver(w RegisterWriter, bank *Bank, model VolumeModel) *Driver {
	d := &Driver{w: w, bank: bank, model: model.Resolve(bank)}
	for i := range d.chans {
		d.chans[i] = defaultChannelState()
	}
	for i := range d.shadow {
		d.shadow[i] = -1
	}
	return d
}

// VolumeModel is the model in effect after AUTO resolution.
func (d *Driver) VolumeModel() VolumeModel {
	return d.model
}

func (d *Driver) write(addr uint16, data uint8) {
	if d.shadow[addr&0x1ff] == int16(data) {
		return
	}
	d.shadow[addr&0x1ff] = int16(data)
	d.w.WriteReg(addr, data)
}

// Reset silences every channel and routes all of them to both outputs.
func (d *Driver) Reset() {
	for i := range d.shadow {
		d.shadow[i] = -1
	}
	for ch := 0; ch < Channels; ch++ {
		d.write(chanReg(regKeyBlock, ch), 0)
		d.write(opReg(regKSLTL, ch, false), maxAtten)
		d.write(opReg(regKSLTL, ch, true), maxAtten)
		d.write(opReg(regSLRR, ch, false), 0xff)
		d.write(opReg(regSLRR, ch, true), 0xff)
		d.write(chanReg(regFBConn, ch), outLeft|outRight)
		d.voices[ch] = voice{}
	}
	for i := range d.chans {
		d.chans[i] = defaultChannelState()
	}
}

// ActiveVoices counts channels that are keyed on or sustained.
func (d *Driver) ActiveVoices() int {
	n := 0
	for i := range d.voices {
		if d.voices[i].active {
			n++
		}
	}
	return n
}

func (d *Driver) NoteOn(ch, key, vel uint8) {
	ch &= 0x0f
	key &= 0x7f
	if vel == 0 {
		d.NoteOff(ch, key)
		return
	}
	var patch Patch
	if ch == percussionChannel {
		patch = d.bank.Percussion(key)
	} else {
		patch = d.bank.Melodic(d.chans[ch].program)
	}

	if v := d.find(ch, key); v >= 0 {
		d.keyOff(v)
	}
	v := d.allocate()
	if d.voices[v].active {
		d.keyOff(v)
	}
	d.clock++
	d.voices[v] = voice{active: true, midiCh: ch, key: key, vel: vel & 0x7f, patch: patch, stamp: d.clock}
	d.loadPatch(v)
	d.updateVolume(v)
	d.updateFrequency(v, true)
}

func (d *Driver) NoteOff(ch, key uint8) {
	ch &= 0x0f
	v := d.find(ch, key&0x7f)
	if v < 0 {
		return
	}
	if d.chans[ch].sustain {
		d.voices[v].held = true
		return
	}
	d.keyOff(v)
}

func (d *Driver) ProgramChange(ch, program uint8) {
	d.chans[ch&0x0f].program = program & 0x7f
}

// PitchBend takes the signed 14-bit bend value.
func (d *Driver) PitchBend(ch uint8, value int16) {
	ch &= 0x0f
	d.chans[ch].bend = value
	d.eachVoice(ch, func(v int) { d.updateFrequency(v, true) })
}

func (d *Driver) ControlChange(ch, cc, value uint8) {
	ch &= 0x0f
	value &= 0x7f
	cs := &d.chans[ch]
	switch cc {
	case ccVolume:
		cs.volume = value
		d.eachVoice(ch, d.updateVolume)
	case ccExpression:
		cs.expression = value
		d.eachVoice(ch, d.updateVolume)
	case ccPan:
		cs.pan = value
		d.eachVoice(ch, d.updatePan)
	case ccSustain:
		cs.sustain = value >= 64
		if !cs.sustain {
			d.eachVoice(ch, func(v int) {
				if d.voices[v].held {
					d.keyOff(v)
				}
			})
		}
	case ccRPNMSB:
		cs.rpnMSB = value
	case ccRPNLSB:
		cs.rpnLSB = value
	case ccDataEntry:
		if cs.rpnMSB == 0 && cs.rpnLSB == 0 {
			cs.bendRange = float64(value)
		}
	case ccAllSoundOff:
		d.eachVoice(ch, d.silence)
	case ccResetControls:
		program := cs.program
		*cs = defaultChannelState()
		cs.program = program
		d.eachVoice(ch, func(v int) {
			if d.voices[v].held {
				d.keyOff(v)
				return
			}
			d.updateVolume(v)
			d.updatePan(v)
			d.updateFrequency(v, true)
		})
	case ccAllNotesOff:
		d.eachVoice(ch, func(v int) {
			if cs.sustain {
				d.voices[v].held = true
				return
			}
			d.keyOff(v)
		})
	}
}

// AllNotesOff releases every sounding voice on every channel.
func (d *Driver) AllNotesOff() {
	for v := range d.voices {
		if d.voices[v].active {
			d.keyOff(v)
		}
	}
}

func (d *Driver) eachVoice(ch uint8, fn func(v int)) {
	for v := range d.voices {
		if d.voices[v].active && d.voices[v].midiCh == ch {
			fn(v)
		}
	}
}

func (d *Driver) find(ch, key uint8) int {
	for v := range d.voices {
		vc := &d.voices[v]
		if vc.active && vc.midiCh == ch && vc.key == key {
			return v
		}
	}
	return -1
}

// allocate prefers the channel released longest ago, then steals the voice
// that started longest ago.
func (d *Driver) allocate() int {
	best, bestActive := -1, -1
	for v := range d.voices {
		vc := &d.voices[v]
		if !vc.active {
			if best < 0 || vc.stamp < d.voices[best].stamp {
				best = v
			}
			continue
		}
		if bestActive < 0 || vc.stamp < d.voices[bestActive].stamp {
			bestActive = v
		}
	}
	if best >= 0 {
		return best
	}
	return bestActive
}

func (d *Driver) keyOff(v int) {
	vc := &d.voices[v]
	vc.active = false
	vc.held = false
	d.clock++
	vc.stamp = d.clock
	d.write(chanReg(regKeyBlock, v), vc.keyOnByte)
}

func (d *Driver) silence(v int) {
	d.keyOff(v)
	d.write(opReg(regKSLTL, v, false), d.voices[v].patch.Mod.KSLTL&kslMask|maxAtten)
	d.write(opReg(regKSLTL, v, true), d.voices[v].patch.Car.KSLTL&kslMask|maxAtten)
}

func (d *Driver) loadPatch(v int) {
	p := d.voices[v].patch
	for _, op := range []struct {
		o       Operator
		carrier bool
	}{{p.Mod, false}, {p.Car, true}} {
		d.write(opReg(regAMVib, v, op.carrier), op.o.AMVib)
		d.write(opReg(regARDR, v, op.carrier), op.o.ARDR)
		d.write(opReg(regSLRR, v, op.carrier), op.o.SLRR)
		d.write(opReg(regWave, v, op.carrier), op.o.Wave&0x07)
	}
	d.updatePan(v)
}

func addLevel(o Operator, atten uint8) uint8 {
	tl := int(o.level()) + int(atten)
	if tl > maxAtten {
		tl = maxAtten
	}
	return o.KSLTL&kslMask | uint8(tl)
}

func (d *Driver) updateVolume(v int) {
	vc := &d.voices[v]
	cs := &d.chans[vc.midiCh]
	atten := d.model.Attenuation(vc.vel, cs.volume, cs.expression)
	modAtten := uint8(0)
	if vc.patch.Additive() && !d.model.carrierOnly {
		modAtten = atten
	}
	d.write(opReg(regKSLTL, v, false), addLevel(vc.patch.Mod, modAtten))
	d.write(opReg(regKSLTL, v, true), addLevel(vc.patch.Car, atten))
}

func panBits(pan uint8) uint8 {
	switch {
	case pan < 32:
		return outLeft
	case pan > 95:
		return outRight
	default:
		return outLeft | outRight
	}
}

func (d *Driver) updatePan(v int) {
	vc := &d.voices[v]
	d.write(chanReg(regFBConn, v), vc.patch.FBConn&0x0f|panBits(d.chans[vc.midiCh].pan))
}

func (d *Driver) updateFrequency(v int, keyOn bool) {
	vc := &d.voices[v]
	cs := &d.chans[vc.midiCh]
	note := float64(vc.key)
	if vc.patch.FixedNote != 0 {
		note = float64(vc.patch.FixedNote)
	}
	note += float64(vc.patch.NoteOffset)
	note += float64(cs.bend) / 8192 * cs.bendRange
	fnum, block := fnumBlock(noteHz(note))
	vc.keyOnByte = block<<2 | uint8(fnum>>8)&0x03
	d.write(chanReg(regFnumLow, v), uint8(fnum))
	b0 := vc.keyOnByte
	if keyOn {
		b0 |= keyOnBit
	}
	d.write(chanReg(regKeyBlock, v), b0)
}
