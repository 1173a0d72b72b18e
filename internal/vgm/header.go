package vgm

// Header layout for VGM 1.51 with a single YMF262.
const (
	HeaderSize = 0x80

	Magic       uint32 = 0x206d6756 // "Vgm "
	Version     uint32 = 0x00000151
	DataOffset  uint32 = 0x0000004c // relative to offDataOffset; commands start at 0x80
	YMF262Clock uint32 = 14318180

	// SampleRate is fixed by the format; every wait counts 1/44100 s.
	SampleRate = 44100
)

const (
	offMagic        = 0x00
	offEOF          = 0x04
	offVersion      = 0x08
	offGD3          = 0x14
	offTotalSamples = 0x18
	offDataOffset   = 0x34
	offYMF262Clock  = 0x5c
)

// Command opcodes.
const (
	OpWritePort0 byte = 0x5e
	OpWritePort1 byte = 0x5f
	OpWait       byte = 0x61
	OpWait735    byte = 0x62
	OpWait882    byte = 0x63
	OpEnd        byte = 0x66
)

// MaxWait is the largest sample count a single wait command can carry.
const MaxWait = 0xffff

// bootstrap puts the chip into OPL3 mode with waveform select enabled.
var bootstrap = [...]struct {
	addr uint16
	data uint8
}{
	{0x004, 96},
	{0x004, 128},
	{0x105, 0x0},
	{0x105, 0x1},
	{0x105, 0x0},
	{0x001, 32},
	{0x105, 0x1},
}
