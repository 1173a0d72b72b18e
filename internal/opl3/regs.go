package opl3

import "math"

// Channels is the number of two-operator channels in OPL3 mode.
const Channels = 18

// ChipRate is the YMF262 sample clock for a 14.31818 MHz master clock.
const ChipRate = 14318180.0 / 288.0

const (
	regAMVib    uint16 = 0x20
	regKSLTL    uint16 = 0x40
	regARDR     uint16 = 0x60
	regSLRR     uint16 = 0x80
	regFnumLow  uint16 = 0xa0
	regKeyBlock uint16 = 0xb0
	regFBConn   uint16 = 0xc0
	regWave     uint16 = 0xe0
)

const (
	keyOnBit = 0x20
	outLeft  = 0x10
	outRight = 0x20
	maxAtten = 0x3f
	tlMask   = 0x3f
	kslMask  = 0xc0
)

// modulator slot offsets within one register bank; the carrier sits 3 above.
var slotOffsets = [9]uint16{0x00, 0x01, 0x02, 0x08, 0x09, 0x0a, 0x10, 0x11, 0x12}

func bankBase(ch int) uint16 {
	if ch >= 9 {
		return 0x100
	}
	return 0
}

func chanReg(reg uint16, ch int) uint16 {
	return bankBase(ch) | (reg + uint16(ch%9))
}

func opReg(reg uint16, ch int, carrier bool) uint16 {
	off := slotOffsets[ch%9]
	if carrier {
		off += 3
	}
	return bankBase(ch) | (reg + off)
}

func noteHz(note float64) float64 {
	return 440 * math.Pow(2, (note-69)/12)
}

// fnumBlock picks the smallest block whose F-number fits 10 bits, which
// keeps the most frequency resolution.
func fnumBlock(hz float64) (uint16, uint8) {
	if hz <= 0 {
		return 0, 0
	}
	for block := 0; block < 8; block++ {
		f := hz * float64(uint32(1)<<(20-block)) / ChipRate
		if f < 1023.5 {
			return uint16(math.Round(f)), uint8(block)
		}
	}
	return 1023, 7
}
