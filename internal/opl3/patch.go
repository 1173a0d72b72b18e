package opl3

// Operator is one FM slot in raw register form.
type Operator struct {
	AMVib uint8 // AM, VIB, EGT, KSR, MULT
	KSLTL uint8 // KSL in bits 6-7, total level in bits 0-5
	ARDR  uint8
	SLRR  uint8
	Wave  uint8
}

func (o Operator) level() uint8 {
	return o.KSLTL & tlMask
}

// Patch is a two-operator instrument.
type Patch struct {
	Name       string
	Mod        Operator
	Car        Operator
	FBConn     uint8 // feedback in bits 1-3, connection in bit 0
	NoteOffset int8
	FixedNote  uint8 // percussion pitch; 0 plays the incoming key
}

// Additive reports whether both operators reach the output.
func (p Patch) Additive() bool {
	return p.FBConn&1 != 0
}

func (p Patch) withWave(wave uint8) Patch {
	p.Mod.Wave = wave
	p.Car.Wave = wave
	return p
}
