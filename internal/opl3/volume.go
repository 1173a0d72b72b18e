package opl3

import (
	"math"

	"github.com/pkg/errors"
)

var ErrUnknownVolumeModel = errors.New("opl3: unknown volume model")

const (
	volAuto = iota
	volGeneric
	volNativeOPL3
	volDMX
	volApogee
	vol9X
	volDMXFixed
	volApogeeFixed
	volAIL
	vol9XGenericFM
	volHMI
	volHMIOld
)

// VolumeModel maps MIDI velocity, channel volume and expression to extra
// attenuation in total-level steps (0.75 dB each).
type VolumeModel struct {
	Index       int
	Name        string
	Description string
	curve       func(vel, vol, expr uint8) uint8
	// carrierOnly leaves the modulator of additive patches unscaled, the
	// behavior of the historic DMX, Apogee and old HMI drivers.
	carrierOnly bool
}

// Title is the short form used in listings and GD3 notes.
func (m VolumeModel) Title() string {
	return m.Name
}

// Attenuation returns the extra TL steps for the given controller values.
func (m VolumeModel) Attenuation(vel, vol, expr uint8) uint8 {
	if m.curve == nil {
		return genericCurve(vel, vol, expr)
	}
	return m.curve(vel, vol, expr)
}

func unit(v uint8) float64 {
	return float64(v&0x7f) / 127
}

func dbToTL(amp float64) uint8 {
	if amp <= 0 {
		return maxAtten
	}
	tl := -20 * math.Log10(amp) / 0.75
	if tl >= maxAtten {
		return maxAtten
	}
	if tl < 0 {
		return 0
	}
	return uint8(math.Round(tl))
}

func linearTL(amp float64) uint8 {
	return uint8(math.Round(maxAtten * (1 - amp)))
}

func genericCurve(vel, vol, expr uint8) uint8 {
	return dbToTL(unit(vel) * unit(vol) * unit(expr))
}

func nativeCurve(vel, vol, expr uint8) uint8 {
	return linearTL(unit(vel) * unit(vol) * unit(expr))
}

// dmxCurve squares the channel volume, linear on velocity.
func dmxCurve(vel, vol, expr uint8) uint8 {
	v := unit(vol) * unit(expr)
	return dbToTL(unit(vel) * v * v)
}

// apogeeCurve is linear in TL on velocity, squared on channel volume.
func apogeeCurve(vel, vol, expr uint8) uint8 {
	v := unit(vol) * unit(expr)
	return linearTL(unit(vel) * v * v)
}

// curve9X quantizes the generic curve to the 32-step driver table.
func curve9X(vel, vol, expr uint8) uint8 {
	tl := genericCurve(vel, vol, expr)
	if tl == maxAtten {
		return tl
	}
	return tl &^ 1
}

// ailCurve softens velocity with a square root.
func ailCurve(vel, vol, expr uint8) uint8 {
	return dbToTL(math.Sqrt(unit(vel)) * unit(vol) * unit(expr))
}

// hmiCurve applies velocity and volume in the log domain separately.
func hmiCurve(vel, vol, expr uint8) uint8 {
	tl := int(dbToTL(unit(vel))) + int(linearTL(unit(vol)*unit(expr)))
	if tl > maxAtten {
		return maxAtten
	}
	return uint8(tl)
}

var volumeModels = []VolumeModel{
	{volAuto, "AUTO", "Automatically chosen by the bank used", nil, false},
	{volGeneric, "Generic", "Linearized scaling model, most standard", genericCurve, false},
	{volNativeOPL3, "NativeOPL3", "Native OPL3's logarithmic volume scale", nativeCurve, false},
	{volDMX, "DMX", "Logarithmic volume scale using volume map table. Used in DMX", dmxCurve, true},
	{volApogee, "APOGEE", "Logarithmic volume scale, used in Apogee Sound System", apogeeCurve, true},
	{vol9X, "9X", "Approximated and shorted volume map table (SB16 driver). Similar to general, but has less granularity", curve9X, false},
	{volDMXFixed, "DMX_Fixed", "DMX model with a fixed bug of AM voices", dmxCurve, false},
	{volApogeeFixed, "APOGEE_Fixed", "Apogee model with a fixed bug of AM voices", apogeeCurve, false},
	{volAIL, "AIL", "Audio Interface Library volume scaling model", ailCurve, false},
	{vol9XGenericFM, "9X_GENERIC_FM", "Approximated and shorted volume map table (Generic FM driver). Similar to general, but has less granularity", curve9X, false},
	{volHMI, "HMI", "HMI Sound Operating System volume scaling model", hmiCurve, false},
	{volHMIOld, "HMI_OLD", "HMI Sound Operating System volume scaling model, older variant with bugs", hmiCurve, true},
}

// VolumeModels returns the model catalog ordered by index.
func VolumeModels() []VolumeModel {
	out := make([]VolumeModel, len(volumeModels))
	copy(out, volumeModels)
	return out
}

// LookupVolumeModel returns the model at index. AUTO is returned as is; use
// Resolve to pick the bank's model.
func LookupVolumeModel(index int) (VolumeModel, error) {
	if index < 0 || index >= len(volumeModels) {
		return VolumeModel{}, errors.Wrapf(ErrUnknownVolumeModel, "index %d (have 0-%d)", index, len(volumeModels)-1)
	}
	return volumeModels[index], nil
}

// Resolve replaces AUTO with the bank's preferred model.
func (m VolumeModel) Resolve(b *Bank) VolumeModel {
	if m.Index != volAuto || b == nil {
		return m
	}
	if b.VolumeModel <= volAuto || b.VolumeModel >= len(volumeModels) {
		return volumeModels[volGeneric]
	}
	return volumeModels[b.VolumeModel]
}
