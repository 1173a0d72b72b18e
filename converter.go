package midivgm

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"

	intgd3 "github.com/cbegin/midivgm-go/internal/gd3"
	intmidi "github.com/cbegin/midivgm-go/internal/midifile"
	intopl3 "github.com/cbegin/midivgm-go/internal/opl3"
	intvgm "github.com/cbegin/midivgm-go/internal/vgm"
)

// Metadata is the GD3 tag written at the end of every file.
type Metadata = intgd3.Info

// Song is a loaded MIDI file flattened to sample-positioned events. Callers
// can also build one in memory and pass it to RenderSong.
type Song = intmidi.Song

// Event is one channel message of a Song.
type Event = intmidi.Event

// EventKind tells which channel message an Event carries.
type EventKind = intmidi.Kind

const (
	NoteOn        = intmidi.NoteOn
	NoteOff       = intmidi.NoteOff
	ControlChange = intmidi.ControlChange
	ProgramChange = intmidi.ProgramChange
	PitchBend     = intmidi.PitchBend
)

// SampleRate is the VGM timing base.
const SampleRate = intvgm.SampleRate

type Option func(*config)

type config struct {
	bank        int
	volumeModel int
	metadata    Metadata
	endMarker   bool
	releaseTail time.Duration
	onProgress  func(position, duration uint64)
}

func defaultConfig() config {
	return config{endMarker: true, releaseTail: time.Second}
}

// WithBank selects the instrument bank by catalog index.
func WithBank(index int) Option {
	return func(cfg *config) {
		cfg.bank = index
	}
}

// WithVolumeModel selects the volume model by catalog index; 0 is AUTO.
func WithVolumeModel(index int) Option {
	return func(cfg *config) {
		cfg.volumeModel = index
	}
}

// WithMetadata sets the GD3 fields. An empty Notes field is replaced with a
// generated attribution.
func WithMetadata(md Metadata) Option {
	return func(cfg *config) {
		cfg.metadata = md
	}
}

// WithEndMarker controls the end-of-data command before the GD3 block. It is
// on by default; some older tools expect the stream to run to the tag.
func WithEndMarker(enabled bool) Option {
	return func(cfg *config) {
		cfg.endMarker = enabled
	}
}

// WithReleaseTail sets how long to keep recording after the last note-off.
func WithReleaseTail(d time.Duration) Option {
	return func(cfg *config) {
		if d >= 0 {
			cfg.releaseTail = d
		}
	}
}

// WithProgress installs a callback invoked after every MIDI event with the
// current and final positions in samples.
func WithProgress(fn func(position, duration uint64)) Option {
	return func(cfg *config) {
		cfg.onProgress = fn
	}
}

// Converter turns Standard MIDI Files into OPL3 VGM files.
type Converter struct {
	cfg   config
	bank  *intopl3.Bank
	model intopl3.VolumeModel
}

func New(opts ...Option) (*Converter, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	bank, err := intopl3.LookupBank(cfg.bank)
	if err != nil {
		return nil, err
	}
	model, err := intopl3.LookupVolumeModel(cfg.volumeModel)
	if err != nil {
		return nil, err
	}
	return &Converter{cfg: cfg, bank: bank, model: model}, nil
}

// Bank returns the selected bank entry.
func (c *Converter) Bank() CatalogEntry {
	return CatalogEntry{Index: c.bank.Index, Title: c.bank.Title}
}

// VolumeModel returns the selected volume model entry, before AUTO resolution.
func (c *Converter) VolumeModel() CatalogEntry {
	return CatalogEntry{Index: c.model.Index, Title: c.model.Title(), Description: c.model.Description}
}

// ConvertFile reads the MIDI file at path.
func (c *Converter) ConvertFile(ctx context.Context, path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open input")
	}
	defer f.Close()
	return c.Convert(ctx, path, f)
}

// Convert reads a MIDI file from r. name is recorded in the GD3 notes with
// its directories stripped. When ctx is cancelled mid-song the truncated,
// well-formed VGM is returned along with the context error.
func (c *Converter) Convert(ctx context.Context, name string, r io.Reader) ([]byte, error) {
	song, err := intmidi.Read(r, SampleRate)
	if err != nil {
		return nil, err
	}
	return c.render(ctx, name, song)
}

// CatalogEntry describes one bank or volume model.
type CatalogEntry struct {
	Index       int
	Title       string
	Description string
}

func ListBanks() []CatalogEntry {
	banks := intopl3.Banks()
	out := make([]CatalogEntry, len(banks))
	for i, b := range banks {
		out[i] = CatalogEntry{Index: b.Index, Title: b.Title}
	}
	return out
}

func ListVolumeModels() []CatalogEntry {
	models := intopl3.VolumeModels()
	out := make([]CatalogEntry, len(models))
	for i, m := range models {
		out[i] = CatalogEntry{Index: m.Index, Title: m.Title(), Description: m.Description}
	}
	return out
}
