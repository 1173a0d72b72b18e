package vgm

import (
	"encoding/binary"

	"github.com/cbegin/midivgm-go/internal/gd3"
)

// Recorder is what a playback engine drives: register writes in temporal
// order, with Sleep advancing time between them.
type Recorder interface {
	WriteReg(addr uint16, data uint8)
	Sleep(samples uint32)
}

type Option func(*config)

type config struct {
	attribution gd3.Attribution
	endMarker   bool
	capacity    int
}

func defaultConfig() config {
	return config{endMarker: true, capacity: 64 << 10}
}

// WithAttribution supplies the values used to generate GD3 notes when the
// caller leaves Notes empty.
func WithAttribution(attr gd3.Attribution) Option {
	return func(cfg *config) {
		cfg.attribution = attr
	}
}

// WithEndMarker controls whether Finalize terminates the command stream with
// an explicit end-of-data command before the GD3 block.
func WithEndMarker(enabled bool) Option {
	return func(cfg *config) {
		cfg.endMarker = enabled
	}
}

// WithCapacity sets the initial buffer capacity in bytes.
func WithCapacity(n int) Option {
	return func(cfg *config) {
		if n > HeaderSize {
			cfg.capacity = n
		}
	}
}

// Writer builds a VGM stream for one YMF262. It is not safe for concurrent
// use. After Finalize every method panics.
type Writer struct {
	buf       []byte
	sleep     sleepAccumulator
	cfg       config
	finalized bool
}

var _ Recorder = (*Writer)(nil)

// NewWriter writes the header and the OPL3 bootstrap sequence.
func NewWriter(opts ...Option) *Writer {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	w := &Writer{
		buf: make([]byte, HeaderSize, cfg.capacity),
		cfg: cfg,
	}
	w.put32(offMagic, Magic)
	w.put32(offVersion, Version)
	w.put32(offDataOffset, DataOffset)
	w.put32(offYMF262Clock, YMF262Clock)

	for _, b := range bootstrap {
		w.WriteReg(b.addr, b.data)
	}
	return w
}

func (w *Writer) put32(off int, v uint32) {
	binary.LittleEndian.PutUint32(w.buf[off:], v)
}

func (w *Writer) mustBuild(op string) {
	if w.finalized {
		panic("vgm: " + op + " after Finalize")
	}
}

// WriteReg emits a register write. addr bit 0x100 selects port 1. Any pending
// sleep is flushed first so the write lands at its point in time.
func (w *Writer) WriteReg(addr uint16, data uint8) {
	w.mustBuild("WriteReg")
	w.buf = w.sleep.flush(w.buf)
	op := OpWritePort0
	if addr&0x100 != 0 {
		op = OpWritePort1
	}
	w.buf = append(w.buf, op, byte(addr), data)
}

// Sleep advances time by n samples at SampleRate.
func (w *Writer) Sleep(samples uint32) {
	w.mustBuild("Sleep")
	w.sleep.accumulate(samples)
}

// TotalSamples is the sum of every Sleep so far.
func (w *Writer) TotalSamples() uint64 {
	return w.sleep.total
}

// Len is the current size of the stream in bytes, pending sleeps excluded.
func (w *Writer) Len() int {
	return len(w.buf)
}

// Finalize flushes pending time, appends the GD3 block and patches the EOF,
// GD3 and sample-count header fields. It may only be called once. On a GD3
// encoding error the writer is unusable and no data is returned.
func (w *Writer) Finalize(info gd3.Info) ([]byte, error) {
	w.mustBuild("Finalize")
	w.finalized = true

	w.buf = w.sleep.flush(w.buf)
	if w.cfg.endMarker {
		w.buf = append(w.buf, OpEnd)
	}

	w.put32(offGD3, uint32(len(w.buf)-offGD3))
	block, err := gd3.Serialize(info, w.cfg.attribution)
	if err != nil {
		w.buf = nil
		return nil, err
	}
	w.buf = append(w.buf, block...)

	w.put32(offEOF, uint32(len(w.buf)-offEOF))
	w.put32(offTotalSamples, uint32(w.sleep.total))
	return w.buf, nil
}

// Record runs body against a fresh Writer and finalizes it exactly once on
// every exit path, including a panic in body. If body fails the truncated but
// well-formed stream is returned together with body's error. A GD3 encoding
// error replaces any body error and yields no data.
func Record(info gd3.Info, body func(Recorder) error, opts ...Option) (data []byte, err error) {
	w := NewWriter(opts...)
	defer func() {
		out, ferr := w.Finalize(info)
		if ferr != nil {
			data, err = nil, ferr
			return
		}
		data = out
	}()
	return nil, body(w)
}
