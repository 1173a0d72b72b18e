package sequencer

import (
	"context"
	"math"

	"github.com/cbegin/midivgm-go/internal/midifile"
)

// Engine receives channel events in playback order.
type Engine interface {
	NoteOn(ch, key, vel uint8)
	NoteOff(ch, key uint8)
	ControlChange(ch, cc, value uint8)
	ProgramChange(ch, program uint8)
	PitchBend(ch uint8, value int16)
	AllNotesOff()
}

// Clock advances output time between events.
type Clock interface {
	Sleep(samples uint32)
}

type Options struct {
	// ReleaseTail is how many samples to keep recording after the final
	// note-off so release envelopes can finish.
	ReleaseTail uint32
	// OnProgress is called after each event with the current position.
	OnProgress func(position, duration uint64)
}

type Sequencer struct {
	song     *midifile.Song
	engine   Engine
	clock    Clock
	opts     Options
	position uint64
	next     int
}

func New(song *midifile.Song, engine Engine, clock Clock, opts Options) *Sequencer {
	return &Sequencer{song: song, engine: engine, clock: clock, opts: opts}
}

// Position is the number of samples handed to the clock so far.
func (s *Sequencer) Position() uint64 {
	return s.position
}

// Run plays the whole song. Cancelling ctx stops between events; sounding
// notes are released and the context error is returned.
func (s *Sequencer) Run(ctx context.Context) error {
	duration := s.song.Duration()
	for s.next < len(s.song.Events) {
		if err := ctx.Err(); err != nil {
			s.engine.AllNotesOff()
			return err
		}
		ev := s.song.Events[s.next]
		s.advance(ev.Sample)
		s.dispatch(ev)
		s.next++
		if s.opts.OnProgress != nil {
			s.opts.OnProgress(s.position, duration)
		}
	}
	s.engine.AllNotesOff()
	s.sleep(uint64(s.opts.ReleaseTail))
	return nil
}

func (s *Sequencer) advance(target uint64) {
	if target > s.position {
		s.sleep(target - s.position)
	}
}

func (s *Sequencer) sleep(n uint64) {
	s.position += n
	for n > 0 {
		chunk := n
		if chunk > math.MaxUint32 {
			chunk = math.MaxUint32
		}
		s.clock.Sleep(uint32(chunk))
		n -= chunk
	}
}

func (s *Sequencer) dispatch(ev midifile.Event) {
	switch ev.Kind {
	case midifile.NoteOn:
		s.engine.NoteOn(ev.Channel, ev.Data1, ev.Data2)
	case midifile.NoteOff:
		s.engine.NoteOff(ev.Channel, ev.Data1)
	case midifile.ControlChange:
		s.engine.ControlChange(ev.Channel, ev.Data1, ev.Data2)
	case midifile.ProgramChange:
		s.engine.ProgramChange(ev.Channel, ev.Data1)
	case midifile.PitchBend:
		s.engine.PitchBend(ev.Channel, ev.Bend)
	}
}
