package midifile

import (
	"io"
	"os"
	"sort"

	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2/smf"
)

type Kind uint8

const (
	NoteOn Kind = iota
	NoteOff
	ControlChange
	ProgramChange
	PitchBend
)

func (k Kind) String() string {
	switch k {
	case NoteOn:
		return "note-on"
	case NoteOff:
		return "note-off"
	case ControlChange:
		return "control-change"
	case ProgramChange:
		return "program-change"
	case PitchBend:
		return "pitch-bend"
	default:
		return "unknown"
	}
}

// Event is one channel message placed at an absolute sample position.
// Data1/Data2 hold key and velocity, controller and value, or the program;
// Bend holds the signed 14-bit pitch bend.
type Event struct {
	Sample  uint64
	Kind    Kind
	Channel uint8
	Data1   uint8
	Data2   uint8
	Bend    int16
	Track   int
}

// Song is a Standard MIDI File flattened to a single time-ordered list.
type Song struct {
	Events     []Event
	Title      string // sequence name of the first track, if any
	Tracks     int
	SampleRate int
}

// Duration is the position of the last event in samples.
func (s *Song) Duration() uint64 {
	if len(s.Events) == 0 {
		return 0
	}
	return s.Events[len(s.Events)-1].Sample
}

// Load reads a Standard MIDI File from path.
func Load(path string, sampleRate int) (*Song, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open midi file")
	}
	defer f.Close()
	return Read(f, sampleRate)
}

// Read parses a Standard MIDI File and converts every channel message to an
// absolute sample position using the file's tempo map.
func Read(r io.Reader, sampleRate int) (*Song, error) {
	if sampleRate <= 0 {
		return nil, errors.New("midifile: sample rate must be positive")
	}
	song := &Song{SampleRate: sampleRate}
	tracks := map[int]struct{}{}
	rate := int64(sampleRate)

	tr := smf.ReadTracksFrom(r)
	tr.Do(func(te smf.TrackEvent) {
		tracks[te.TrackNo] = struct{}{}
		if te.AbsMicroSeconds < 0 {
			return
		}
		ev := Event{
			Sample: uint64((te.AbsMicroSeconds*rate + 500000) / 1000000),
			Track:  te.TrackNo,
		}
		var ch, a, b uint8
		var rel int16
		var abs uint16
		var name string
		msg := te.Message
		switch {
		case msg.GetNoteStart(&ch, &a, &b):
			ev.Kind, ev.Channel, ev.Data1, ev.Data2 = NoteOn, ch, a, b
		case msg.GetNoteEnd(&ch, &a):
			ev.Kind, ev.Channel, ev.Data1 = NoteOff, ch, a
		case msg.GetControlChange(&ch, &a, &b):
			ev.Kind, ev.Channel, ev.Data1, ev.Data2 = ControlChange, ch, a, b
		case msg.GetProgramChange(&ch, &a):
			ev.Kind, ev.Channel, ev.Data1 = ProgramChange, ch, a
		case msg.GetPitchBend(&ch, &rel, &abs):
			ev.Kind, ev.Channel, ev.Bend = PitchBend, ch, rel
		case te.TrackNo == 0 && song.Title == "" && msg.GetMetaTrackName(&name):
			song.Title = name
			return
		default:
			return
		}
		song.Events = append(song.Events, ev)
	})
	if err := tr.Error(); err != nil {
		return nil, errors.Wrap(err, "read midi file")
	}
	song.Tracks = len(tracks)

	// Tracks arrive one after another; a stable sort keeps file order for
	// simultaneous events, so lower tracks win ties.
	sort.SliceStable(song.Events, func(i, j int) bool {
		return song.Events[i].Sample < song.Events[j].Sample
	})
	return song, nil
}
