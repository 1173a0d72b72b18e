package sequencer

import (
	"context"
	"testing"

	"github.com/cbegin/midivgm-go/internal/gd3"
	"github.com/cbegin/midivgm-go/internal/midifile"
	"github.com/cbegin/midivgm-go/internal/opl3"
	"github.com/cbegin/midivgm-go/internal/vgm"
)

func benchmarkSong() *midifile.Song {
	song := &midifile.Song{}
	var pos uint64
	for i := 0; i < 512; i++ {
		key := uint8(48 + i%24)
		song.Events = append(song.Events,
			midifile.Event{Sample: pos, Kind: midifile.NoteOn, Channel: uint8(i % 4), Data1: key, Data2: 100},
			midifile.Event{Sample: pos + 2000, Kind: midifile.NoteOff, Channel: uint8(i % 4), Data1: key},
		)
		pos += 2756
	}
	return song
}

func BenchmarkSequencerToVGM(b *testing.B) {
	song := benchmarkSong()
	bank, _ := opl3.LookupBank(0)
	model, _ := opl3.LookupVolumeModel(0)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := vgm.Record(gd3.Info{}, func(rec vgm.Recorder) error {
			drv := opl3.NewDriver(rec, bank, model)
			drv.Reset()
			return New(song, drv, rec, Options{}).Run(context.Background())
		})
		if err != nil {
			b.Fatalf("record: %v", err)
		}
	}
}
