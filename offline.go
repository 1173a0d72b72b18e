package midivgm

import (
	"context"

	intgd3 "github.com/cbegin/midivgm-go/internal/gd3"
	intopl3 "github.com/cbegin/midivgm-go/internal/opl3"
	intseq "github.com/cbegin/midivgm-go/internal/sequencer"
	intvgm "github.com/cbegin/midivgm-go/internal/vgm"
)

func (c *Converter) render(ctx context.Context, name string, song *Song) ([]byte, error) {
	md := c.cfg.metadata
	if md.TitleEN == "" && md.Title == "" {
		md.TitleEN = song.Title
	}
	attr := intgd3.Attribution{
		SourcePath:       name,
		BankIndex:        c.bank.Index,
		BankTitle:        c.bank.Title,
		VolumeModelIndex: c.model.Index,
		VolumeModelTitle: c.model.Title(),
	}
	tail := uint32(c.cfg.releaseTail.Seconds() * SampleRate)

	opts := []intvgm.Option{
		intvgm.WithAttribution(attr),
		intvgm.WithEndMarker(c.cfg.endMarker),
	}
	return intvgm.Record(md, func(rec intvgm.Recorder) error {
		drv := intopl3.NewDriver(rec, c.bank, c.model)
		drv.Reset()
		seq := intseq.New(song, drv, rec, intseq.Options{
			ReleaseTail: tail,
			OnProgress:  c.cfg.onProgress,
		})
		return seq.Run(ctx)
	}, opts...)
}

// RenderSong records a song built in memory, with the same options New takes.
func RenderSong(ctx context.Context, song *Song, name string, opts ...Option) ([]byte, error) {
	c, err := New(opts...)
	if err != nil {
		return nil, err
	}
	return c.render(ctx, name, song)
}
