package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/cbegin/midivgm-go"
)

func main() {
	var (
		input, output  string
		bank, volModel int
		md             midivgm.Metadata
	)
	flag.StringVar(&input, "in", "", "input MIDI file")
	flag.StringVar(&input, "i", "", "input MIDI file (shorthand)")
	flag.StringVar(&output, "out", "", "output VGM file")
	flag.StringVar(&output, "o", "", "output VGM file (shorthand)")
	flag.IntVar(&bank, "bank", 0, "instrument bank index")
	flag.IntVar(&bank, "b", 0, "instrument bank index (shorthand)")
	flag.IntVar(&volModel, "vol-model", 0, "volume model index (0 = AUTO)")
	flag.IntVar(&volModel, "v", 0, "volume model index (shorthand)")
	var (
		showBanks     = flag.Bool("show-banks", false, "list available banks")
		showVolModels = flag.Bool("show-vol-models", false, "list available volume models")
		endMarker     = flag.Bool("end-marker", true, "terminate the command stream with an end-of-data command")
		tail          = flag.Duration("tail", time.Second, "recording time after the last note-off")
	)
	flag.StringVar(&md.TitleEN, "vgm-title-en", "", "GD3 title (English)")
	flag.StringVar(&md.Title, "vgm-title", "", "GD3 title")
	flag.StringVar(&md.AlbumEN, "vgm-album-en", "", "GD3 album (English)")
	flag.StringVar(&md.Album, "vgm-album", "", "GD3 album")
	flag.StringVar(&md.SystemEN, "vgm-system-en", "", "GD3 system (English)")
	flag.StringVar(&md.System, "vgm-system", "", "GD3 system")
	flag.StringVar(&md.AuthorEN, "vgm-author-en", "", "GD3 author (English)")
	flag.StringVar(&md.Author, "vgm-author", "", "GD3 author")
	flag.StringVar(&md.Date, "vgm-date", "", "GD3 release date")
	flag.StringVar(&md.ConvertedBy, "vgm-conv-by", "", "GD3 converted by")
	flag.StringVar(&md.Notes, "vgm-notes", "", "GD3 notes (generated when empty)")
	flag.Usage = usage
	flag.Parse()

	if *showBanks {
		printCatalog("Available banks:", midivgm.ListBanks())
		return
	}
	if *showVolModels {
		printCatalog("Available volume models:", midivgm.ListVolumeModels())
		return
	}
	if err := applyPositional(flag.Args(), &input, &output, &bank, &volModel); err != nil {
		color.Red("error: %v", err)
		flag.Usage()
		os.Exit(1)
	}
	if input == "" || output == "" {
		flag.Usage()
		os.Exit(1)
	}

	conv, err := midivgm.New(
		midivgm.WithBank(bank),
		midivgm.WithVolumeModel(volModel),
		midivgm.WithMetadata(md),
		midivgm.WithEndMarker(*endMarker),
		midivgm.WithReleaseTail(*tail),
	)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	data, err := conv.ConvertFile(ctx, input)
	if data == nil {
		log.Fatal(err)
	}
	if werr := os.WriteFile(output, data, 0o644); werr != nil {
		log.Fatal(werr)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			color.Yellow("interrupted: wrote truncated %s (%d bytes)", output, len(data))
			os.Exit(130)
		}
		log.Fatal(err)
	}
	b, m := conv.Bank(), conv.VolumeModel()
	fmt.Printf("wrote %s (%d bytes, bank %d - %s, volume model %d - %s)\n", output, len(data), b.Index, b.Title, m.Index, m.Title)
}

// applyPositional fills in, out, bank and vol-model from trailing arguments
// when the flags were not given.
func applyPositional(args []string, input, output *string, bank, volModel *int) error {
	if len(args) > 4 {
		return fmt.Errorf("too many arguments: %q", args[4:])
	}
	if len(args) > 0 && *input == "" {
		*input = args[0]
	}
	if len(args) > 1 && *output == "" {
		*output = args[1]
	}
	if len(args) > 2 {
		n, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid bank %q", args[2])
		}
		*bank = n
	}
	if len(args) > 3 {
		n, err := strconv.Atoi(args[3])
		if err != nil {
			return fmt.Errorf("invalid volume model %q", args[3])
		}
		*volModel = n
	}
	return nil
}

func printCatalog(heading string, entries []midivgm.CatalogEntry) {
	color.New(color.Bold).Println(heading)
	index := color.New(color.FgCyan).SprintFunc()
	for _, e := range entries {
		if e.Description != "" {
			fmt.Printf("%s - %s: %s\n", index(e.Index), e.Title, e.Description)
			continue
		}
		fmt.Printf("%s - %s\n", index(e.Index), e.Title)
	}
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "midi2vgm - convert MIDI files to OPL3 VGM files\n\n")
	fmt.Fprintf(out, "usage: midi2vgm [flags] <in> <out> [bank [vol-model]]\n\n")
	flag.PrintDefaults()
}
