package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/fatih/color"

	intgd3 "github.com/cbegin/midivgm-go/internal/gd3"
	intvgm "github.com/cbegin/midivgm-go/internal/vgm"
)

func main() {
	dump := flag.Bool("dump", false, "print every command")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: vgminfo [-dump] <file.vgm>")
		os.Exit(1)
	}
	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}
	f, err := intvgm.Parse(data)
	if err != nil {
		log.Fatal(err)
	}

	label := color.New(color.FgCyan).SprintFunc()
	h := f.Header
	fmt.Printf("%s %x.%02x\n", label("version:"), h.Version>>8, h.Version&0xff)
	fmt.Printf("%s %d Hz\n", label("ymf262 clock:"), h.YMF262Clock)
	fmt.Printf("%s %d bytes\n", label("size:"), h.EOFOffset+4)
	fmt.Printf("%s %d (%s)\n", label("samples:"), h.TotalSamples, samplesToDuration(uint64(h.TotalSamples)))

	var port0, port1, waits int
	for _, c := range f.Commands {
		switch c.Op {
		case intvgm.OpWritePort0:
			port0++
		case intvgm.OpWritePort1:
			port1++
		default:
			waits++
		}
	}
	fmt.Printf("%s %d port 0, %d port 1, %d waits\n", label("commands:"), port0, port1, waits)
	if n := f.Samples(); n != uint64(h.TotalSamples) {
		color.Yellow("warning: waits sum to %d samples, header says %d", n, h.TotalSamples)
	}
	if !f.Ended {
		color.Yellow("note: no end-of-data command")
	}

	if f.HasGD3 {
		color.New(color.Bold).Println("GD3:")
		fields := f.GD3.Fields()
		for i, v := range fields {
			if v == "" {
				continue
			}
			fmt.Printf("  %s %q\n", label(intgd3.FieldName(i)+":"), v)
		}
	}

	if *dump {
		var pos uint64
		for _, c := range f.Commands {
			if c.IsWrite() {
				fmt.Printf("%10d  reg %03x = %02x\n", pos, c.Addr, c.Data)
				continue
			}
			pos += uint64(c.Wait)
		}
	}
}

func samplesToDuration(n uint64) time.Duration {
	return time.Duration(n) * time.Second / intvgm.SampleRate
}
