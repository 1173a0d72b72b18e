package vgm

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/cbegin/midivgm-go/internal/gd3"
)

var (
	ErrNotVGM         = errors.New("vgm: not a VGM file")
	ErrUnknownCommand = errors.New("vgm: unknown command")
	ErrTruncated      = errors.New("vgm: truncated data")
)

// Header holds the fields this package writes.
type Header struct {
	Version      uint32
	EOFOffset    uint32 // relative to 0x04
	GD3Offset    uint32 // relative to 0x14, 0 when absent
	TotalSamples uint32
	DataOffset   uint32 // relative to 0x34
	YMF262Clock  uint32
}

// Command is one decoded stream command. Wait is set for wait commands, Addr
// and Data for register writes (Addr carries the port in bit 0x100).
type Command struct {
	Op   byte
	Addr uint16
	Data uint8
	Wait uint32
}

// IsWrite reports whether c is a YMF262 register write.
func (c Command) IsWrite() bool {
	return c.Op == OpWritePort0 || c.Op == OpWritePort1
}

type File struct {
	Header   Header
	Commands []Command
	GD3      gd3.Info
	HasGD3   bool
	Ended    bool // stream carried an explicit end-of-data command
}

// Samples sums every wait in the command stream.
func (f *File) Samples() uint64 {
	var n uint64
	for _, c := range f.Commands {
		n += uint64(c.Wait)
	}
	return n
}

// Writes returns only the register-write commands.
func (f *File) Writes() []Command {
	var out []Command
	for _, c := range f.Commands {
		if c.IsWrite() {
			out = append(out, c)
		}
	}
	return out
}

// Parse decodes a VGM stream containing YMF262 commands.
func Parse(data []byte) (*File, error) {
	if len(data) < 0x40 || binary.LittleEndian.Uint32(data[offMagic:]) != Magic {
		return nil, ErrNotVGM
	}
	u32 := func(off int) uint32 {
		if off+4 > len(data) {
			return 0
		}
		return binary.LittleEndian.Uint32(data[off:])
	}
	f := &File{Header: Header{
		EOFOffset:    u32(offEOF),
		Version:      u32(offVersion),
		GD3Offset:    u32(offGD3),
		TotalSamples: u32(offTotalSamples),
		DataOffset:   u32(offDataOffset),
		YMF262Clock:  u32(offYMF262Clock),
	}}

	// Versions before 1.50 always start commands at 0x40.
	start := 0x40
	if f.Header.Version >= 0x150 && f.Header.DataOffset != 0 {
		start = offDataOffset + int(f.Header.DataOffset)
	}
	end := len(data)
	if f.Header.GD3Offset != 0 {
		gd3Start := offGD3 + int(f.Header.GD3Offset)
		if gd3Start > len(data) {
			return nil, errors.Wrapf(ErrTruncated, "gd3 offset %#x past end", gd3Start)
		}
		info, err := gd3.Parse(data[gd3Start:])
		if err != nil {
			return nil, errors.Wrap(err, "vgm: read gd3")
		}
		f.GD3, f.HasGD3 = info, true
		end = gd3Start
	}
	if start > end {
		return nil, errors.Wrapf(ErrTruncated, "data offset %#x past end", start)
	}

	cmds, ended, err := decodeCommands(data[start:end])
	if err != nil {
		return nil, err
	}
	f.Commands, f.Ended = cmds, ended
	return f, nil
}

func decodeCommands(stream []byte) ([]Command, bool, error) {
	var cmds []Command
	for pos := 0; pos < len(stream); {
		op := stream[pos]
		switch {
		case op == OpWritePort0 || op == OpWritePort1:
			if pos+3 > len(stream) {
				return nil, false, errors.Wrapf(ErrTruncated, "write at %#x", pos)
			}
			addr := uint16(stream[pos+1])
			if op == OpWritePort1 {
				addr |= 0x100
			}
			cmds = append(cmds, Command{Op: op, Addr: addr, Data: stream[pos+2]})
			pos += 3
		case op == OpWait:
			if pos+3 > len(stream) {
				return nil, false, errors.Wrapf(ErrTruncated, "wait at %#x", pos)
			}
			n := uint32(binary.LittleEndian.Uint16(stream[pos+1:]))
			cmds = append(cmds, Command{Op: op, Wait: n})
			pos += 3
		case op == OpWait735:
			cmds = append(cmds, Command{Op: op, Wait: 735})
			pos++
		case op == OpWait882:
			cmds = append(cmds, Command{Op: op, Wait: 882})
			pos++
		case op&0xf0 == 0x70:
			cmds = append(cmds, Command{Op: op, Wait: uint32(op&0x0f) + 1})
			pos++
		case op == OpEnd:
			return cmds, true, nil
		default:
			return nil, false, errors.Wrapf(ErrUnknownCommand, "%#02x at %#x", op, pos)
		}
	}
	return cmds, false, nil
}
