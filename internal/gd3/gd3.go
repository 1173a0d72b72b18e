package gd3

import (
	"encoding/binary"
	"fmt"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

const (
	Magic   uint32 = 0x20336447 // "Gd3 "
	Version uint32 = 0x00000100

	headerSize = 12
	FieldCount = 11
)

// Info holds the GD3 text fields. Each pair is stored English first, then
// the native-language variant, matching the on-disk order.
type Info struct {
	TitleEN     string
	Title       string
	AlbumEN     string
	Album       string
	SystemEN    string
	System      string
	AuthorEN    string
	Author      string
	Date        string
	ConvertedBy string
	Notes       string
}

var fieldNames = [FieldCount]string{
	"title-en", "title",
	"album-en", "album",
	"system-en", "system",
	"author-en", "author",
	"date", "converted-by", "notes",
}

// FieldName returns the name used in errors and listings for field i.
func FieldName(i int) string {
	if i < 0 || i >= FieldCount {
		return fmt.Sprintf("field%d", i)
	}
	return fieldNames[i]
}

// Fields returns the eleven fields in serialization order.
func (info Info) Fields() [FieldCount]string {
	return [FieldCount]string{
		info.TitleEN, info.Title,
		info.AlbumEN, info.Album,
		info.SystemEN, info.System,
		info.AuthorEN, info.Author,
		info.Date, info.ConvertedBy, info.Notes,
	}
}

func fromFields(f [FieldCount]string) Info {
	return Info{
		TitleEN: f[0], Title: f[1],
		AlbumEN: f[2], Album: f[3],
		SystemEN: f[4], System: f[5],
		AuthorEN: f[6], Author: f[7],
		Date: f[8], ConvertedBy: f[9], Notes: f[10],
	}
}

// EncodingError reports a field that is not valid UTF-8.
type EncodingError struct {
	Field  string
	Offset int // byte offset of the first invalid sequence
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("gd3: field %s is not valid UTF-8 at byte %d", e.Field, e.Offset)
}

// Attribution describes how a file was produced. It is only used to fill in
// Notes when the caller left it empty.
type Attribution struct {
	SourcePath       string
	BankIndex        int
	BankTitle        string
	VolumeModelIndex int
	VolumeModelTitle string
}

const (
	converterName = "midivgm"
	converterURL  = "https://github.com/cbegin/midivgm-go"
)

// Notes renders the default notes text.
func (a Attribution) Notes() string {
	var b strings.Builder
	fmt.Fprintf(&b, "\r\nConverted with %s - %s\r\n", converterName, converterURL)
	fmt.Fprintf(&b, "- Filename: %s\r\n", baseName(a.SourcePath))
	fmt.Fprintf(&b, "- Bank: %d - %s\r\n", a.BankIndex, a.BankTitle)
	fmt.Fprintf(&b, "- VolModel: %d - %s\r\n", a.VolumeModelIndex, a.VolumeModelTitle)
	return b.String()
}

// baseName strips directories written with either separator, so a Windows
// path given on a Unix host still loses its folders.
func baseName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}

// WithDefaultNotes returns a copy of info whose Notes is generated from attr
// when it was empty. A zero attr still yields the converter credit line.
func (info Info) WithDefaultNotes(attr Attribution) Info {
	if info.Notes == "" {
		info.Notes = attr.Notes()
	}
	return info
}

// Serialize builds the GD3 block: magic, version, length, then each field as
// null-terminated UTF-16LE.
func Serialize(info Info, attr Attribution) ([]byte, error) {
	info = info.WithDefaultNotes(attr)
	fields := info.Fields()

	size := headerSize
	for _, f := range fields {
		size += 2*len(f) + 2
	}
	out := make([]byte, headerSize, size)
	binary.LittleEndian.PutUint32(out[0:], Magic)
	binary.LittleEndian.PutUint32(out[4:], Version)

	for i, f := range fields {
		units, err := toUTF16(f)
		if err != nil {
			err.Field = fieldNames[i]
			return nil, err
		}
		for _, u := range units {
			out = append(out, byte(u), byte(u>>8))
		}
		out = append(out, 0, 0)
	}

	binary.LittleEndian.PutUint32(out[8:], uint32(len(out)-headerSize))
	return out, nil
}

// toUTF16 converts s, requiring every byte to be consumed by a valid rune.
func toUTF16(s string) ([]uint16, *EncodingError) {
	runes := make([]rune, 0, len(s))
	for i := 0; i < len(s); {
		r, n := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && n <= 1 {
			return nil, &EncodingError{Offset: i}
		}
		runes = append(runes, r)
		i += n
	}
	return utf16.Encode(runes), nil
}
