package gd3

import (
	"encoding/binary"
	"unicode/utf16"

	"github.com/pkg/errors"
)

var (
	ErrBadMagic  = errors.New("gd3: bad magic")
	ErrTruncated = errors.New("gd3: truncated block")
)

// Parse decodes a GD3 block produced by Serialize (or any GD3 1.00 writer).
// Trailing bytes after the declared length are ignored.
func Parse(block []byte) (Info, error) {
	if len(block) < headerSize {
		return Info{}, ErrTruncated
	}
	if binary.LittleEndian.Uint32(block[0:]) != Magic {
		return Info{}, ErrBadMagic
	}
	if v := binary.LittleEndian.Uint32(block[4:]); v != Version {
		return Info{}, errors.Errorf("gd3: unsupported version %#x", v)
	}
	length := binary.LittleEndian.Uint32(block[8:])
	if uint64(length) > uint64(len(block)-headerSize) {
		return Info{}, errors.Wrapf(ErrTruncated, "declared %d bytes, have %d", length, len(block)-headerSize)
	}
	body := block[headerSize : headerSize+int(length)]

	var fields [FieldCount]string
	pos := 0
	for i := range fields {
		var units []uint16
		for {
			if pos+2 > len(body) {
				return Info{}, errors.Wrapf(ErrTruncated, "field %s unterminated", fieldNames[i])
			}
			u := binary.LittleEndian.Uint16(body[pos:])
			pos += 2
			if u == 0 {
				break
			}
			units = append(units, u)
		}
		fields[i] = string(utf16.Decode(units))
	}
	return fromFields(fields), nil
}
