// Package parser ingests raw CSV exports: encoding detection, decoding to
// UTF-8, and forgiving row parsing.
package parser

import (
	"bytes"
	"encoding/binary"
	"unicode/utf8"
)

// Encoding identifies the detected input encoding.
type Encoding string

const (
	EncUTF8    Encoding = "utf-8"
	EncUTF8BOM Encoding = "utf-8-bom"
	EncUTF16LE Encoding = "utf-16le"
	EncUTF16BE Encoding = "utf-16be"
	EncLatin1  Encoding = "latin-1"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// Decode sniffs the encoding of an export, strips any BOM, and returns the
// content as UTF-8 bytes. Non-empty input never fails: anything that is not
// BOM-tagged UTF-16 and not valid UTF-8 falls back to Latin-1, where every
// byte maps to the code point of the same value.
func Decode(data []byte) ([]byte, Encoding, error) {
	if len(data) == 0 {
		return data, EncUTF8, nil
	}

	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return data[3:], EncUTF8BOM, nil
	case bytes.HasPrefix(data, bomUTF16LE):
		return decodeUTF16(data[2:], binary.LittleEndian), EncUTF16LE, nil
	case bytes.HasPrefix(data, bomUTF16BE):
		return decodeUTF16(data[2:], binary.BigEndian), EncUTF16BE, nil
	case utf8.Valid(data):
		return data, EncUTF8, nil
	}

	return decodeLatin1(data), EncLatin1, nil
}

// decodeUTF16 converts UTF-16 code units to UTF-8. Lone or truncated
// surrogates become U+FFFD; an odd trailing byte is dropped.
func decodeUTF16(data []byte, order binary.ByteOrder) []byte {
	if len(data)%2 != 0 {
		data = data[:len(data)-1]
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for i := 0; i < len(data); i += 2 {
		u := order.Uint16(data[i : i+2])

		switch {
		case u >= 0xD800 && u <= 0xDBFF:
			// High surrogate: needs a low surrogate to form a pair.
			if i+3 < len(data) {
				low := order.Uint16(data[i+2 : i+4])
				if low >= 0xDC00 && low <= 0xDFFF {
					buf.WriteRune(0x10000 + (rune(u-0xD800)<<10 | rune(low-0xDC00)))
					i += 2
					continue
				}
			}
			buf.WriteRune(utf8.RuneError)
		case u >= 0xDC00 && u <= 0xDFFF:
			// Lone low surrogate.
			buf.WriteRune(utf8.RuneError)
		default:
			buf.WriteRune(rune(u))
		}
	}

	return buf.Bytes()
}

// decodeLatin1 widens ISO 8859-1 bytes to UTF-8.
func decodeLatin1(data []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(len(data) * 2) // Worst case: every byte becomes 2-byte UTF-8
	for _, b := range data {
		buf.WriteRune(rune(b))
	}
	return buf.Bytes()
}
