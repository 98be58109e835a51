package csvkit

// streaming.go provides the reader chain every CSV file passes through:
//
//   - BOMSkippingReader: drops the UTF-8 BOM Excel puts in front of exports
//   - charset decoding: DWH dumps are often Windows-1252, not UTF-8
//   - UTF8Sanitizer: replaces invalid UTF-8 bytes with '?'
//
// Use WrapReader to apply the transforms in the correct order.

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// BOMSkippingReader wraps an io.Reader and skips a leading UTF-8 BOM.
type BOMSkippingReader struct {
	r       *bufio.Reader
	checked bool
}

// NewBOMSkippingReader creates a new BOM-skipping reader.
func NewBOMSkippingReader(r io.Reader) *BOMSkippingReader {
	return &BOMSkippingReader{r: bufio.NewReader(r)}
}

// Read implements io.Reader.
func (b *BOMSkippingReader) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true
		head, _ := b.r.Peek(len(utf8BOM))
		if len(head) == len(utf8BOM) && string(head) == string(utf8BOM) {
			if _, err := b.r.Discard(len(utf8BOM)); err != nil {
				return 0, err
			}
		}
	}
	return b.r.Read(p)
}

// UTF8Sanitizer replaces invalid UTF-8 bytes with '?' while streaming.
// A multi-byte rune split across two reads is carried over to the next read.
type UTF8Sanitizer struct {
	r       io.Reader
	pending []byte
	buf     []byte
	out     []byte
	err     error
}

// NewUTF8Sanitizer creates a new streaming sanitizer.
func NewUTF8Sanitizer(r io.Reader) *UTF8Sanitizer {
	return &UTF8Sanitizer{r: r, buf: make([]byte, 32*1024)}
}

// Read implements io.Reader.
func (s *UTF8Sanitizer) Read(p []byte) (int, error) {
	for len(s.out) == 0 {
		if s.err != nil {
			if len(s.pending) > 0 {
				// Truncated rune at EOF.
				s.out = append(s.out, '?')
				s.pending = nil
				break
			}
			return 0, s.err
		}

		n, err := s.r.Read(s.buf)
		s.err = err
		chunk := append(s.pending, s.buf[:n]...)
		s.pending = nil

		for len(chunk) > 0 {
			r, size := utf8.DecodeRune(chunk)
			if r == utf8.RuneError && size <= 1 {
				if !utf8.FullRune(chunk) && s.err == nil {
					s.pending = append([]byte(nil), chunk...)
					break
				}
				s.out = append(s.out, '?')
				chunk = chunk[1:]
				continue
			}
			s.out = append(s.out, chunk[:size]...)
			chunk = chunk[size:]
		}
	}

	n := copy(p, s.out)
	s.out = s.out[n:]
	return n, nil
}

// WrapReader builds the reader chain for an input file. encoding is either
// empty/"utf-8" or one of the single-byte charsets understood by Charset.
func WrapReader(r io.Reader, encoding string) (io.Reader, error) {
	r = NewBOMSkippingReader(r)

	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "utf-8", "utf8":
		return NewUTF8Sanitizer(r), nil
	}

	cm, err := Charset(encoding)
	if err != nil {
		return nil, err
	}
	return cm.NewDecoder().Reader(r), nil
}

// Charset resolves a single-byte charset name.
func Charset(name string) (*charmap.Charmap, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "windows-1252", "cp1252":
		return charmap.Windows1252, nil
	case "iso-8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1, nil
	case "iso-8859-15", "latin9":
		return charmap.ISO8859_15, nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
}
