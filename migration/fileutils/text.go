package fileutils

import (
	"bytes"
	"fmt"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Encoding names reported by ReadTextFile.
const (
	EncodingUTF8   = "utf-8"
	EncodingLatin1 = "latin-1"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadTextFile reads path as UTF-8, falling back to ISO-8859-1 when the bytes are not valid
// UTF-8. A leading UTF-8 byte order mark is dropped.
func ReadTextFile(path string) (string, string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	return DecodeText(b)
}

// DecodeText is ReadTextFile without the file access.
func DecodeText(b []byte) (string, string, error) {
	b = bytes.TrimPrefix(b, utf8BOM)
	if utf8.Valid(b) {
		return string(b), EncodingUTF8, nil
	}
	d, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return "", "", fmt.Errorf("decode %s: %w", EncodingLatin1, err)
	}
	return string(d), EncodingLatin1, nil
}
