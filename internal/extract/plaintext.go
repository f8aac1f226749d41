package extract

import (
	"os"
	"unicode/utf8"

	localerrors "github.com/localdocs/localdocs/internal/errors"
)

// extractPlainText reads path as bytes, interprets it as UTF-8 with lossy
// replacement of invalid sequences, and emits it as a single page.
func extractPlainText(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, localerrors.IOError("read "+path, err)
	}
	text := toValidUTF8(data)
	return nonEmptyPages([]string{text}), nil
}

// toValidUTF8 replaces invalid UTF-8 byte sequences with U+FFFD.
func toValidUTF8(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	var b []byte
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		b = utf8.AppendRune(b, r)
		data = data[size:]
	}
	return string(b)
}
