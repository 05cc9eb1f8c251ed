// Package textenc decodes artifact and message bytes that are not always
// UTF-8.
package textenc

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/ianaindex"
)

// DefaultFallbacks is tried, in order, when input is not valid UTF-8.
var DefaultFallbacks = []string{"windows-1252", "iso-8859-1"}

// ErrUndecodable is returned when no configured encoding accepts the input.
var ErrUndecodable = errors.New("input is not valid in any configured encoding")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decode returns b as a UTF-8 string along with the name of the encoding
// that was used. Valid UTF-8 is returned as is, without a leading byte order
// mark. Otherwise the fallbacks are tried in order.
func Decode(b []byte, fallbacks []string) (string, string, error) {
	b = bytes.TrimPrefix(b, utf8BOM)
	if utf8.Valid(b) {
		return string(b), "utf-8", nil
	}

	var errs []error
	for _, name := range fallbacks {
		enc, err := ianaindex.IANA.Encoding(name)
		if err != nil {
			errs = append(errs, fmt.Errorf("ianaindex.IANA.Encoding(%s) failed: %w", name, err))
			continue
		}
		if enc == nil {
			errs = append(errs, fmt.Errorf("encoding %s is not supported", name))
			continue
		}

		out, err := enc.NewDecoder().Bytes(b)
		if err != nil {
			errs = append(errs, fmt.Errorf("decode %s failed: %w", name, err))
			continue
		}
		if !utf8.Valid(out) {
			continue
		}

		return string(out), strings.ToLower(name), nil
	}

	return "", "", errors.Join(append([]error{ErrUndecodable}, errs...)...)
}
