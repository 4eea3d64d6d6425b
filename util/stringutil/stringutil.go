package stringutil

import (
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// JoinNonEmpty does the same as strings.Join but omits empty elements
func JoinNonEmpty(elems []string, sep string) string {
	return strings.Join(NonEmpty(elems), sep)
}

// NonEmpty returns a slice with all empty strings removed
func NonEmpty(elems []string) []string {
	var res []string
	for _, e := range elems {
		if e != "" {
			res = append(res, e)
		}
	}
	return res
}

// DecodeLossy converts process output to a string, replacing every
// invalid UTF-8 sequence with the Unicode replacement character.
func DecodeLossy(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return strings.ToValidUTF8(string(b), string(utf8.RuneError))
}

// YesNo renders a boolean the way the scan CSV expects it.
func YesNo(b bool) string {
	if b {
		return "YES"
	}
	return "NO"
}

// ParseYesNo is the inverse of YesNo. It ignores surrounding whitespace
// and case.
func ParseYesNo(s string) (bool, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "YES":
		return true, nil
	case "NO":
		return false, nil
	}
	return false, errors.Errorf("invalid boolean %q, expected YES or NO", s)
}
