// Package sanitize cleans free-text survey answers before they are sent to
// the oracle.
package sanitize

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

var typographic = strings.NewReplacer(
	"\u2019", "'",
	"\u2018", "'",
	"\u201c", `"`,
	"\u201d", `"`,
	"\u00a0", " ",
)

// zeroWidth covers zero-width space/joiners, word joiner and the BOM.
var zeroWidth = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x200b, Hi: 0x200d, Stride: 1},
		{Lo: 0x2060, Hi: 0x2060, Stride: 1},
		{Lo: 0xfeff, Hi: 0xfeff, Stride: 1},
	},
}

// Clean returns the answer as plain printable text. Missing values (nil,
// NaN) become the empty string. It never fails.
func Clean(v any) string {
	s := toText(v)
	if s == "" {
		return ""
	}

	s = typographic.Replace(s)

	// Chains hold internal buffers, so one is built per call.
	strip := transform.Chain(
		runes.Remove(runes.In(zeroWidth)),
		runes.Remove(runes.Predicate(func(r rune) bool { return !unicode.IsPrint(r) })),
	)
	out, _, err := transform.String(strip, s)
	if err != nil {
		return strings.Map(func(r rune) rune {
			if unicode.Is(zeroWidth, r) || !unicode.IsPrint(r) {
				return -1
			}
			return r
		}, s)
	}
	return out
}

func toText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case *string:
		if val == nil {
			return ""
		}
		return *val
	case float64:
		if math.IsNaN(val) {
			return ""
		}
		return fmt.Sprint(val)
	case float32:
		if math.IsNaN(float64(val)) {
			return ""
		}
		return fmt.Sprint(val)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
