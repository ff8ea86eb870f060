// Package request serializes labeling requests for the oracle.
//
// Payloads are compact, key order is fixed by struct field order, and every
// non-ASCII rune is written as a \u escape so answers in any script survive
// transports that mangle UTF-8.
package request

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/alvinkoh256/Survey-Response-Coder/internal/sanitize"
)

// OutputDirective is sent verbatim with every batch request. It is the only
// lever for getting parseable output from a general-purpose chat model.
const OutputDirective = `Reply ONLY with JSON: {"results":[{"row":<int>,"categories":"Label1; Label2"}, ...]} - no prose, no markdown, no extra keys.`

// Item is one row of a batch request.
type Item struct {
	Row    int    `json:"row"`
	Answer string `json:"answer"`
}

type singlePayload struct {
	Instructions string   `json:"instructions"`
	Question     string   `json:"question"`
	Answer       string   `json:"answer"`
	Categories   []string `json:"categories"`
}

type batchPayload struct {
	Instructions string   `json:"instructions"`
	Question     string   `json:"question"`
	Categories   []string `json:"categories"`
	Items        []Item   `json:"items"`
	OutputSpec   string   `json:"output_spec"`
}

// Single builds the request for one answer.
func Single(instructions, question string, answer any, categories []string) (string, error) {
	return encode(singlePayload{
		Instructions: instructions,
		Question:     question,
		Answer:       sanitize.Clean(answer),
		Categories:   nonNil(categories),
	})
}

// Batch builds the request for several answers. Answers are sanitized here;
// row identifiers are passed through unchanged.
func Batch(instructions, question string, items []Item, categories []string) (string, error) {
	clean := make([]Item, len(items))
	for i, it := range items {
		clean[i] = Item{Row: it.Row, Answer: sanitize.Clean(it.Answer)}
	}

	return encode(batchPayload{
		Instructions: instructions,
		Question:     question,
		Categories:   nonNil(categories),
		Items:        clean,
		OutputSpec:   OutputDirective,
	})
}

// Fingerprint identifies a payload in debug logs without printing it.
// Format: "req:" + first 16 hex chars of SHA256(payload)
func Fingerprint(payload string) string {
	hash := sha256.Sum256([]byte(payload))
	return "req:" + hex.EncodeToString(hash[:])[:16]
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// encode marshals v without HTML escaping or extra whitespace, then escapes
// non-ASCII runes.
func encode(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	return asciiEscape(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// asciiEscape rewrites every non-ASCII rune as \uXXXX, using surrogate
// pairs above the BMP. Non-ASCII bytes only occur inside JSON strings, so
// the result is equivalent JSON.
func asciiEscape(data []byte) string {
	var out bytes.Buffer
	out.Grow(len(data))
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		data = data[size:]
		switch {
		case r < utf8.RuneSelf:
			out.WriteByte(byte(r))
		case r > 0xffff:
			hi, lo := utf16.EncodeRune(r)
			fmt.Fprintf(&out, `\u%04x\u%04x`, hi, lo)
		default:
			fmt.Fprintf(&out, `\u%04x`, r)
		}
	}
	return out.String()
}
