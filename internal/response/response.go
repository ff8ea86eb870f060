// Package response extracts label assignments from oracle replies. It never
// fails: malformed output degrades to a verbatim label (single-row) or to a
// flagged, unlabeled batch.
package response

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/alvinkoh256/Survey-Response-Coder/internal/labels"
)

// Batch is the outcome of parsing a batch reply.
type Batch struct {
	// Labels maps row identifiers to normalized cell values. Only rows that
	// were sent and received a non-empty label appear.
	Labels map[int]string
	// Degraded is set when the reply had neither a results object nor a bare
	// result list. No row is labeled in that case.
	Degraded bool
	// Unknown counts result entries whose row was not part of the request.
	Unknown int
}

// Single returns the normalized label string for a single-row reply.
// A JSON object contributes its "categories" field; anything else is used
// verbatim.
func Single(reply string) string {
	text := strings.TrimSpace(stripFences(reply))
	if strings.HasPrefix(text, "{") {
		var obj map[string]any
		if err := decode(text, &obj); err == nil {
			return labels.Normalize(categoriesText(obj["categories"]))
		}
	}
	return labels.Normalize(text)
}

// ParseBatch reads a batch reply for the rows in sent.
func ParseBatch(reply string, sent []int) Batch {
	out := Batch{Labels: make(map[int]string)}

	results, ok := resultList(strings.TrimSpace(stripFences(reply)))
	if !ok {
		out.Degraded = true
		return out
	}

	want := make(map[int]struct{}, len(sent))
	for _, r := range sent {
		want[r] = struct{}{}
	}

	for _, entry := range results {
		obj, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		row, ok := rowID(obj["row"])
		if !ok {
			continue
		}
		if _, ok := want[row]; !ok {
			out.Unknown++
			continue
		}
		// A repeated row overrides earlier entries, blank included.
		if cell := labels.Normalize(categoriesText(obj["categories"])); cell != "" {
			out.Labels[row] = cell
		} else {
			delete(out.Labels, row)
		}
	}
	return out
}

// resultList accepts {"results":[...]} first, then a bare [...].
func resultList(text string) ([]any, bool) {
	var parsed any
	if err := decode(text, &parsed); err != nil {
		return nil, false
	}

	switch v := parsed.(type) {
	case map[string]any:
		list, ok := v["results"].([]any)
		return list, ok
	case []any:
		return v, true
	default:
		return nil, false
	}
}

func decode(text string, v any) error {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("trailing data after JSON value")
	}
	return nil
}

func rowID(v any) (int, bool) {
	switch val := v.(type) {
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return int(n), true
		}
		f, err := val.Float64()
		if err != nil || f != math.Trunc(f) {
			return 0, false
		}
		return int(f), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		return n, err == nil
	default:
		return 0, false
	}
}

func categoriesText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ";")
	default:
		return fmt.Sprint(val)
	}
}

// stripFences removes a surrounding markdown code fence, which chat models
// add despite instructions.
func stripFences(reply string) string {
	text := strings.TrimSpace(reply)
	if !strings.HasPrefix(text, "```") || !strings.HasSuffix(text, "```") || len(text) < 6 {
		return reply
	}
	body := text[3 : len(text)-3]
	// Drop an info string such as "json".
	if i := strings.IndexByte(body, '\n'); i >= 0 && !strings.ContainsAny(body[:i], "{[") {
		body = body[i+1:]
	}
	return body
}
