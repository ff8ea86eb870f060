// Package labels handles the semicolon-delimited label lists stored in
// codes columns.
package labels

import "strings"

// NewPrefix marks a label the oracle coined during this request.
const NewPrefix = "NEW:"

// Separator joins labels inside a single cell.
const Separator = "; "

// Split parses a cell into its trimmed, non-empty labels. Order and
// duplicates are preserved.
func Split(cell string) []string {
	if strings.TrimSpace(cell) == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(cell, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Join renders labels as a cell value.
func Join(labels []string) string {
	return strings.Join(labels, Separator)
}

// Normalize turns a raw label string from the oracle into a well-formed
// cell: NEW: markers stripped, empties dropped, duplicates collapsed to their
// first occurrence.
func Normalize(raw string) string {
	parts := Split(raw)
	seen := make(map[string]struct{}, len(parts))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(strings.TrimPrefix(p, NewPrefix))
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return Join(out)
}

// IsBlank reports whether a codes cell still needs labeling.
func IsBlank(cell string) bool {
	return strings.TrimSpace(cell) == ""
}
