package summary

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"
)

// defaultAliases collapses common near-duplicate labels. Keys are matched
// case-insensitively.
var defaultAliases = map[string]string{
	"phishing prevention":       "Phishing/Scam Prevention",
	"scam prevention":           "Phishing/Scam Prevention",
	"phishing/scam prevention":  "Phishing/Scam Prevention",
	"two factor authentication": "Two-Factor Authentication",
	"2fa":                       "Two-Factor Authentication",
	"passwords":                 "Password Management",
	"strong passwords":          "Password Management",
	"privacy":                   "Privacy Protection",
	"privacy protection":        "Privacy Protection",
	"scam awareness":            "Scam Awareness",
	"nil":                       "NIL",
	"none":                      "NIL",
	"na":                        "NIL",
	"n/a":                       "NIL",
}

// Aliases maps casefolded label variants to a unified label.
type Aliases map[string]string

// NewAliases builds an alias table, casefolding keys.
func NewAliases(m map[string]string) Aliases {
	out := make(Aliases, len(m))
	for k, v := range m {
		out[fold(k)] = v
	}
	return out
}

// DefaultAliases returns a fresh copy of the built-in alias table.
func DefaultAliases() Aliases {
	return NewAliases(defaultAliases)
}

// Lookup returns the unified label for l, or l itself.
func (a Aliases) Lookup(l string) string {
	if unified, ok := a[fold(l)]; ok {
		return unified
	}
	return l
}

// LoadAliases reads a JSON or YAML object of variant -> label and layers it
// over the defaults. File entries win.
func LoadAliases(path string) (Aliases, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read alias file %s: %w", path, err)
	}

	var m map[string]string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &m)
	default:
		err = json.Unmarshal(data, &m)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse alias file %s: %w", path, err)
	}

	out := DefaultAliases()
	for k, v := range m {
		out[fold(k)] = v
	}
	return out, nil
}

func fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}
