// Package taxonomy tracks the growing vocabulary of category labels per
// question and persists it between runs.
package taxonomy

import "github.com/alvinkoh256/Survey-Response-Coder/internal/labels"

// Set is an ordered, de-duplicated collection of labels. Order is first-seen.
// The zero value is ready to use.
type Set struct {
	order []string
	index map[string]struct{}
}

// NewSet returns a Set seeded with labels.
func NewSet(seed ...string) *Set {
	s := &Set{}
	s.Add(seed...)
	return s
}

// Add appends labels not already present and returns how many were new.
// Blank labels are ignored.
func (s *Set) Add(items ...string) int {
	if s.index == nil {
		s.index = make(map[string]struct{})
	}
	added := 0
	for _, l := range items {
		if labels.IsBlank(l) {
			continue
		}
		if _, ok := s.index[l]; ok {
			continue
		}
		s.index[l] = struct{}{}
		s.order = append(s.order, l)
		added++
	}
	return added
}

// AddCells adds every label found in the given codes cells.
func (s *Set) AddCells(cells ...string) int {
	added := 0
	for _, c := range cells {
		added += s.Add(labels.Split(c)...)
	}
	return added
}

// Contains reports whether l is in the set.
func (s *Set) Contains(l string) bool {
	_, ok := s.index[l]
	return ok
}

// Len returns the number of labels.
func (s *Set) Len() int { return len(s.order) }

// Labels returns a copy of the labels in first-seen order.
func (s *Set) Labels() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
