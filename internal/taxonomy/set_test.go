package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetAdd(t *testing.T) {
	s := NewSet("B", "A")
	assert.Equal(t, 1, s.Add("A", "C", "", "  "))
	assert.Equal(t, []string{"B", "A", "C"}, s.Labels())
	assert.True(t, s.Contains("C"))
	assert.False(t, s.Contains("D"))
	assert.Equal(t, 3, s.Len())
}

func TestSetZeroValue(t *testing.T) {
	var s Set
	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Contains("A"))
	assert.Equal(t, 1, s.Add("A"))
}

func TestSetAddCells(t *testing.T) {
	s := NewSet()
	added := s.AddCells("Password Management; Two-Factor Authentication", "", "Two-Factor Authentication; Privacy")
	assert.Equal(t, 3, added)
	assert.Equal(t, []string{"Password Management", "Two-Factor Authentication", "Privacy"}, s.Labels())
}

func TestSetLabelsIsCopy(t *testing.T) {
	s := NewSet("A")
	got := s.Labels()
	got[0] = "mutated"
	assert.Equal(t, []string{"A"}, s.Labels())
}
