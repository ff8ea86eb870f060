package ndjson

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Kind string `json:"kind"`
	Row  int    `json:"row"`
	Text string `json:"text,omitempty"`
}

func TestEncoderDecoder(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf, nil)

	in := []record{
		{Kind: "row_labeled", Row: 0, Text: "Password Management"},
		{Kind: "row_labeled", Row: 1, Text: "密码"},
		{Kind: "pass_completed", Row: 2},
	}
	for _, r := range in {
		require.NoError(t, enc.Encode(r))
	}
	assert.Equal(t, 3, strings.Count(buf.String(), "\n"))

	dec := NewDecoder(&buf, nil)
	var out []record
	for {
		var r record
		err := dec.Decode(&r)
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		out = append(out, r)
	}
	assert.Equal(t, in, out)
	assert.Equal(t, 3, dec.Line())
}

func TestDecoderSkipsEmptyLines(t *testing.T) {
	dec := NewDecoder(strings.NewReader("\n\n{\"kind\":\"a\"}\n\n{\"kind\":\"b\"}\n"), nil)

	var r record
	require.NoError(t, dec.Decode(&r))
	assert.Equal(t, "a", r.Kind)
	require.NoError(t, dec.Decode(&r))
	assert.Equal(t, "b", r.Kind)
	assert.Equal(t, 5, dec.Line())
	assert.ErrorIs(t, dec.Decode(&r), io.EOF)
}

func TestDecoderInvalidJSON(t *testing.T) {
	dec := NewDecoder(strings.NewReader("{\"kind\":\"a\"}\nnot json\n"), nil)

	var r record
	require.NoError(t, dec.Decode(&r))
	err := dec.Decode(&r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestEncoderRejectsOversizedRecord(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf, nil)

	err := enc.Encode(record{Text: strings.Repeat("x", MaxMessageSize)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds limit")
	assert.Zero(t, buf.Len(), "nothing should be written")
}

func TestDecoderRejectsOversizedLine(t *testing.T) {
	line := `{"text":"` + strings.Repeat("x", MaxMessageSize) + `"}` + "\n"
	dec := NewDecoder(strings.NewReader(line), nil)

	var r record
	assert.Error(t, dec.Decode(&r))
}
