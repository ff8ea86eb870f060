package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMultiFansOutInOrder(t *testing.T) {
	var order []string
	first := ObserverFunc(func(e Event) { order = append(order, "first:"+string(e.Kind)) })
	second := ObserverFunc(func(e Event) { order = append(order, "second:"+string(e.Kind)) })

	Multi{first, nil, second}.Observe(Event{Kind: KindPassStarted})

	assert.Equal(t, []string{"first:pass_started", "second:pass_started"}, order)
}

func TestRecorder(t *testing.T) {
	var r Recorder
	r.Observe(Event{Kind: KindRowLabeled, Row: RowPtr(0)})
	r.Observe(Event{Kind: KindRowLabeled, Row: RowPtr(2)})
	r.Observe(Event{Kind: KindPassCompleted})

	assert.Equal(t, 2, r.Count(KindRowLabeled))
	assert.Equal(t, 0, r.Count(KindPassFailed))
	rows := r.Of(KindRowLabeled)
	assert.Equal(t, 2, *rows[1].Row)
}
