package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecorderKeepsOrder(t *testing.T) {
	var r Recorder
	r.Notify("one")
	r.Notify("two")
	assert.Equal(t, []string{"one", "two"}, r.Messages())
}

func TestMultiFansOut(t *testing.T) {
	var a, b Recorder
	var seen string
	Multi{&a, nil, &b, Func(func(m string) { seen = m })}.Notify("hello")

	assert.Equal(t, []string{"hello"}, a.Messages())
	assert.Equal(t, []string{"hello"}, b.Messages())
	assert.Equal(t, "hello", seen)
}

func TestDiscard(t *testing.T) {
	assert.NotPanics(t, func() { Discard.Notify("gone") })
}
