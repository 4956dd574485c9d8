package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBus(t *testing.T) {
	var bus Bus[string]
	var got []string

	bus.Subscribe(func(s string) { got = append(got, "first:"+s) })
	unsubscribe := bus.Subscribe(func(s string) { got = append(got, "second:"+s) })

	bus.Publish("a")
	unsubscribe()
	bus.Publish("b")

	assert.Equal(t, []string{"first:a", "second:a", "first:b"}, got)
}
