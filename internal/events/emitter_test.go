package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmitRunsListenersInOrder(t *testing.T) {
	e := NewEmitter()
	var calls []string
	e.On("newSale", func(args ...any) { calls = append(calls, "first") })
	e.On("newSale", func(args ...any) { calls = append(calls, "second") })
	e.On("newSale", func(args ...any) {
		calls = append(calls, "stock")
		assert.Equal(t, []any{9}, args)
	})

	assert.True(t, e.Emit("newSale", 9))
	assert.Equal(t, []string{"first", "second", "stock"}, calls)
	assert.Equal(t, 3, e.ListenerCount("newSale"))
}

func TestEmitWithoutListeners(t *testing.T) {
	var e Emitter
	assert.False(t, e.Emit("nothing"))

	e.On("late", func(...any) {})
	assert.True(t, e.Emit("late"))
}

func TestListenerMayRegisterDuringEmit(t *testing.T) {
	e := NewEmitter()
	n := 0
	e.On("tick", func(...any) {
		n++
		e.On("tick", func(...any) { n += 10 })
	})

	e.Emit("tick")
	assert.Equal(t, 1, n)
	e.Emit("tick")
	assert.Equal(t, 12, n)
}
