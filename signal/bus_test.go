package signal

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus() *Bus {
	return NewBus(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
}

func TestOnDeliversInRegistrationOrder(t *testing.T) {
	bus := newTestBus()

	var order []string
	bus.On("tick", func(_ ...any) { order = append(order, "first") })
	bus.On("tick", func(_ ...any) { order = append(order, "second") })
	bus.On("tick", func(_ ...any) { order = append(order, "third") })

	bus.Emit("tick")

	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestEmitPassesPayload(t *testing.T) {
	bus := newTestBus()

	var got []any
	bus.On("data", func(payload ...any) { got = payload })

	bus.Emit("data", "value", 42)

	assert.Equal(t, []any{"value", 42}, got)
}

func TestOnceDeliversExactlyOnce(t *testing.T) {
	bus := newTestBus()

	count := 0
	bus.Once("ping", func(_ ...any) { count++ })

	bus.Emit("ping")
	bus.Emit("ping")
	bus.Emit("ping")

	assert.Equal(t, 1, count)
}

func TestOffRemovesHandler(t *testing.T) {
	bus := newTestBus()

	count := 0
	sub := bus.On("ping", func(_ ...any) { count++ })

	bus.Emit("ping")
	bus.Off(sub)
	bus.Emit("ping")

	assert.Equal(t, 1, count)

	// Removing twice is a no-op
	bus.Off(sub)
	bus.Off(nil)
}

func TestFiredRecordsFirstPayload(t *testing.T) {
	bus := newTestBus()

	_, ok := bus.Fired("ready")
	assert.False(t, ok)

	bus.Emit("ready", "first")
	bus.Emit("ready", "second")

	payload, ok := bus.Fired("ready")
	require.True(t, ok)
	assert.Equal(t, []any{"first"}, payload)
}

func TestAwaitAfterEmission(t *testing.T) {
	bus := newTestBus()
	bus.Emit("done", "result")

	var got []any
	bus.Await("done", func(payload []any) { got = payload })

	assert.Equal(t, []any{"result"}, got)
}

func TestAwaitBeforeEmission(t *testing.T) {
	bus := newTestBus()

	var got []any
	calls := 0
	bus.Await("done", func(payload []any) {
		got = payload
		calls++
	})

	bus.Emit("done", "result")
	bus.Emit("done", "again")

	assert.Equal(t, []any{"result"}, got)
	assert.Equal(t, 1, calls)
}

func TestReentrantEmit(t *testing.T) {
	bus := newTestBus()

	var order []string
	bus.On("outer", func(_ ...any) {
		order = append(order, "outer")
		bus.Emit("inner")
	})
	bus.On("inner", func(_ ...any) { order = append(order, "inner") })

	bus.Emit("outer")

	assert.Equal(t, []string{"outer", "inner"}, order)
}

func TestMaxListenersWarnsOnly(t *testing.T) {
	var buf bytes.Buffer
	bus := NewBus(slog.New(slog.NewTextHandler(&buf, nil)))
	bus.SetMaxListeners(2)

	delivered := 0
	for i := 0; i < 3; i++ {
		bus.On("busy", func(_ ...any) { delivered++ })
	}

	bus.Emit("busy")

	// Exceeding the bound is diagnostic only; every handler still runs
	assert.Equal(t, 3, delivered)
	assert.Contains(t, buf.String(), "maxListeners")
}

func TestSetMaxListenersIgnoresNonPositive(t *testing.T) {
	bus := newTestBus()
	bus.SetMaxListeners(0)
	bus.SetMaxListeners(-1)

	bus.mu.Lock()
	defer bus.mu.Unlock()
	assert.Equal(t, DefaultMaxListeners, bus.maxListeners)
}
