package signal

import (
	"log/slog"
	"sync"
)

// Handler receives the payload of an emitted signal.
type Handler func(payload ...any)

// Subscription identifies a single handler registration on the bus.
// It is returned by On and Once and accepted by Off.
type Subscription struct {
	id   uint64
	name string
	fn   Handler
	once bool
}

// Name returns the signal name this subscription listens for.
func (s *Subscription) Name() string {
	return s.name
}

// emission records delivery history for one signal name. The first payload
// is kept so waiters created after the fact still observe it.
type emission struct {
	count int
	first []any
}

// Bus is an in-process named-signal bus with synchronous FIFO delivery.
//
// Delivery for a given name happens in handler registration order. The bus
// records every emission, under the same mutex that guards registration, so
// a signal that fires before a listener attaches can still be observed via
// Await without racing a concurrent Emit.
//
// Handlers are invoked outside the bus lock and may re-enter Emit; nested
// emissions deliver depth-first, matching the cooperative single-threaded
// model the boot sequence assumes.
type Bus struct {
	mu           sync.Mutex
	subs         map[string][]*Subscription
	fired        map[string]*emission
	maxListeners int
	nextID       uint64
	logger       *slog.Logger
}

// DefaultMaxListeners bounds per-name handler counts before the bus starts
// warning. Exceeding the bound is a diagnostic only, never a failure.
const DefaultMaxListeners = 128

// NewBus creates a new signal bus.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		subs:         make(map[string][]*Subscription),
		fired:        make(map[string]*emission),
		maxListeners: DefaultMaxListeners,
		logger:       logger,
	}
}

// SetMaxListeners raises or lowers the per-name listener bound. The
// application sets this once at construction from main.maxListeners.
func (b *Bus) SetMaxListeners(n int) {
	if n <= 0 {
		return
	}
	b.mu.Lock()
	b.maxListeners = n
	b.mu.Unlock()
}

// On registers a handler for every future emission of name.
func (b *Bus) On(name string, fn Handler) *Subscription {
	return b.subscribe(name, fn, false)
}

// Once registers a handler that is removed after its first delivery.
func (b *Bus) Once(name string, fn Handler) *Subscription {
	return b.subscribe(name, fn, true)
}

func (b *Bus) subscribe(name string, fn Handler, once bool) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{id: b.nextID, name: name, fn: fn, once: once}
	b.subs[name] = append(b.subs[name], sub)

	if len(b.subs[name]) > b.maxListeners {
		b.logger.Warn("signal listener count exceeds maxListeners",
			"signal", name,
			"listeners", len(b.subs[name]),
			"max", b.maxListeners)
	}
	return sub
}

// Off removes a subscription. Removing an already-removed subscription is
// a no-op.
func (b *Bus) Off(sub *Subscription) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.subs[sub.name]
	for i, s := range list {
		if s.id == sub.id {
			b.subs[sub.name] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// Emit delivers payload to every handler currently registered for name, in
// registration order. Once-handlers are unregistered before their handler
// runs, so re-entrant emissions cannot deliver to them twice.
func (b *Bus) Emit(name string, payload ...any) {
	b.mu.Lock()

	em := b.fired[name]
	if em == nil {
		em = &emission{first: payload}
		b.fired[name] = em
	}
	em.count++

	list := b.subs[name]
	pending := make([]*Subscription, len(list))
	copy(pending, list)

	remaining := list[:0]
	for _, s := range list {
		if !s.once {
			remaining = append(remaining, s)
		}
	}
	b.subs[name] = remaining
	b.mu.Unlock()

	for _, s := range pending {
		s.fn(payload...)
	}
}

// Fired reports whether name has been emitted at least once, returning the
// payload of the first emission.
func (b *Bus) Fired(name string) ([]any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if em, ok := b.fired[name]; ok {
		return em.first, true
	}
	return nil, false
}

// Await arranges for fn to be called exactly once with the first payload of
// name: immediately if name has already fired, otherwise on its next
// emission. The fired check and the registration happen under one lock, so
// an emission can never slip between them.
func (b *Bus) Await(name string, fn func(payload []any)) {
	b.mu.Lock()
	if em, ok := b.fired[name]; ok {
		first := em.first
		b.mu.Unlock()
		fn(first)
		return
	}

	b.nextID++
	sub := &Subscription{
		id:   b.nextID,
		name: name,
		once: true,
		fn: func(payload ...any) {
			fn(payload)
		},
	}
	b.subs[name] = append(b.subs[name], sub)
	b.mu.Unlock()
}
