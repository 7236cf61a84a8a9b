package signal

import "sync"

// Requirement is one element of an After wait list: a single signal name or
// an alternative-group of names, any one of which satisfies the element.
type Requirement struct {
	names []string
}

// Req builds a single-name requirement.
func Req(name string) Requirement {
	return Requirement{names: []string{name}}
}

// AnyOf builds an alternative-group requirement satisfied by whichever of
// the named signals fires first. An empty group is trivially satisfied.
func AnyOf(names ...string) Requirement {
	return Requirement{names: names}
}

// Names returns the signal names in this requirement.
func (r Requirement) Names() []string {
	return r.names
}

// Reqs normalizes a list of bare signal names into single-name requirements.
func Reqs(names ...string) []Requirement {
	reqs := make([]Requirement, len(names))
	for i, name := range names {
		reqs[i] = Req(name)
	}
	return reqs
}

// pendingWait is one After call in flight: the per-slot results, which
// slots are already satisfied, and how many remain. It is destroyed (left
// for collection) once resolved.
type pendingWait struct {
	mu        sync.Mutex
	remaining int
	satisfied []bool
	results   [][]any
	ch        chan [][]any
}

// satisfy records the first-arriving payload for slot i. A slot is
// satisfied at most once; later signals for the same slot are ignored.
func (w *pendingWait) satisfy(i int, payload []any) {
	w.mu.Lock()
	if w.satisfied[i] {
		w.mu.Unlock()
		return
	}
	w.satisfied[i] = true
	w.results[i] = payload
	w.remaining--
	done := w.remaining == 0
	w.mu.Unlock()

	if done {
		w.ch <- w.results
	}
}

// After resolves once every requirement has been satisfied at least once.
//
// The returned channel receives exactly one value: an array whose i-th slot
// holds the payload of whichever signal in requirement i fired first.
// Signals that fired before the call count. Zero requirements resolve
// immediately. Each call is an independent wait; overlapping After calls
// over the same names never share state, and a single emission satisfies a
// slot at most once even when the slot's group lists the emitted name more
// than once.
//
// The channel is buffered, so resolution never blocks the emitter.
func (b *Bus) After(reqs ...Requirement) <-chan [][]any {
	ch := make(chan [][]any, 1)

	if len(reqs) == 0 {
		ch <- nil
		return ch
	}

	w := &pendingWait{
		remaining: len(reqs),
		satisfied: make([]bool, len(reqs)),
		results:   make([][]any, len(reqs)),
		ch:        ch,
	}

	for i, req := range reqs {
		if len(req.names) == 0 {
			w.satisfy(i, nil)
			continue
		}
		for _, name := range req.names {
			slot := i
			b.Await(name, func(payload []any) {
				w.satisfy(slot, payload)
			})
		}
	}

	return ch
}

// OnceAny resolves with the first payload of a single signal, counting an
// emission that happened before the call. Subsequent emissions do not
// re-fire.
func (b *Bus) OnceAny(name string) <-chan []any {
	ch := make(chan []any, 1)
	b.Await(name, func(payload []any) {
		ch <- payload
	})
	return ch
}
