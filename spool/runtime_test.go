package spool

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/spoolkit/config"
	"github.com/c360/spoolkit/errors"
	"github.com/c360/spoolkit/signal"
)

// recordingSpool tracks hook invocations and can fail a chosen phase.
type recordingSpool struct {
	Base
	name      string
	lifecycle Lifecycle
	defaults  config.Tree
	failPhase string

	mu    sync.Mutex
	calls []string
}

func (s *recordingSpool) Name() string         { return s.name }
func (s *recordingSpool) Lifecycle() Lifecycle { return s.lifecycle }
func (s *recordingSpool) Defaults() config.Tree {
	return s.defaults
}

func (s *recordingSpool) record(phase string) error {
	s.mu.Lock()
	s.calls = append(s.calls, phase)
	s.mu.Unlock()
	if s.failPhase == phase {
		return fmt.Errorf("%s hook rejected", phase)
	}
	return nil
}

func (s *recordingSpool) Validate(context.Context) error   { return s.record(PhaseValidate) }
func (s *recordingSpool) Configure(context.Context) error  { return s.record(PhaseConfigure) }
func (s *recordingSpool) Initialize(context.Context) error { return s.record(PhaseInitialize) }

func (s *recordingSpool) recorded() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	copy(out, s.calls)
	return out
}

func testDeps(bus *signal.Bus, store *config.Store) Deps {
	return Deps{
		Bus:    bus,
		Store:  store,
		Logger: slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
	}
}

func waitSignal(t *testing.T, bus *signal.Bus, name string) []any {
	t.Helper()
	select {
	case payload := <-bus.OnceAny(name):
		return payload
	case <-time.After(2 * time.Second):
		t.Fatalf("signal %q never fired", name)
		return nil
	}
}

func TestNewRuntimeValidation(t *testing.T) {
	bus := signal.NewBus(nil)
	store := config.NewStore(config.Tree{})

	_, err := NewRuntime(nil, testDeps(bus, store))
	assert.Error(t, err)

	_, err = NewRuntime(&recordingSpool{name: ""}, testDeps(bus, store))
	assert.Error(t, err)

	_, err = NewRuntime(&recordingSpool{name: "s"}, Deps{Store: store})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrMissingApplication)

	_, err = NewRuntime(&recordingSpool{name: "s"}, Deps{Bus: bus})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrMissingApplication)
}

func TestRuntimeFullLifecycle(t *testing.T) {
	bus := signal.NewBus(nil)
	store := config.NewStore(config.Tree{})
	s := &recordingSpool{name: "worker"}

	rt, err := NewRuntime(s, testDeps(bus, store))
	require.NoError(t, err)
	assert.Equal(t, StageRegistered, rt.Stage())

	rt.Arm(context.Background(), func(err error) { t.Errorf("unexpected failure: %v", err) })

	bus.Emit(signal.AppStart)
	payload := waitSignal(t, bus, signal.SpoolValidated("worker"))
	assert.Equal(t, []any{"worker"}, payload)

	bus.Emit(signal.AllValidated)
	waitSignal(t, bus, signal.SpoolConfigured("worker"))

	bus.Emit(signal.AllConfigured)
	waitSignal(t, bus, signal.SpoolInitialized("worker"))

	assert.Eventually(t, func() bool { return rt.Stage() == StageInitialized },
		time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{PhaseValidate, PhaseConfigure, PhaseInitialize}, s.recorded())
}

func TestRuntimeMergesDefaultsAtConfigure(t *testing.T) {
	bus := signal.NewBus(nil)
	store := config.NewStore(config.Tree{"worker": config.Tree{"val": 1}})
	s := &recordingSpool{
		name:     "worker",
		defaults: config.Tree{"val": 0, "otherval": 1},
	}

	rt, _ := NewRuntime(s, testDeps(bus, store))
	rt.Arm(context.Background(), nil)

	bus.Emit(signal.AppStart)
	waitSignal(t, bus, signal.SpoolValidated("worker"))
	bus.Emit(signal.AllValidated)
	waitSignal(t, bus, signal.SpoolConfigured("worker"))

	// User override wins, default fills the gap
	assert.Equal(t, 1, store.Get("worker.val"))
	assert.Equal(t, 1, store.Get("worker.otherval"))
}

func TestRuntimeExtraPrerequisiteGatesPhase(t *testing.T) {
	bus := signal.NewBus(nil)
	store := config.NewStore(config.Tree{})
	s := &recordingSpool{
		name: "dependent",
		lifecycle: Lifecycle{
			Configure: []signal.Requirement{signal.Req("spool:leader:configured")},
		},
	}

	rt, _ := NewRuntime(s, testDeps(bus, store))
	rt.Arm(context.Background(), nil)

	bus.Emit(signal.AppStart)
	waitSignal(t, bus, signal.SpoolValidated("dependent"))
	bus.Emit(signal.AllValidated)

	// The barrier alone must not start configure
	time.Sleep(20 * time.Millisecond)
	assert.NotContains(t, s.recorded(), PhaseConfigure)

	bus.Emit("spool:leader:configured")
	waitSignal(t, bus, signal.SpoolConfigured("dependent"))
}

func TestRuntimeAlternativeGroupPrerequisite(t *testing.T) {
	bus := signal.NewBus(nil)
	store := config.NewStore(config.Tree{})
	s := &recordingSpool{
		name: "flexible",
		lifecycle: Lifecycle{
			Initialize: []signal.Requirement{signal.AnyOf("cache:warm", "cache:skipped")},
		},
	}

	rt, _ := NewRuntime(s, testDeps(bus, store))
	rt.Arm(context.Background(), nil)

	bus.Emit(signal.AppStart)
	waitSignal(t, bus, signal.SpoolValidated("flexible"))
	bus.Emit(signal.AllValidated)
	waitSignal(t, bus, signal.SpoolConfigured("flexible"))
	bus.Emit(signal.AllConfigured)

	time.Sleep(20 * time.Millisecond)
	assert.NotContains(t, s.recorded(), PhaseInitialize)

	bus.Emit("cache:skipped")
	waitSignal(t, bus, signal.SpoolInitialized("flexible"))
}

func TestRuntimeHookFailureIsFatalAndSuppressesSignal(t *testing.T) {
	bus := signal.NewBus(nil)
	store := config.NewStore(config.Tree{})
	s := &recordingSpool{name: "broken", failPhase: PhaseConfigure}

	failed := make(chan error, 1)
	rt, _ := NewRuntime(s, testDeps(bus, store))
	rt.Arm(context.Background(), func(err error) { failed <- err })

	fired := false
	bus.On(signal.SpoolConfigured("broken"), func(...any) { fired = true })

	bus.Emit(signal.AppStart)
	waitSignal(t, bus, signal.SpoolValidated("broken"))
	bus.Emit(signal.AllValidated)

	select {
	case err := <-failed:
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrBootFailed)
		assert.True(t, errors.IsFatal(err))
		assert.Contains(t, err.Error(), "broken")
		assert.Contains(t, err.Error(), PhaseConfigure)
	case <-time.After(2 * time.Second):
		t.Fatal("failure never propagated")
	}

	assert.False(t, fired, "completion signal must not fire for a failed phase")
	assert.Equal(t, StageConfiguring, rt.Stage())
}

func TestRuntimeContextCancellationStopsPhases(t *testing.T) {
	bus := signal.NewBus(nil)
	store := config.NewStore(config.Tree{})
	s := &recordingSpool{name: "cancelled"}

	ctx, cancel := context.WithCancel(context.Background())
	rt, _ := NewRuntime(s, testDeps(bus, store))
	rt.Arm(ctx, nil)

	cancel()
	time.Sleep(20 * time.Millisecond)
	bus.Emit(signal.AppStart)
	time.Sleep(20 * time.Millisecond)

	assert.Empty(t, s.recorded())
	assert.Equal(t, StageRegistered, rt.Stage())
}

type observerRecorder struct {
	mu     sync.Mutex
	events []string
}

func (o *observerRecorder) add(event string) {
	o.mu.Lock()
	o.events = append(o.events, event)
	o.mu.Unlock()
}

func (o *observerRecorder) PhaseStarted(spool, phase string) { o.add("start:" + spool + ":" + phase) }
func (o *observerRecorder) PhaseCompleted(spool, phase string, _ time.Duration) {
	o.add("done:" + spool + ":" + phase)
}
func (o *observerRecorder) PhaseFailed(spool, phase string) { o.add("fail:" + spool + ":" + phase) }
func (o *observerRecorder) StageChanged(spool string, stage Stage) {
	o.add("stage:" + spool + ":" + stage.String())
}

func TestRuntimeNotifiesObserver(t *testing.T) {
	bus := signal.NewBus(nil)
	store := config.NewStore(config.Tree{})
	obs := &observerRecorder{}
	s := &recordingSpool{name: "observed"}

	deps := testDeps(bus, store)
	deps.Observer = obs
	rt, err := NewRuntime(s, deps)
	require.NoError(t, err)
	rt.Arm(context.Background(), nil)

	bus.Emit(signal.AppStart)
	waitSignal(t, bus, signal.SpoolValidated("observed"))

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Contains(t, obs.events, "start:observed:validate")
	assert.Contains(t, obs.events, "done:observed:validate")
	assert.Contains(t, obs.events, "stage:observed:validating")
	assert.Contains(t, obs.events, "stage:observed:validated")
}
