package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/biosphere/core"
)

// EventType identifies the lifecycle point an Observer is notified about.
type EventType string

const (
	// EventBirth fires after an agent was admitted and its receptor embedding cached.
	EventBirth EventType = "birth"

	// EventDeath fires after an agent and everything keyed by its id was removed.
	EventDeath EventType = "death"

	// EventIntervention fires after the stagnation intervention was broadcast.
	EventIntervention EventType = "intervention"

	// EventTick fires after a tick completed, before its snapshot is published.
	EventTick EventType = "tick"
)

// Event carries the details of a lifecycle notification.
type Event struct {
	Type EventType
	Tick int

	// Agent is set for birth and death events.
	Agent core.AgentInfo

	// Reason explains why an agent was born ("seed", "helper", "bridge",
	// "manual") or died.
	Reason string

	// Signal is set for interventions.
	Signal *core.Signal

	// Snapshot is set for tick events.
	Snapshot *Snapshot
}

// Observer is notified synchronously at lifecycle points. Observers must not
// call back into Inject; Birth and Death are safe.
//
// An error returned by an observer is logged and never aborts the operation
// that triggered it.
type Observer interface {
	// Type returns the event type this observer handles.
	Type() EventType

	// Observe handles one event.
	Observe(ctx context.Context, ev Event) error
}

// FunctionObserver wraps a plain function as an Observer.
//
// Example:
//
//	births := engine.NewFunctionObserver(engine.EventBirth, func(ctx context.Context, ev engine.Event) error {
//	    fmt.Println("born:", ev.Agent.Name)
//	    return nil
//	})
type FunctionObserver struct {
	eventType EventType
	fn        func(ctx context.Context, ev Event) error
}

var _ Observer = (*FunctionObserver)(nil)

// NewFunctionObserver creates an observer calling fn for eventType.
func NewFunctionObserver(eventType EventType, fn func(ctx context.Context, ev Event) error) *FunctionObserver {
	return &FunctionObserver{eventType: eventType, fn: fn}
}

// Type implements Observer.
func (o *FunctionObserver) Type() EventType { return o.eventType }

// Observe implements Observer.
func (o *FunctionObserver) Observe(ctx context.Context, ev Event) error {
	if o.fn == nil {
		return nil
	}
	return o.fn(ctx, ev)
}

// LoggingObserver formats events and forwards them to a print function.
//
// Example:
//
//	obs := engine.NewLoggingObserver(engine.EventBirth, func(msg string) { log.Print(msg) })
type LoggingObserver struct {
	eventType EventType
	print     func(message string)
}

var _ Observer = (*LoggingObserver)(nil)

// NewLoggingObserver creates a new logging observer.
func NewLoggingObserver(eventType EventType, print func(message string)) *LoggingObserver {
	return &LoggingObserver{eventType: eventType, print: print}
}

// Type implements Observer.
func (o *LoggingObserver) Type() EventType { return o.eventType }

// Observe implements Observer.
func (o *LoggingObserver) Observe(_ context.Context, ev Event) error {
	if o.print == nil {
		return nil
	}

	switch ev.Type {
	case EventBirth, EventDeath:
		o.print(fmt.Sprintf("[%s] tick=%d agent=%s (%s) reason=%s", ev.Type, ev.Tick, ev.Agent.ID, ev.Agent.Name, ev.Reason))
	case EventIntervention:
		o.print(fmt.Sprintf("[%s] tick=%d %s", ev.Type, ev.Tick, ev.Signal.Thought))
	default:
		o.print(fmt.Sprintf("[%s] tick=%d", ev.Type, ev.Tick))
	}

	return nil
}

// observerSet dispatches events to the observers registered for their type,
// in registration order.
type observerSet struct {
	mu        sync.RWMutex
	observers map[EventType][]Observer
}

func newObserverSet(observers []Observer) *observerSet {
	s := &observerSet{observers: make(map[EventType][]Observer)}
	for _, o := range observers {
		s.register(o)
	}
	return s
}

func (s *observerSet) register(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers[o.Type()] = append(s.observers[o.Type()], o)
}

// notify runs every observer for ev.Type and returns their errors.
func (s *observerSet) notify(ctx context.Context, ev Event) []error {
	s.mu.RLock()
	observers := append([]Observer(nil), s.observers[ev.Type]...)
	s.mu.RUnlock()

	var errs []error
	for _, o := range observers {
		if err := o.Observe(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
