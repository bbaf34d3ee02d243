// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

// EventKind tags a progress event.
type EventKind string

// Event kinds in the order a run can emit them.
const (
	EventRunStarted  EventKind = "run_started"
	EventStepStarted EventKind = "step_started"
	EventStepDone    EventKind = "step_done"
	EventTotalSteps  EventKind = "total_steps"
	EventFinished    EventKind = "finished"
	EventStopped     EventKind = "stopped"
	EventFailed      EventKind = "failed"
)

// Event is one progress notification. Only the fields of its kind are set:
// Step and Done for step events, Total for total_steps, Dir for finished,
// Message and Err for failed.
//
// Progress units are the step_done events that follow total_steps; there
// are exactly Total of them in a completed run.
type Event struct {
	Kind    EventKind
	Step    string
	Done    bool
	Total   int
	Dir     string
	Message string
	Err     error
}

// Observer receives events on the run's goroutine, in execution order.
// Notify must not call Run.
type Observer interface {
	Notify(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// Notify calls f.
func (f ObserverFunc) Notify(e Event) { f(e) }

// ChannelObserver sends every event on the channel, blocking until it is
// received. The owner closes the channel after Run returns.
type ChannelObserver chan<- Event

// Notify sends e.
func (c ChannelObserver) Notify(e Event) { c <- e }

type nopObserver struct{}

func (nopObserver) Notify(Event) {}
