package review

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// State and event identifiers for the lane machine. They stay untyped so they
// can be used directly as statekit identifiers.
const (
	StateReview   = "review"
	StateArchived = "archived"

	EventArchive   = "archive"
	EventUnarchive = "unarchive"
)

// LifecycleContext carries the specification the guards evaluate.
type LifecycleContext struct {
	Spec Specification
}

// LifecycleMachine drives a specification between the review and archived
// lanes. Archiving is guarded by ComputeArchivalBlockers; unarchiving is not.
type LifecycleMachine struct {
	spec        Specification
	interpreter *statekit.Interpreter[LifecycleContext]
}

// NewLifecycleMachine builds a machine positioned at the lane s currently
// belongs to.
func NewLifecycleMachine(s Specification) (*LifecycleMachine, error) {
	builder := statekit.NewMachine[LifecycleContext]("spec-lifecycle").
		WithInitial(statekit.StateID(LaneOf(s))).
		WithContext(LifecycleContext{Spec: s}).
		WithGuard("archivable", func(ctx LifecycleContext, e statekit.Event) bool {
			return IsArchivable(ctx.Spec)
		})

	builder.State(StateReview).
		On(EventArchive).Target(StateArchived).Guard("archivable").
		Done()

	builder.State(StateArchived).
		On(EventUnarchive).Target(StateReview).
		Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build lifecycle machine: %w", err)
	}

	interpreter := statekit.NewInterpreter(machine)
	interpreter.Start()

	return &LifecycleMachine{spec: s, interpreter: interpreter}, nil
}

// Transition sends event to the machine. A refused archive reports its
// blockers; any other refusal is a *TransitionError.
func (m *LifecycleMachine) Transition(event string) error {
	before := m.Current()
	m.interpreter.Send(statekit.Event{Type: statekit.EventType(event)})
	if m.Current() != before {
		return nil
	}

	if event == EventArchive && before == LaneReview {
		return &ArchivalBlockedError{SpecID: m.spec.ID, Blockers: ComputeArchivalBlockers(m.spec)}
	}
	return &TransitionError{SpecID: m.spec.ID, From: before, Event: event}
}

// Current returns the lane the machine is in.
func (m *LifecycleMachine) Current() Lane {
	return Lane(m.interpreter.State().Value)
}
