package grader

import (
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type State string

const (
	StateInitialized     State = "initialized"
	StateWorkspaceReady  State = "workspace_ready"
	StateMaterialsStaged State = "materials_staged"
	StateExecuted        State = "executed"
	StateResultsRead     State = "results_read"
	StateDone            State = "done"
	StateFailed          State = "failed"
)

// Forward transitions, Failed is reachable from every non-terminal state
var nextState = map[State]State{
	StateInitialized:     StateWorkspaceReady,
	StateWorkspaceReady:  StateMaterialsStaged,
	StateMaterialsStaged: StateExecuted,
	StateExecuted:        StateResultsRead,
	StateResultsRead:     StateDone,
}

func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Tracks one job through the pipeline, mirroring every transition onto its span and logger
type tracker struct {
	span  trace.Span
	log   *slog.Logger
	state State
}

func newTracker(span trace.Span, log *slog.Logger) *tracker {
	return &tracker{span: span, log: log, state: StateInitialized}
}

func (t *tracker) advance(to State) error {
	if t.state.Terminal() {
		return fmt.Errorf("job already %s", t.state)
	}
	if to != StateFailed && nextState[t.state] != to {
		return fmt.Errorf("invalid transition %s -> %s", t.state, to)
	}

	t.span.AddEvent("state", trace.WithAttributes(
		attribute.String("from", string(t.state)),
		attribute.String("to", string(to)),
	))
	t.log.Debug("job state changed", "from", t.state, "to", to)
	t.state = to
	return nil
}

func (t *tracker) fail(reason string) {
	if t.state.Terminal() {
		return
	}

	t.span.AddEvent("state", trace.WithAttributes(
		attribute.String("from", string(t.state)),
		attribute.String("to", string(StateFailed)),
		attribute.String("reason", reason),
	))
	t.log.Debug("job state changed", "from", t.state, "to", StateFailed, "reason", reason)
	t.state = StateFailed
}
