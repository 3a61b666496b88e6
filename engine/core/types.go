package core

import "maps"

// -----------------------------------------------------------------------------
// Input / Output
// -----------------------------------------------------------------------------

// Input is the caller-supplied value map for a workflow run or a tool call.
type Input map[string]any

// Output is the named value record produced by a step, a tool, or a whole run.
type Output map[string]any

func (i Input) Get(key string) (any, bool) {
	v, ok := i[key]
	return v, ok
}

func (i Input) Copy() Input {
	if i == nil {
		return nil
	}
	out := make(Input, len(i))
	maps.Copy(out, i)
	return out
}

func (o Output) Copy() Output {
	if o == nil {
		return nil
	}
	out := make(Output, len(o))
	maps.Copy(out, o)
	return out
}

// -----------------------------------------------------------------------------
// Workflow Status
// -----------------------------------------------------------------------------

// StatusType is the lifecycle status of a workflow. Transitions are owned by
// the orchestrator: draft -> running -> {completed | failed}.
type StatusType string

const (
	StatusDraft     StatusType = "draft"
	StatusRunning   StatusType = "running"
	StatusCompleted StatusType = "completed"
	StatusFailed    StatusType = "failed"
)

func (s StatusType) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is allowed from s.
func (s StatusType) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}
