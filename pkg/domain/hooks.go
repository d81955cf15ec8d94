package domain

import "context"

// HookResult is the tagged outcome of a save hook: proceed, optionally
// contributing persistence parameters, or cancel the save.
type HookResult struct {
	cancelled  bool
	parameters map[string]any
}

// Proceed builds a continuing hook result carrying optional parameters to
// merge into the persistence parameter bag.
func Proceed(parameters map[string]any) HookResult {
	return HookResult{parameters: cloneParams(parameters)}
}

// Cancel builds a cancelling hook result.
func Cancel() HookResult {
	return HookResult{cancelled: true}
}

// Cancelled reports whether the hook asked to abort the save.
func (r HookResult) Cancelled() bool {
	return r.cancelled
}

// Parameters returns a copy of the contributed parameters.
func (r HookResult) Parameters() map[string]any {
	return cloneParams(r.parameters)
}

func cloneParams(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = v
	}
	return out
}

// Hook intercepts a save before persistence. The payload is the submission
// snapshot of the edit buffer.
type Hook func(ctx context.Context, payload EditBuffer) HookResult

// PostSaveHook observes a completed save attempt. On failure it receives
// OutcomeFailed with an empty record id and data map.
type PostSaveHook func(ctx context.Context, outcome SaveOutcome, recordID string, data map[string]any)

// EventName names a listener registration slot.
type EventName string

// Listener event names.
const (
	EventPreSave  EventName = "PRE_SAVE"
	EventPostSave EventName = "POST_SAVE"
)

// SaveEvent is delivered to registered listeners. Pre-save events carry the
// submission payload; post-save events carry the outcome and server data.
type SaveEvent struct {
	Name     EventName
	Table    string
	Payload  EditBuffer
	Outcome  SaveOutcome
	RecordID string
	Data     map[string]any
}

// Listener observes save events in registration order. A pre-save listener
// returning false cancels the save and short-circuits remaining listeners;
// post-save return values are ignored.
type Listener func(ctx context.Context, event SaveEvent) bool
