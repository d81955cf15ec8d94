// Package core implements the record editing engine: a pure state container
// driven by discrete actions, the default/edit-buffer synthesizer, the
// schema-derived validator, and the session that orchestrates load and save
// against external collaborators.
package core

import "recordcore/pkg/domain"

// State is the authoritative in-memory state of one record editing session.
// Transitions are produced exclusively by Reduce; callers treat values as
// immutable.
type State struct {
	Table     string
	Schema    domain.Schema
	Snapshot  domain.Snapshot
	Buffer    domain.EditBuffer
	Dirty     map[string]struct{}
	Messages  []domain.ValidationMessage
	Phase     domain.Phase
	CanUpdate bool
	CanCreate bool
	Readable  domain.Readability
}

// NewState returns the initial state for a table.
func NewState(table string) State {
	return State{
		Table:     table,
		Phase:     domain.PhaseUninitialized,
		CanUpdate: true,
		CanCreate: true,
		Readable:  domain.Readability{CanRead: true},
	}
}

// Operation reports the persistence operation a save would perform.
func (s State) Operation() domain.Operation {
	if s.Snapshot == nil {
		return domain.OperationCreate
	}
	return domain.OperationUpdate
}

// IsDirty reports whether any field, or the named field, has been mutated
// since the buffer was last replaced.
func (s State) IsDirty(name string) bool {
	if name == "" {
		return len(s.Dirty) > 0
	}
	_, ok := s.Dirty[name]
	return ok
}

// Action is a discrete transition message accepted by Reduce.
type Action interface {
	isAction()
}

// LoadBegan transitions to the loading phase with a provisional buffer
// synthesized from already-known schema so consumers never observe an empty
// record mid-load.
type LoadBegan struct {
	Provisional domain.EditBuffer
}

// LoadCompleted publishes the fully resolved state of a load.
type LoadCompleted struct {
	Schema    domain.Schema
	Snapshot  domain.Snapshot
	Buffer    domain.EditBuffer
	CanUpdate bool
	CanCreate bool
	Readable  domain.Readability
}

// SnapshotAssigned replaces the snapshot and buffer wholesale after an
// external snapshot assignment.
type SnapshotAssigned struct {
	Snapshot  domain.Snapshot
	Buffer    domain.EditBuffer
	CanUpdate bool
}

// FieldChanged records one user edit.
type FieldChanged struct {
	Name  string
	Value any
}

// MessagesReplaced replaces the validation message set wholesale.
type MessagesReplaced struct {
	Messages []domain.ValidationMessage
}

// MessageAppended appends a single ad-hoc validation message, e.g. a
// server-side validation error echoed back by an external validator.
type MessageAppended struct {
	Message domain.ValidationMessage
}

// SubmitBegan transitions to the submitting phase.
type SubmitBegan struct{}

// SubmitCompleted returns to ready after persistence finished, successfully
// or not.
type SubmitCompleted struct{}

// SubmitCancelled records an intentional abort signalled by a hook or
// listener. The buffer and dirty set are left untouched so the user can
// correct input and retry.
type SubmitCancelled struct{}

func (LoadBegan) isAction()        {}
func (LoadCompleted) isAction()    {}
func (SnapshotAssigned) isAction() {}
func (FieldChanged) isAction()     {}
func (MessagesReplaced) isAction() {}
func (MessageAppended) isAction()  {}
func (SubmitBegan) isAction()      {}
func (SubmitCompleted) isAction()  {}
func (SubmitCancelled) isAction()  {}

// Reduce applies an action to a state, returning the successor state. It is
// pure and side-effect free; all I/O lives in the session orchestrators.
func Reduce(s State, a Action) State {
	switch act := a.(type) {
	case LoadBegan:
		s.Phase = domain.PhaseLoading
		s.Buffer = act.Provisional
		s.Dirty = nil
		s.Messages = nil
	case LoadCompleted:
		s.Phase = domain.PhaseReady
		s.Schema = act.Schema
		s.Snapshot = act.Snapshot
		s.Buffer = act.Buffer
		s.Dirty = nil
		s.Messages = nil
		s.CanUpdate = act.CanUpdate
		s.CanCreate = act.CanCreate
		s.Readable = act.Readable
	case SnapshotAssigned:
		s.Phase = domain.PhaseReady
		s.Snapshot = act.Snapshot
		s.Buffer = act.Buffer
		s.Dirty = nil
		s.Messages = nil
		s.CanUpdate = act.CanUpdate
	case FieldChanged:
		buffer := s.Buffer.Clone()
		if buffer == nil {
			buffer = domain.EditBuffer{}
		}
		buffer[act.Name] = act.Value
		s.Buffer = buffer
		dirty := make(map[string]struct{}, len(s.Dirty)+1)
		for k := range s.Dirty {
			dirty[k] = struct{}{}
		}
		dirty[act.Name] = struct{}{}
		s.Dirty = dirty
	case MessagesReplaced:
		s.Messages = cloneMessages(act.Messages)
	case MessageAppended:
		messages := cloneMessages(s.Messages)
		s.Messages = append(messages, act.Message)
	case SubmitBegan:
		s.Phase = domain.PhaseSubmitting
	case SubmitCompleted:
		s.Phase = domain.PhaseReady
	case SubmitCancelled:
		s.Phase = domain.PhaseSubmitCancelled
	}
	return s
}

func cloneMessages(messages []domain.ValidationMessage) []domain.ValidationMessage {
	if messages == nil {
		return nil
	}
	out := make([]domain.ValidationMessage, len(messages))
	copy(out, messages)
	return out
}
