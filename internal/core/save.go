package core

import (
	"context"
	"fmt"

	"recordcore/pkg/domain"
)

// SaveHooks carries the call-site hooks for one Save invocation, distinct
// from the instance-level hooks configured on the session.
type SaveHooks struct {
	PreValidate domain.Hook
	PreSave     domain.Hook
	PostSave    domain.PostSaveHook
}

// SaveStatus classifies how a save attempt ended.
type SaveStatus string

// Save statuses.
const (
	// SaveStatusSaved means persistence succeeded.
	SaveStatusSaved SaveStatus = "saved"
	// SaveStatusFailed means the data service reported a failure result.
	SaveStatusFailed SaveStatus = "failed"
	// SaveStatusInvalid means validation failed before any network call.
	SaveStatusInvalid SaveStatus = "invalid"
	// SaveStatusCancelled means a hook or listener aborted the save.
	SaveStatusCancelled SaveStatus = "cancelled"
)

// SaveResult reports the outcome of a Save invocation.
type SaveResult struct {
	Status   SaveStatus
	Outcome  domain.SaveOutcome
	RecordID string
	Data     map[string]any
	Messages []domain.ValidationMessage
}

// Save runs the full submit pipeline: pre-validate interception, validation,
// the ordered cancellable pre-save chain (instance hook, PRE_SAVE listeners,
// call-site hook), persistence, and post-save fan-out in the same order.
// Cancellation leaves the edit buffer and dirty set untouched. A save
// requested while another is submitting is rejected with ErrSaveInFlight.
func (s *Session) Save(ctx context.Context, hooks SaveHooks) (SaveResult, error) {
	var result SaveResult
	err := s.instrument(ctx, "save", func(ctx context.Context) error {
		var err error
		result, err = s.save(ctx, hooks)
		return err
	})
	return result, err
}

func (s *Session) save(ctx context.Context, hooks SaveHooks) (SaveResult, error) {
	s.mu.Lock()
	if s.state.Phase == domain.PhaseSubmitting {
		s.mu.Unlock()
		return SaveResult{}, ErrSaveInFlight
	}
	payload := s.state.Buffer.Clone()
	schema := s.state.Schema
	operation := s.state.Operation()
	s.mu.Unlock()

	table := s.cfg.Table
	parameters := map[string]any{}

	if hooks.PreValidate != nil {
		res := hooks.PreValidate(ctx, payload.Clone())
		if res.Cancelled() {
			return SaveResult{Status: SaveStatusCancelled}, nil
		}
		mergeParams(parameters, res.Parameters())
	}

	messages := Validate(schema, payload, s.requiredSet())
	s.dispatch(MessagesReplaced{Messages: messages})
	if len(messages) > 0 {
		return SaveResult{Status: SaveStatusInvalid, Messages: messages}, nil
	}

	s.dispatch(SubmitBegan{})

	cancel := func() (SaveResult, error) {
		s.dispatch(SubmitCancelled{})
		return SaveResult{Status: SaveStatusCancelled}, nil
	}

	if s.cfg.PreSave != nil {
		res := s.cfg.PreSave(ctx, payload.Clone())
		if res.Cancelled() {
			return cancel()
		}
		mergeParams(parameters, res.Parameters())
	}

	preEvent := domain.SaveEvent{Name: domain.EventPreSave, Table: table, Payload: payload.Clone()}
	for _, listener := range s.listenersFor(domain.EventPreSave) {
		if !listener(ctx, preEvent) {
			return cancel()
		}
	}

	if hooks.PreSave != nil {
		res := hooks.PreSave(ctx, payload.Clone())
		if res.Cancelled() {
			return cancel()
		}
		mergeParams(parameters, res.Parameters())
	}

	fields := payload.Fields()
	var mutation domain.MutationResult
	var err error
	if operation == domain.OperationCreate {
		mutation, err = s.cfg.Data.Create(ctx, table, fields, parameters)
	} else {
		mutation, err = s.cfg.Data.Update(ctx, table, fields, parameters)
	}
	if err != nil {
		// Transport exceptions propagate to the caller's error boundary;
		// the session deliberately stays in the submitting phase.
		s.cfg.Logger.Error("persist failed", "table", table, "operation", string(operation), "error", err)
		return SaveResult{}, fmt.Errorf("persist %s: %w", table, err)
	}

	if !mutation.Succeeded {
		s.notifyPostSave(ctx, hooks, domain.OutcomeFailed, "", map[string]any{})
		s.dispatch(SubmitCompleted{})
		s.RefreshDependentViews()
		return SaveResult{Status: SaveStatusFailed, Outcome: domain.OutcomeFailed}, nil
	}

	outcome := domain.OutcomeUpdate
	if operation == domain.OperationCreate {
		outcome = domain.OutcomeCreate
	}
	recordID, _ := mutation.Data[domain.FieldID].(string)
	s.notifyPostSave(ctx, hooks, outcome, recordID, mutation.Data)
	s.dispatch(SubmitCompleted{})
	s.RefreshDependentViews()
	s.cfg.Logger.Info("record saved", "table", table, "outcome", string(outcome), "id", recordID)

	return SaveResult{
		Status:   SaveStatusSaved,
		Outcome:  outcome,
		RecordID: recordID,
		Data:     mutation.Data,
	}, nil
}

// notifyPostSave fans the outcome out to the instance hook, POST_SAVE
// listeners, and the call-site hook, in that order. Return values are
// ignored; each channel fires regardless of the others.
func (s *Session) notifyPostSave(ctx context.Context, hooks SaveHooks, outcome domain.SaveOutcome, recordID string, data map[string]any) {
	if s.cfg.PostSave != nil {
		s.cfg.PostSave(ctx, outcome, recordID, data)
	}
	event := domain.SaveEvent{
		Name:     domain.EventPostSave,
		Table:    s.cfg.Table,
		Outcome:  outcome,
		RecordID: recordID,
		Data:     data,
	}
	for _, listener := range s.listenersFor(domain.EventPostSave) {
		listener(ctx, event)
	}
	if hooks.PostSave != nil {
		hooks.PostSave(ctx, outcome, recordID, data)
	}
}

// SaveSilent persists the current buffer bypassing validation and all hook
// fan-out, returning the raw persisted data.
func (s *Session) SaveSilent(ctx context.Context, parameters map[string]any) (map[string]any, error) {
	var data map[string]any
	err := s.instrument(ctx, "save_silent", func(ctx context.Context) error {
		s.mu.Lock()
		payload := s.state.Buffer.Clone()
		operation := s.state.Operation()
		s.mu.Unlock()

		if parameters == nil {
			parameters = map[string]any{}
		}
		fields := payload.Fields()
		var mutation domain.MutationResult
		var err error
		if operation == domain.OperationCreate {
			mutation, err = s.cfg.Data.Create(ctx, s.cfg.Table, fields, parameters)
		} else {
			mutation, err = s.cfg.Data.Update(ctx, s.cfg.Table, fields, parameters)
		}
		if err != nil {
			return fmt.Errorf("persist %s: %w", s.cfg.Table, err)
		}
		if !mutation.Succeeded {
			return fmt.Errorf("persist %s: %w", s.cfg.Table, ErrPersistFailed)
		}
		data = mutation.Data
		return nil
	})
	return data, err
}

func mergeParams(dst, src map[string]any) {
	for k, v := range src {
		dst[k] = v
	}
}
