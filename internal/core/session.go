package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"recordcore/pkg/domain"
)

// ErrSaveInFlight is returned when a save is requested while a prior save is
// still submitting.
var ErrSaveInFlight = errors.New("save already in flight")

// ErrPersistFailed reports a data service that answered a mutation with a
// failure result rather than a transport error.
var ErrPersistFailed = errors.New("data service reported persist failure")

// Config assembles the collaborators, caller overrides, and instance hooks
// for a Session.
type Config struct {
	Table       string
	Schemas     domain.SchemaService
	Data        domain.DataService
	Permissions domain.PermissionService
	Lookups     domain.LookupService

	// Defaults supplies caller field defaults applied with highest
	// precedence when synthesizing a buffer for a new record.
	Defaults map[string]any

	// CanUpdate and CanCreate, when explicitly set to false, force the
	// corresponding permission off regardless of computed values.
	CanUpdate *bool
	CanCreate *bool

	// PreSave and PostSave are the instance-level hooks configured at
	// construction, distinct from the call-site hooks passed to Save.
	PreSave  domain.Hook
	PostSave domain.PostSaveHook

	Logger  *slog.Logger
	Metrics MetricsRecorder
	Tracer  Tracer
	Now     func() time.Time
}

// Session owns the full lifecycle of editing one record: loading schema and
// data, tracking edits, validating, saving, and fanning out notifications.
// A session is reusable across many load/edit/save cycles.
type Session struct {
	cfg Config

	mu         sync.Mutex
	state      State
	pending    domain.Snapshot
	hasPending bool
	listeners  []listenerEntry
	views      []domain.DependentView
	required   map[string]struct{}
}

type listenerEntry struct {
	event    domain.EventName
	listener domain.Listener
}

// NewSession constructs a session for the configured table.
func NewSession(cfg Config) *Session {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Session{
		cfg:      cfg,
		state:    NewState(cfg.Table),
		required: make(map[string]struct{}),
	}
}

func (s *Session) dispatch(a Action) {
	s.mu.Lock()
	s.state = Reduce(s.state, a)
	s.mu.Unlock()
}

// State returns a copy of the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Schema returns the currently resolved schema.
func (s *Session) Schema() domain.Schema {
	return s.State().Schema
}

// Snapshot returns the current snapshot, nil for a new record.
func (s *Session) Snapshot() domain.Snapshot {
	return s.State().Snapshot.Clone()
}

// Buffer returns a copy of the live edit buffer.
func (s *Session) Buffer() domain.EditBuffer {
	return s.State().Buffer.Clone()
}

// Phase returns the current lifecycle phase.
func (s *Session) Phase() domain.Phase {
	return s.State().Phase
}

// Operation reports whether a save would create or update.
func (s *Session) Operation() domain.Operation {
	return s.State().Operation()
}

// Messages returns the current validation messages.
func (s *Session) Messages() []domain.ValidationMessage {
	return cloneMessages(s.State().Messages)
}

// CanUpdate reports the effective update permission.
func (s *Session) CanUpdate() bool {
	return s.State().CanUpdate
}

// CanCreate reports the effective create permission.
func (s *Session) CanCreate() bool {
	return s.State().CanCreate
}

// Readable reports the record readability state and message.
func (s *Session) Readable() domain.Readability {
	return s.State().Readable
}

// IsLoading reports whether a load is in progress.
func (s *Session) IsLoading() bool {
	return s.Phase() == domain.PhaseLoading
}

// IsSubmitting reports whether a save is in progress.
func (s *Session) IsSubmitting() bool {
	return s.Phase() == domain.PhaseSubmitting
}

// IsDirty with no arguments reports whether any field has been edited; with
// a name it reports that field's membership in the dirty set.
func (s *Session) IsDirty(name ...string) bool {
	field := ""
	if len(name) > 0 {
		field = name[0]
	}
	return s.State().IsDirty(field)
}

// SetField overwrites the named buffer entry and marks it dirty. Re-setting
// an already-dirty field is idempotent with respect to the dirty set.
func (s *Session) SetField(name string, value any) {
	s.dispatch(FieldChanged{Name: name, Value: value})
}

// SetFieldError appends a single ad-hoc validation message outside the
// regular validation pass.
func (s *Session) SetFieldError(field, message string) {
	s.dispatch(MessageAppended{Message: domain.ValidationMessage{Field: field, Message: message}})
}

// On registers a listener for the named event. Registration is append-only
// and never deduplicated; listeners live for the session's lifetime and are
// invoked in registration order.
func (s *Session) On(event domain.EventName, listener domain.Listener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, listenerEntry{event: event, listener: listener})
	s.mu.Unlock()
}

// AddDependentView registers a view to refresh when the record changes. A
// view sharing the key of an existing registration replaces it, so stale
// refresh capabilities are never invoked.
func (s *Session) AddDependentView(view domain.DependentView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.views {
		if existing.Key() == view.Key() {
			s.views[i] = view
			return
		}
	}
	s.views = append(s.views, view)
}

// AddRequiredField marks a field required regardless of schema. Idempotent.
func (s *Session) AddRequiredField(name string) {
	s.mu.Lock()
	s.required[name] = struct{}{}
	s.mu.Unlock()
}

// RemoveRequiredField drops a dynamic required-field override. Idempotent.
func (s *Session) RemoveRequiredField(name string) {
	s.mu.Lock()
	delete(s.required, name)
	s.mu.Unlock()
}

// RequiredFields returns the sorted dynamic required-field overrides.
func (s *Session) RequiredFields() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.required))
	for name := range s.required {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (s *Session) requiredSet() map[string]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]struct{}, len(s.required))
	for name := range s.required {
		out[name] = struct{}{}
	}
	return out
}

func (s *Session) listenersFor(event domain.EventName) []domain.Listener {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Listener
	for _, entry := range s.listeners {
		if entry.event == event {
			out = append(out, entry.listener)
		}
	}
	return out
}

// RefreshDependentViews invokes refresh on every registered view in
// registration order.
func (s *Session) RefreshDependentViews() {
	s.mu.Lock()
	views := make([]domain.DependentView, len(s.views))
	copy(views, s.views)
	s.mu.Unlock()
	for _, view := range views {
		view.Refresh()
	}
}

func (s *Session) now() time.Time {
	if s.cfg.Now != nil {
		return s.cfg.Now()
	}
	return time.Now()
}

// instrument wraps an operation with tracing and metrics.
func (s *Session) instrument(ctx context.Context, operation string, fn func(context.Context) error) error {
	start := time.Now()
	var span TraceSpan
	if s.cfg.Tracer != nil {
		ctx, span = s.cfg.Tracer.Start(ctx, operation)
	}
	err := fn(ctx)
	if span != nil {
		span.End(err)
	}
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.Observe(ctx, operation, err == nil, time.Since(start))
	}
	return err
}

// LoadOptions controls one load cycle.
type LoadOptions struct {
	// Schema supplies an already-resolved schema, skipping the fetch.
	Schema *domain.Schema
	// Snapshot supplies an externally resolved record, skipping the read.
	Snapshot domain.Snapshot
	// RecordID selects the record to read when no snapshot is supplied.
	RecordID string
	// IsRefresh re-reads the current record without re-entering the
	// loading phase (unless ForceLoadingIndicator is set).
	IsRefresh bool
	// RefreshDependentViews refreshes registered views before the load
	// finalizes, so list views repaint in lockstep with record readiness.
	RefreshDependentViews bool
	// ForceLoadingIndicator enters the loading phase even on refresh.
	ForceLoadingIndicator bool
}

// Load sequences schema retrieval, record retrieval, permission resolution,
// and buffer synthesis into one ready state. A transport failure aborts the
// load with an error and without further transitions; a failed refresh
// therefore leaves the session in the loading phase, which callers can
// observe through the returned error and Phase.
func (s *Session) Load(ctx context.Context, opts LoadOptions) error {
	if s.cfg.Table == "" {
		return nil
	}
	return s.instrument(ctx, "load", func(ctx context.Context) error {
		return s.load(ctx, opts)
	})
}

func (s *Session) load(ctx context.Context, opts LoadOptions) error {
	table := s.cfg.Table
	synth := Synthesizer{Now: s.cfg.Now, Defaults: s.cfg.Defaults}

	if !opts.IsRefresh || opts.ForceLoadingIndicator {
		provisional := synth.Buffer(s.State().Schema, nil)
		s.dispatch(LoadBegan{Provisional: provisional})
	}

	schema := s.State().Schema
	if opts.Schema != nil {
		schema = *opts.Schema
	} else {
		fetched, err := s.cfg.Schemas.FetchSchema(ctx, table)
		if err != nil {
			s.cfg.Logger.Error("schema fetch failed", "table", table, "error", err)
			return fmt.Errorf("fetch schema %s: %w", table, err)
		}
		schema = fetched
	}

	snapshot := opts.Snapshot
	canUpdate := true
	readable := domain.Readability{CanRead: true}
	if snapshot == nil && (opts.RecordID != "" || opts.IsRefresh) {
		id := opts.RecordID
		if id == "" {
			id = s.State().Snapshot.ID()
		}
		result, err := s.cfg.Data.Read(ctx, table, domain.ReadQuery{
			Fields:     fieldNames(schema),
			Page:       1,
			MaxResults: 1,
			ID:         id,
		})
		if err != nil {
			s.cfg.Logger.Error("record read failed", "table", table, "id", id, "error", err)
			return fmt.Errorf("read %s %s: %w", table, id, err)
		}
		if !result.Succeeded {
			return fmt.Errorf("read %s %s: service reported failure", table, id)
		}
		if len(result.Results) == 0 {
			readable = domain.Readability{
				CanRead: false,
				Message: fmt.Sprintf("The requested %s record could not be read.", table),
			}
		} else {
			snapshot = result.Results[0]
			if meta, ok := snapshot.Meta(); ok {
				canUpdate = meta.CanUpdate
			}
		}
	} else if snapshot != nil {
		if meta, ok := snapshot.Meta(); ok {
			canUpdate = meta.CanUpdate
		}
	}
	if s.cfg.CanUpdate != nil && !*s.cfg.CanUpdate {
		canUpdate = false
	}

	canCreate := true
	if s.cfg.Permissions != nil {
		level, err := s.cfg.Permissions.CreatePermission(ctx, table)
		if err != nil {
			return fmt.Errorf("resolve create permission %s: %w", table, err)
		}
		canCreate = level.Allows()
	}
	if s.cfg.CanCreate != nil && !*s.cfg.CanCreate {
		canCreate = false
	}

	if opts.RefreshDependentViews {
		s.RefreshDependentViews()
	}

	buffer := synth.Buffer(schema, snapshot)
	if snapshot == nil {
		if err := s.warmLookupDefaults(ctx, schema); err != nil {
			return err
		}
	}

	s.dispatch(LoadCompleted{
		Schema:    schema,
		Snapshot:  snapshot,
		Buffer:    buffer,
		CanUpdate: canUpdate,
		CanCreate: canCreate,
		Readable:  readable,
	})
	s.cfg.Logger.Debug("record loaded", "table", table, "operation", string(s.Operation()), "can_read", readable.CanRead)

	s.drainPendingSnapshot()
	return nil
}

// warmLookupDefaults resolves and caches display labels for lookup fields
// that carry a caller default, so the buffer is complete before it is
// considered ready.
func (s *Session) warmLookupDefaults(ctx context.Context, schema domain.Schema) error {
	if s.cfg.Lookups == nil || len(s.cfg.Defaults) == 0 {
		return nil
	}
	for _, f := range schema.Fields {
		if f.Type != domain.FieldTypeLookup {
			continue
		}
		id, ok := s.cfg.Defaults[f.Name].(string)
		if !ok || id == "" {
			continue
		}
		if _, err := s.cfg.Lookups.ResolveLabel(ctx, f.Name, f.LookupTable, f.LookupNameField, id); err != nil {
			return fmt.Errorf("resolve lookup label %s: %w", f.Name, err)
		}
	}
	return nil
}

// AssignSnapshot replaces the current snapshot and re-synthesizes the edit
// buffer. When the schema is not yet known the snapshot is parked in a
// single pending slot (latest wins) and replayed exactly once after the
// next load completes.
func (s *Session) AssignSnapshot(snapshot domain.Snapshot) {
	s.mu.Lock()
	if !s.state.Schema.Known() {
		s.pending = snapshot
		s.hasPending = true
		s.mu.Unlock()
		return
	}
	schema := s.state.Schema
	canUpdate := s.state.CanUpdate
	s.mu.Unlock()

	if meta, ok := snapshot.Meta(); ok {
		canUpdate = meta.CanUpdate
	}
	if s.cfg.CanUpdate != nil {
		canUpdate = *s.cfg.CanUpdate
	}
	synth := Synthesizer{Now: s.cfg.Now, Defaults: s.cfg.Defaults}
	s.dispatch(SnapshotAssigned{
		Snapshot:  snapshot,
		Buffer:    synth.Buffer(schema, snapshot),
		CanUpdate: canUpdate,
	})
}

func (s *Session) drainPendingSnapshot() {
	s.mu.Lock()
	if !s.hasPending {
		s.mu.Unlock()
		return
	}
	snapshot := s.pending
	s.pending = nil
	s.hasPending = false
	s.mu.Unlock()
	s.AssignSnapshot(snapshot)
}

func fieldNames(schema domain.Schema) []string {
	names := make([]string, 0, len(schema.Fields))
	for _, f := range schema.Fields {
		names = append(names, f.Name)
	}
	return names
}
