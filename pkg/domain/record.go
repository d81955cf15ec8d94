package domain

// Snapshot is the last known persisted representation of a record. A nil
// snapshot signifies a new record. Snapshots are replaced wholesale, never
// patched field by field.
type Snapshot map[string]any

// ID returns the record identifier carried by the snapshot, if any.
func (s Snapshot) ID() string {
	if s == nil {
		return ""
	}
	if id, ok := s[FieldID].(string); ok {
		return id
	}
	return ""
}

// Meta extracts the embedded per-record permission flags, reporting whether
// the snapshot carried them.
func (s Snapshot) Meta() (RecordMeta, bool) {
	if s == nil {
		return RecordMeta{}, false
	}
	return metaValue(s[MetaKey])
}

// Clone returns a shallow copy of the snapshot map.
func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return nil
	}
	out := make(Snapshot, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// RecordMeta carries per-record permission flags under MetaKey.
type RecordMeta struct {
	CanUpdate bool `json:"canUpdate"`
	CanDelete bool `json:"canDelete"`
}

// metaValue coerces the reserved meta entry from either the typed form or
// the generic map form produced by JSON decoding.
func metaValue(v any) (RecordMeta, bool) {
	switch m := v.(type) {
	case RecordMeta:
		return m, true
	case *RecordMeta:
		if m != nil {
			return *m, true
		}
	case map[string]any:
		meta := RecordMeta{}
		if b, ok := m["canUpdate"].(bool); ok {
			meta.CanUpdate = b
		}
		if b, ok := m["canDelete"].(bool); ok {
			meta.CanDelete = b
		}
		return meta, true
	}
	return RecordMeta{}, false
}

// EditBuffer is the live editable record object keyed by field name. Values
// are constrained to string, bool, float64, or nil, plus the reserved
// MetaKey entry holding a RecordMeta.
type EditBuffer map[string]any

// Clone returns a shallow copy of the buffer.
func (b EditBuffer) Clone() EditBuffer {
	if b == nil {
		return nil
	}
	out := make(EditBuffer, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Meta returns the reserved permission entry, defaulting to a fully
// permissive record when absent.
func (b EditBuffer) Meta() RecordMeta {
	if meta, ok := metaValue(b[MetaKey]); ok {
		return meta
	}
	return RecordMeta{CanUpdate: true, CanDelete: true}
}

// Fields returns a copy of the buffer without the reserved meta entry,
// suitable for submission to a data service.
func (b EditBuffer) Fields() map[string]any {
	out := make(map[string]any, len(b))
	for k, v := range b {
		if k == MetaKey {
			continue
		}
		out[k] = v
	}
	return out
}

// Phase is the lifecycle phase of a record editing session.
type Phase string

// Lifecycle phases. Ready is re-entered after every completed submit; there
// is no terminal phase.
const (
	PhaseUninitialized   Phase = "uninitialized"
	PhaseLoading         Phase = "loading"
	PhaseReady           Phase = "ready"
	PhaseSubmitting      Phase = "submitting"
	PhaseSubmitCancelled Phase = "submit_cancelled"
)

// Operation is the persistence operation a save would perform.
type Operation string

// Computed operation kinds: create when no snapshot exists, update otherwise.
const (
	OperationCreate Operation = "CREATE"
	OperationUpdate Operation = "UPDATE"
)

// SaveOutcome labels the result reported to post-save notification channels.
type SaveOutcome string

// Save outcomes delivered to post-save hooks and listeners.
const (
	OutcomeCreate SaveOutcome = "CREATE"
	OutcomeUpdate SaveOutcome = "UPDATE"
	OutcomeFailed SaveOutcome = "FAILED"
)

// ValidationMessage reports one validation finding for a field.
type ValidationMessage struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Readability is the first-class missing-record state: a record that could
// not be read along with a user-facing message.
type Readability struct {
	CanRead bool   `json:"can_read"`
	Message string `json:"message,omitempty"`
}

// GrantLevel is the permission tier returned by the permission collaborator.
type GrantLevel string

// GrantNone is the sole grant level that disables an operation.
const GrantNone GrantLevel = "NONE"

// Allows reports whether the grant level permits the operation.
func (g GrantLevel) Allows() bool {
	return g != GrantNone
}
