package domain

import "context"

// ReadQuery narrows a data service read.
type ReadQuery struct {
	Fields     []string
	Page       int
	MaxResults int
	ID         string
}

// ReadResult is the outcome of a read call. A transport-level rejection is
// reported through the error return of Read; Succeeded false mirrors a
// service-level failure response.
type ReadResult struct {
	Succeeded bool
	Results   []Snapshot
}

// MutationResult is the outcome of a create or update call. Data echoes the
// persisted record including its identifier field.
type MutationResult struct {
	Succeeded bool
	Data      map[string]any
}

// SchemaService resolves table schemas.
type SchemaService interface {
	FetchSchema(ctx context.Context, table string) (Schema, error)
}

// DataService performs record reads and create/update persistence.
type DataService interface {
	Read(ctx context.Context, table string, query ReadQuery) (ReadResult, error)
	Create(ctx context.Context, table string, fields map[string]any, parameters map[string]any) (MutationResult, error)
	Update(ctx context.Context, table string, fields map[string]any, parameters map[string]any) (MutationResult, error)
}

// PermissionService resolves create permission per table. Only GrantNone
// disables creation.
type PermissionService interface {
	CreatePermission(ctx context.Context, table string) (GrantLevel, error)
}

// LookupService resolves the display label for a lookup field value.
// Implementations are expected to cache resolved labels.
type LookupService interface {
	ResolveLabel(ctx context.Context, field, lookupTable, displayField, id string) (string, error)
}

// DependentView is an external list view that must refresh when the record
// changes. Key identifies the view so re-registrations replace stale
// capabilities instead of duplicating them.
type DependentView interface {
	Key() string
	Refresh()
}
