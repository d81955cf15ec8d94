// Package memory implements the schema, data, permission, and lookup
// collaborator contracts backed by process memory. It is the default
// backend and the substrate the sqlite and postgres stores snapshot.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"recordcore/pkg/domain"
)

// Service stores schemas, records, and grants in memory.
type Service struct {
	mu      sync.RWMutex
	schemas map[string]domain.Schema
	tables  map[string]map[string]domain.Snapshot
	order   map[string][]string
	grants  map[string]domain.GrantLevel
	newID   func() string
}

// NewService returns an empty in-memory service.
func NewService() *Service {
	return &Service{
		schemas: make(map[string]domain.Schema),
		tables:  make(map[string]map[string]domain.Snapshot),
		order:   make(map[string][]string),
		grants:  make(map[string]domain.GrantLevel),
		newID:   uuid.NewString,
	}
}

// RegisterSchema installs or replaces the schema for its table.
func (s *Service) RegisterSchema(schema domain.Schema) {
	s.mu.Lock()
	s.schemas[schema.Table] = schema.Clone()
	s.mu.Unlock()
}

// SetGrant fixes the create grant level for a table. Unset tables default
// to a full grant.
func (s *Service) SetGrant(table string, level domain.GrantLevel) {
	s.mu.Lock()
	s.grants[table] = level
	s.mu.Unlock()
}

// Seed inserts rows directly, assigning ids and permission metadata where
// missing.
func (s *Service) Seed(table string, rows ...domain.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range rows {
		stored := row.Clone()
		if stored.ID() == "" {
			stored[domain.FieldID] = s.newID()
		}
		if _, ok := stored.Meta(); !ok {
			stored[domain.MetaKey] = domain.RecordMeta{CanUpdate: true, CanDelete: true}
		}
		s.insertLocked(table, stored)
	}
}

func (s *Service) insertLocked(table string, row domain.Snapshot) {
	if s.tables[table] == nil {
		s.tables[table] = make(map[string]domain.Snapshot)
	}
	id := row.ID()
	if _, exists := s.tables[table][id]; !exists {
		s.order[table] = append(s.order[table], id)
	}
	s.tables[table][id] = row
}

// FetchSchema implements domain.SchemaService.
func (s *Service) FetchSchema(_ context.Context, table string) (domain.Schema, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	schema, ok := s.schemas[table]
	if !ok {
		return domain.Schema{}, fmt.Errorf("schema %s not found", table)
	}
	return schema.Clone(), nil
}

// Read implements domain.DataService. Rows are returned in insertion order;
// an id query returns at most one row.
func (s *Service) Read(_ context.Context, table string, query domain.ReadQuery) (domain.ReadResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.tables[table]
	var results []domain.Snapshot
	if query.ID != "" {
		if row, ok := rows[query.ID]; ok {
			results = append(results, projectRow(row, query.Fields))
		}
	} else {
		for _, id := range s.order[table] {
			results = append(results, projectRow(rows[id], query.Fields))
		}
	}
	if query.MaxResults > 0 && len(results) > query.MaxResults {
		results = results[:query.MaxResults]
	}
	return domain.ReadResult{Succeeded: true, Results: results}, nil
}

// projectRow copies a row, narrowing to the requested fields plus the
// identifier and permission metadata.
func projectRow(row domain.Snapshot, fields []string) domain.Snapshot {
	if len(fields) == 0 {
		return row.Clone()
	}
	out := domain.Snapshot{
		domain.FieldID: row[domain.FieldID],
	}
	if meta, ok := row[domain.MetaKey]; ok {
		out[domain.MetaKey] = meta
	}
	for _, name := range fields {
		if v, ok := row[name]; ok {
			out[name] = v
		}
	}
	return out
}

// Create implements domain.DataService, assigning a fresh identifier and
// echoing the stored record.
func (s *Service) Create(_ context.Context, table string, fields map[string]any, _ map[string]any) (domain.MutationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := domain.Snapshot{}
	for k, v := range fields {
		row[k] = v
	}
	row[domain.FieldID] = s.newID()
	row[domain.MetaKey] = domain.RecordMeta{CanUpdate: true, CanDelete: true}
	s.insertLocked(table, row)
	return domain.MutationResult{Succeeded: true, Data: row.Clone()}, nil
}

// Update implements domain.DataService, addressed by the Id field of the
// submitted record. A missing record reports a failed result rather than a
// transport error.
func (s *Service) Update(_ context.Context, table string, fields map[string]any, _ map[string]any) (domain.MutationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, _ := fields[domain.FieldID].(string)
	existing, ok := s.tables[table][id]
	if id == "" || !ok {
		return domain.MutationResult{Succeeded: false}, nil
	}
	row := existing.Clone()
	for k, v := range fields {
		row[k] = v
	}
	s.tables[table][id] = row
	return domain.MutationResult{Succeeded: true, Data: row.Clone()}, nil
}

// CreatePermission implements domain.PermissionService. Unconfigured tables
// get a full grant.
func (s *Service) CreatePermission(_ context.Context, table string) (domain.GrantLevel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if level, ok := s.grants[table]; ok {
		return level, nil
	}
	return domain.GrantLevel("FULL"), nil
}

// ResolveLabel implements domain.LookupService by reading the referenced
// row's display field.
func (s *Service) ResolveLabel(ctx context.Context, _, lookupTable, displayField, id string) (string, error) {
	result, err := s.Read(ctx, lookupTable, domain.ReadQuery{ID: id, MaxResults: 1})
	if err != nil {
		return "", err
	}
	if len(result.Results) == 0 {
		return "", fmt.Errorf("lookup %s %s not found", lookupTable, id)
	}
	label, _ := result.Results[0][displayField].(string)
	return label, nil
}

// State is the serializable dump of the service used by durable wrappers.
type State struct {
	Schemas map[string]domain.Schema              `json:"schemas"`
	Tables  map[string]map[string]domain.Snapshot `json:"tables"`
	Order   map[string][]string                   `json:"order"`
	Grants  map[string]domain.GrantLevel          `json:"grants"`
}

// ExportState returns a deep copy of the current contents.
func (s *Service) ExportState() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state := State{
		Schemas: make(map[string]domain.Schema, len(s.schemas)),
		Tables:  make(map[string]map[string]domain.Snapshot, len(s.tables)),
		Order:   make(map[string][]string, len(s.order)),
		Grants:  make(map[string]domain.GrantLevel, len(s.grants)),
	}
	for table, schema := range s.schemas {
		state.Schemas[table] = schema.Clone()
	}
	for table, rows := range s.tables {
		cpy := make(map[string]domain.Snapshot, len(rows))
		for id, row := range rows {
			cpy[id] = row.Clone()
		}
		state.Tables[table] = cpy
	}
	for table, ids := range s.order {
		cpy := make([]string, len(ids))
		copy(cpy, ids)
		state.Order[table] = cpy
	}
	for table, level := range s.grants {
		state.Grants[table] = level
	}
	return state
}

// ImportState replaces the current contents with state. Nil maps are
// tolerated so partially populated dumps hydrate cleanly.
func (s *Service) ImportState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schemas = make(map[string]domain.Schema)
	s.tables = make(map[string]map[string]domain.Snapshot)
	s.order = make(map[string][]string)
	s.grants = make(map[string]domain.GrantLevel)
	for table, schema := range state.Schemas {
		s.schemas[table] = schema
	}
	for table, rows := range state.Tables {
		cpy := make(map[string]domain.Snapshot, len(rows))
		for id, row := range rows {
			cpy[id] = row
		}
		s.tables[table] = cpy
	}
	for table, ids := range state.Order {
		s.order[table] = ids
	}
	for table, level := range state.Grants {
		s.grants[table] = level
	}
}
