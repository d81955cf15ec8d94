package core

import (
	"testing"
	"time"

	"recordcore/pkg/domain"
)

func testClock() time.Time {
	return time.Date(2025, 6, 15, 13, 45, 12, 0, time.UTC)
}

func testSchema() domain.Schema {
	return domain.Schema{
		Table: "Widget",
		Fields: []domain.Field{
			{Name: "Name", Type: domain.FieldTypeString, Required: true, DisplayName: "Name"},
			{Name: "Price", Type: domain.FieldTypeCurrency},
			{Name: "Weight", Type: domain.FieldTypeNumber, Nullable: true},
			{Name: "Active", Type: domain.FieldTypeBoolean},
			{Name: "BuiltAt", Type: domain.FieldTypeDateTime},
			{Name: "RetiredAt", Type: domain.FieldTypeDateTime, Nullable: true},
			{Name: "OwnerId", Type: domain.FieldTypeLookup, Nullable: true, LookupTable: "User", LookupNameField: "Name"},
		},
	}
}

func TestSynthesizeCreateDefaults(t *testing.T) {
	synth := Synthesizer{Now: testClock}
	buffer := synth.Buffer(testSchema(), nil)

	want := len(testSchema().Fields) + 1
	if len(buffer) != want {
		t.Fatalf("expected %d keys, got %d: %v", want, len(buffer), buffer)
	}
	if got := buffer["Name"]; got != "" {
		t.Fatalf("string default = %v", got)
	}
	if got := buffer["Price"]; got != float64(0) {
		t.Fatalf("numeric default = %v", got)
	}
	if got := buffer["Weight"]; got != "" {
		t.Fatalf("nullable numeric default = %v, want empty-string placeholder", got)
	}
	if got := buffer["Active"]; got != false {
		t.Fatalf("boolean default = %v", got)
	}
	if got := buffer["BuiltAt"]; got != "2025-06-15T00:00:00Z" {
		t.Fatalf("datetime default = %v, want start of day", got)
	}
	if got := buffer["RetiredAt"]; got != nil {
		t.Fatalf("nullable datetime default = %v, want nil", got)
	}
	if got := buffer["OwnerId"]; got != nil {
		t.Fatalf("lookup default = %v, want nil", got)
	}
	meta := buffer.Meta()
	if !meta.CanUpdate || !meta.CanDelete {
		t.Fatalf("meta default = %+v", meta)
	}
}

func TestSynthesizeCallerDefaultsWinOnCreate(t *testing.T) {
	synth := Synthesizer{
		Now:      testClock,
		Defaults: map[string]any{"Name": "prefilled", "OwnerId": "u-1"},
	}
	buffer := synth.Buffer(testSchema(), nil)
	if got := buffer["Name"]; got != "prefilled" {
		t.Fatalf("caller default not applied: %v", got)
	}
	if got := buffer["OwnerId"]; got != "u-1" {
		t.Fatalf("lookup caller default not applied: %v", got)
	}
}

func TestSynthesizeSnapshotOverlay(t *testing.T) {
	schema := domain.Schema{
		Table: "Widget",
		Fields: []domain.Field{
			{Name: "Name", Type: domain.FieldTypeString},
			{Name: "Status", Type: domain.FieldTypeString},
		},
	}
	snapshot := domain.Snapshot{
		domain.FieldID: "1",
		"Name":         "A",
		"Status":       nil,
		"Ghost":        "stale",
	}
	buffer := Synthesizer{Now: testClock}.Buffer(schema, snapshot)

	if got := buffer["Name"]; got != "A" {
		t.Fatalf("snapshot value not applied: %v", got)
	}
	if got := buffer["Status"]; got != "" {
		t.Fatalf("null snapshot value must fall back to default, got %v", got)
	}
	if _, ok := buffer["Ghost"]; ok {
		t.Fatalf("unknown snapshot key must be dropped")
	}
	if got := buffer[domain.FieldID]; got != "1" {
		t.Fatalf("identifier must survive overlay, got %v", got)
	}
}

func TestSynthesizeSnapshotMetaSurvives(t *testing.T) {
	schema := domain.Schema{Table: "Widget", Fields: []domain.Field{{Name: "Name", Type: domain.FieldTypeString}}}
	snapshot := domain.Snapshot{
		domain.FieldID: "1",
		domain.MetaKey: domain.RecordMeta{CanUpdate: false, CanDelete: false},
		"Name":         "A",
	}
	buffer := Synthesizer{Now: testClock}.Buffer(schema, snapshot)
	meta := buffer.Meta()
	if meta.CanUpdate || meta.CanDelete {
		t.Fatalf("snapshot meta not carried: %+v", meta)
	}
}
