package core

import (
	"reflect"
	"testing"

	"recordcore/pkg/domain"
)

func TestValidatePartialNumericInput(t *testing.T) {
	schema := domain.Schema{Fields: []domain.Field{{Name: "Qty", Type: domain.FieldTypeNumber, Nullable: true, DisplayName: "Quantity"}}}
	for _, partial := range []string{"-", "."} {
		messages := Validate(schema, domain.EditBuffer{"Qty": partial}, nil)
		if len(messages) != 1 || messages[0].Message != "Quantity is not a valid number" {
			t.Fatalf("input %q: got %v", partial, messages)
		}
	}
	if messages := Validate(schema, domain.EditBuffer{"Qty": "-3"}, nil); len(messages) != 0 {
		t.Fatalf("complete numeric input flagged: %v", messages)
	}
}

func TestValidateRequiredString(t *testing.T) {
	schema := domain.Schema{Fields: []domain.Field{{Name: "Name", Type: domain.FieldTypeString, Required: true, DisplayName: "Name"}}}
	messages := Validate(schema, domain.EditBuffer{"Name": ""}, nil)
	if len(messages) != 1 || messages[0].Message != "Name is required" {
		t.Fatalf("got %v", messages)
	}
	if messages := Validate(schema, domain.EditBuffer{"Name": "Widget"}, nil); len(messages) != 0 {
		t.Fatalf("filled required field flagged: %v", messages)
	}
}

func TestValidateNonNullableLookupAndDateTime(t *testing.T) {
	schema := domain.Schema{Fields: []domain.Field{
		{Name: "OwnerId", Type: domain.FieldTypeLookup, DisplayName: "Owner"},
		{Name: "DueAt", Type: domain.FieldTypeDateTime, DisplayName: "Due"},
	}}
	messages := Validate(schema, domain.EditBuffer{"OwnerId": nil}, nil)
	if len(messages) != 2 {
		t.Fatalf("expected messages for both fields, got %v", messages)
	}
	if messages[0].Message != "Owner is required" || messages[1].Message != "Due is required" {
		t.Fatalf("got %v", messages)
	}
}

func TestValidateRequiredOverride(t *testing.T) {
	schema := domain.Schema{Fields: []domain.Field{{Name: "Notes", Type: domain.FieldTypeString, Nullable: true, DisplayName: "Notes"}}}
	buffer := domain.EditBuffer{"Notes": ""}
	if messages := Validate(schema, buffer, nil); len(messages) != 0 {
		t.Fatalf("optional field flagged without override: %v", messages)
	}
	override := map[string]struct{}{"Notes": {}}
	messages := Validate(schema, buffer, override)
	if len(messages) != 1 || messages[0].Message != "Notes is required" {
		t.Fatalf("override not honored: %v", messages)
	}
}

func TestValidateGuidFormat(t *testing.T) {
	schema := domain.Schema{Fields: []domain.Field{{Name: "RefId", Type: domain.FieldTypeGuid, Nullable: true, DisplayName: "Reference"}}}
	messages := Validate(schema, domain.EditBuffer{"RefId": "not-a-guid"}, nil)
	if len(messages) != 1 || messages[0].Message != "Reference is not a valid Id" {
		t.Fatalf("got %v", messages)
	}
	if messages := Validate(schema, domain.EditBuffer{"RefId": "6ba7b810-9dad-11d1-80b4-00c04fd430c8"}, nil); len(messages) != 0 {
		t.Fatalf("valid guid flagged: %v", messages)
	}
	if messages := Validate(schema, domain.EditBuffer{"RefId": ""}, nil); len(messages) != 0 {
		t.Fatalf("empty guid flagged: %v", messages)
	}
}

func TestValidateSkipsAuditFields(t *testing.T) {
	schema := domain.Schema{Fields: []domain.Field{
		{Name: domain.FieldCreatedByID, Type: domain.FieldTypeGuid, Required: true},
		{Name: domain.FieldUpdatedByID, Type: domain.FieldTypeGuid, Required: true},
	}}
	if messages := Validate(schema, domain.EditBuffer{}, nil); len(messages) != 0 {
		t.Fatalf("audit fields must be excluded: %v", messages)
	}
}

func TestValidateIsDeterministic(t *testing.T) {
	schema := testSchema()
	buffer := domain.EditBuffer{"Name": "", "Price": "-", "OwnerId": nil}
	override := map[string]struct{}{"Weight": {}}
	first := Validate(schema, buffer, override)
	for i := 0; i < 5; i++ {
		if got := Validate(schema, buffer, override); !reflect.DeepEqual(first, got) {
			t.Fatalf("run %d differs: %v vs %v", i, first, got)
		}
	}
	if len(first) == 0 {
		t.Fatalf("expected findings")
	}
}
