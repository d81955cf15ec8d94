// Package domain defines the schema, record, and editing value types plus
// the collaborator contracts consumed by the recordcore engine.
package domain

// FieldType identifies the data type of a schema field.
type FieldType string

// Supported field types. Number, Currency, and Percent share numeric
// editing and validation semantics.
const (
	// FieldTypeNumber is a plain numeric field.
	FieldTypeNumber FieldType = "Number"
	// FieldTypeCurrency is a numeric field denominated in a currency.
	FieldTypeCurrency FieldType = "Currency"
	// FieldTypePercent is a numeric field expressed as a percentage.
	FieldTypePercent FieldType = "Percent"
	// FieldTypeString is a free-form text field.
	FieldTypeString FieldType = "String"
	// FieldTypeGuid is an identifier field holding a UUID value.
	FieldTypeGuid FieldType = "Guid"
	// FieldTypeBoolean is a true/false field.
	FieldTypeBoolean FieldType = "Boolean"
	// FieldTypeDateTime is a timestamp field.
	FieldTypeDateTime FieldType = "DateTime"
	// FieldTypeLookup references a record in another table by id.
	FieldTypeLookup FieldType = "Lookup"
)

// Numeric reports whether the type carries number editing semantics.
func (t FieldType) Numeric() bool {
	return t == FieldTypeNumber || t == FieldTypeCurrency || t == FieldTypePercent
}

// Field describes a single column of a table schema.
type Field struct {
	Name            string    `json:"name"`
	Type            FieldType `json:"type"`
	Nullable        bool      `json:"nullable"`
	Required        bool      `json:"required"`
	DisplayName     string    `json:"display_name,omitempty"`
	LookupTable     string    `json:"lookup_table,omitempty"`
	LookupNameField string    `json:"lookup_name_field,omitempty"`
}

// Label returns the human-facing name used in validation messages.
func (f Field) Label() string {
	if f.DisplayName != "" {
		return f.DisplayName
	}
	return f.Name
}

// Schema is the ordered field descriptor list for one table. It is immutable
// once fetched for a given table; callers must not mutate Fields.
type Schema struct {
	Table  string  `json:"table"`
	Fields []Field `json:"fields"`
}

// Known reports whether the schema has been resolved.
func (s Schema) Known() bool {
	return s.Fields != nil
}

// Field returns the descriptor for name in schema order.
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Clone returns a deep copy safe for independent mutation.
func (s Schema) Clone() Schema {
	if s.Fields == nil {
		return s
	}
	fields := make([]Field, len(s.Fields))
	copy(fields, s.Fields)
	return Schema{Table: s.Table, Fields: fields}
}

// Reserved field and key names shared by all tables.
const (
	// FieldID is the record identifier field.
	FieldID = "Id"
	// FieldCreatedByID is the audit field naming the creating user.
	FieldCreatedByID = "CreatedById"
	// FieldUpdatedByID is the audit field naming the last updating user.
	FieldUpdatedByID = "UpdatedById"
	// MetaKey is the reserved edit-buffer key carrying per-record permissions.
	MetaKey = "_meta"
)

// IsAuditField reports whether name is a system audit field excluded from
// validation.
func IsAuditField(name string) bool {
	return name == FieldCreatedByID || name == FieldUpdatedByID
}
