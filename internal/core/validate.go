package core

import (
	"fmt"

	"github.com/google/uuid"

	"recordcore/pkg/domain"
)

// Validate evaluates the schema-derived rules plus the dynamically
// registered required-field overrides against an edit buffer. It is a pure
// function: the same inputs always produce the same ordered message set.
// Messages accumulate; a field may produce more than one.
func Validate(schema domain.Schema, buffer domain.EditBuffer, required map[string]struct{}) []domain.ValidationMessage {
	var messages []domain.ValidationMessage
	for _, f := range schema.Fields {
		if domain.IsAuditField(f.Name) {
			continue
		}
		value, present := buffer[f.Name]
		_, override := required[f.Name]
		mustHave := f.Required || override

		if f.Type.Numeric() {
			if s, ok := value.(string); ok && (s == "-" || s == ".") {
				messages = append(messages, domain.ValidationMessage{
					Field:   f.Name,
					Message: fmt.Sprintf("%s is not a valid number", f.Label()),
				})
			}
		}

		isNil := !present || value == nil
		if (f.Type == domain.FieldTypeLookup || f.Type == domain.FieldTypeDateTime) &&
			(!f.Nullable || mustHave) && isNil {
			messages = append(messages, requiredMessage(f))
		}

		if mustHave && (isNil || value == "") {
			messages = append(messages, requiredMessage(f))
		}

		if f.Type == domain.FieldTypeGuid {
			if s, ok := value.(string); ok && s != "" {
				if _, err := uuid.Parse(s); err != nil {
					messages = append(messages, domain.ValidationMessage{
						Field:   f.Name,
						Message: fmt.Sprintf("%s is not a valid Id", f.Label()),
					})
				}
			}
		}
	}
	return messages
}

func requiredMessage(f domain.Field) domain.ValidationMessage {
	return domain.ValidationMessage{
		Field:   f.Name,
		Message: fmt.Sprintf("%s is required", f.Label()),
	}
}
