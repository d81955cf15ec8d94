package core

import (
	"time"

	"recordcore/pkg/domain"
)

// Synthesizer materializes complete, type-correct edit buffers from a schema
// and an optional snapshot. Defaults carry caller-supplied field values that
// take highest precedence on the create path.
type Synthesizer struct {
	Now      func() time.Time
	Defaults map[string]any
}

// Buffer synthesizes the edit buffer for schema and snapshot. With a nil
// snapshot (create path) every schema field receives a type-appropriate
// default and caller defaults are overlaid. With a snapshot (update path)
// non-null snapshot values overlay the computed defaults; null values and
// keys unknown to the schema are dropped, except the record identifier and
// the reserved meta entry.
func (sy Synthesizer) Buffer(schema domain.Schema, snapshot domain.Snapshot) domain.EditBuffer {
	buffer := make(domain.EditBuffer, len(schema.Fields)+1)
	for _, f := range schema.Fields {
		buffer[f.Name] = sy.fieldDefault(f)
	}
	buffer[domain.MetaKey] = domain.RecordMeta{CanUpdate: true, CanDelete: true}

	if snapshot == nil {
		for name, value := range sy.Defaults {
			buffer[name] = value
		}
		return buffer
	}

	for name, value := range snapshot {
		if value == nil {
			continue
		}
		if name == domain.MetaKey || name == domain.FieldID {
			buffer[name] = value
			continue
		}
		if _, ok := schema.Field(name); ok {
			buffer[name] = value
		}
	}
	return buffer
}

func (sy Synthesizer) fieldDefault(f domain.Field) any {
	switch {
	case f.Type.Numeric():
		// Nullable numerics use the empty-string placeholder expected by
		// numeric inputs; everything else starts at zero.
		if f.Nullable {
			return ""
		}
		return float64(0)
	case f.Type == domain.FieldTypeBoolean:
		return false
	case f.Type == domain.FieldTypeDateTime:
		if f.Nullable {
			return nil
		}
		return startOfDay(sy.now()).Format(time.RFC3339)
	case f.Type == domain.FieldTypeLookup:
		if value, ok := sy.Defaults[f.Name]; ok {
			return value
		}
		return nil
	default:
		// String, Guid, and any future text-like types.
		return ""
	}
}

func (sy Synthesizer) now() time.Time {
	if sy.Now != nil {
		return sy.Now()
	}
	return time.Now()
}

func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
