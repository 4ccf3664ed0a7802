package vectorstore

import "encoding/json"

// ListValuedFields is the fixed set of metadata fields that are stored as
// JSON-encoded strings and restored to ordered slices on read. This set is
// the serialization contract with the index; it is never inferred per
// record.
var ListValuedFields = []string{"authors", "mesh_terms", "keywords", "publication_types"}

func isListValued(field string) bool {
	for _, f := range ListValuedFields {
		if f == field {
			return true
		}
	}
	return false
}

// FlattenMetadata encodes list-valued fields to JSON strings and drops nil
// values so the stored metadata holds only scalars.
func FlattenMetadata(metadata map[string]any) map[string]any {
	flat := make(map[string]any, len(metadata))
	for key, value := range metadata {
		if value == nil {
			continue
		}
		if isListValued(key) {
			encoded, err := json.Marshal(value)
			if err != nil {
				continue
			}
			flat[key] = string(encoded)
			continue
		}
		flat[key] = value
	}
	return flat
}

// RestoreMetadata decodes the list-valued fields back to string slices.
// A value that fails to decode is passed through unchanged.
func RestoreMetadata(flat map[string]any) map[string]any {
	restored := make(map[string]any, len(flat))
	for key, value := range flat {
		if isListValued(key) {
			if s, ok := value.(string); ok {
				var list []string
				if err := json.Unmarshal([]byte(s), &list); err == nil {
					restored[key] = list
					continue
				}
			}
		}
		restored[key] = value
	}
	return restored
}
