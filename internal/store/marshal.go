package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/Frost/edeliver/internal/ir"
)

// marshalSet converts a set to canonical JSON TEXT for storage.
func marshalSet(s ir.Set) (string, error) {
	data, err := ir.MarshalCanonical(s)
	if err != nil {
		return "", fmt.Errorf("marshal set: %w", err)
	}
	return string(data), nil
}

// unmarshalSet parses stored JSON TEXT back into a set.
func unmarshalSet(data string) (ir.Set, error) {
	var s ir.Set
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return ir.Set{}, fmt.Errorf("unmarshal set: %w", err)
	}
	return s, nil
}

// unmarshalNullSet is unmarshalSet for a nullable column. NULL yields the
// zero set.
func unmarshalNullSet(data sql.NullString) (ir.Set, error) {
	if !data.Valid {
		return ir.Set{}, nil
	}
	return unmarshalSet(data.String)
}
