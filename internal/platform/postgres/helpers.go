package postgres

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// uuidArrayLiteral renders a slice of UUIDs as a PostgreSQL array literal
// suitable for binding with a ::uuid[] cast. Canonical UUID text contains
// no characters that need quoting inside an array literal.
func uuidArrayLiteral(ids []uuid.UUID) string {
	if len(ids) == 0 {
		return "{}"
	}

	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// escapeLike escapes the LIKE metacharacters in a user-supplied pattern
// fragment so it matches literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// scanUUIDArray decodes a uuid[] column that was selected through
// array_to_json, which keeps the read path on plain database/sql scanning.
func scanUUIDArray(raw []byte) ([]uuid.UUID, error) {
	if len(raw) == 0 {
		return []uuid.UUID{}, nil
	}

	var ids []uuid.UUID
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("failed to decode uuid array: %w", err)
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return ids, nil
}
