package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
)

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func stringSliceToAny(values []string) []any {
	out := make([]any, 0, len(values))
	for _, v := range values {
		out = append(out, v)
	}
	return out
}

// jsonText encodes v for a JSONB column. lib/pq sends []byte as bytea, so the
// payload goes over the wire as text.
func jsonText(v any) (string, error) {
	raw, err := sonic.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode json column: %w", err)
	}
	return string(raw), nil
}

func nullStringValue(v sql.NullString) string {
	if !v.Valid {
		return ""
	}
	return v.String
}
