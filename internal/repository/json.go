package repository

import (
	"encoding/json"
	"strings"
)

// Nested document values (provider lists, sync payloads, rendition
// lists) live in JSON columns. These helpers keep the scan/exec code
// in the repositories readable.

// marshalJSON encodes v for a JSON column. A nil slice/map encodes as
// its empty form rather than SQL NULL so scans never see null.
func marshalJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// unmarshalJSON decodes a JSON column into out. Empty and NULL
// columns leave out at its zero value.
func unmarshalJSON(raw []byte, out any) error {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return nil
	}
	return json.Unmarshal([]byte(s), out)
}

// isDuplicateKey reports whether a MySQL error is a unique-constraint
// violation (error 1062).
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}
