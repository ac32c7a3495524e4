package dbtypes

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// TechStack maps a category (frontend, backend, ...) to an ordered list of technologies.
// It is persisted as a jsonb document.
type TechStack map[string][]string

func (t *TechStack) Scan(src any) error {
	if src == nil {
		*t = TechStack{}
		return nil
	}

	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("TechStack: unsupported Scan type %T", src)
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		*t = TechStack{}
		return nil
	}

	out := TechStack{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("TechStack: decode: %w", err)
	}
	*t = out
	return nil
}

func (t TechStack) Value() (driver.Value, error) {
	if t == nil {
		return "{}", nil
	}
	b, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Sanitized returns a copy with blank entries dropped from every category.
// Order of the remaining entries is preserved; entries are trimmed.
func (t TechStack) Sanitized() TechStack {
	out := make(TechStack, len(t))
	for category, items := range t {
		cleaned := make([]string, 0, len(items))
		for _, item := range items {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				cleaned = append(cleaned, trimmed)
			}
		}
		out[category] = cleaned
	}
	return out
}

// Clone returns a deep copy.
func (t TechStack) Clone() TechStack {
	if t == nil {
		return nil
	}
	out := make(TechStack, len(t))
	for category, items := range t {
		out[category] = append([]string(nil), items...)
	}
	return out
}
