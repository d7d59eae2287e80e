package db

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// Metadata is a key-value map stored as a JSON object.
type Metadata map[string]any

// Scan implements the sql.Scanner interface.
func (m *Metadata) Scan(value any) error {
	*m = make(Metadata)
	var raw []byte
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T", v)
	}
	if err := json.Unmarshal(raw, m); err != nil {
		return fmt.Errorf("decoding metadata: %w", err)
	}
	return nil
}

// Value implements the driver.Valuer interface.
func (m Metadata) Value() (driver.Value, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	out, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(out), nil
}

// StringList is a list of strings stored as a JSON array.
type StringList []string

// Scan implements the sql.Scanner interface. NULL and empty values scan to an empty list.
func (l *StringList) Scan(value any) error {
	*l = StringList{}
	var raw []byte
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T", v)
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, l); err != nil {
		return fmt.Errorf("decoding string list: %w", err)
	}
	return nil
}

// Value implements the driver.Valuer interface.
func (l StringList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	out, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(out), nil
}
