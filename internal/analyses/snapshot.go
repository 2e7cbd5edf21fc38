package analyses

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Snapshot is a JSON document stored in a text column
type Snapshot []byte

// NewSnapshot encodes v.
func NewSnapshot(v any) (Snapshot, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return Snapshot(data), nil
}

// Decode unmarshals the snapshot into v.
func (s Snapshot) Decode(v any) error {
	if s.IsEmpty() {
		return fmt.Errorf("empty snapshot")
	}
	return json.Unmarshal(s, v)
}

// IsEmpty reports whether the snapshot holds no document.
func (s Snapshot) IsEmpty() bool {
	return len(s) == 0 || string(s) == "null"
}

// Scan implements sql.Scanner
func (s *Snapshot) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*s = nil
	case []byte:
		*s = append((*s)[0:0], v...)
	case string:
		*s = Snapshot(v)
	default:
		return fmt.Errorf("snapshot: unsupported column type %T", value)
	}
	return nil
}

// Value implements driver.Valuer
func (s Snapshot) Value() (driver.Value, error) {
	if len(s) == 0 {
		return nil, nil
	}
	return string(s), nil
}

// MarshalJSON embeds the stored document as-is
func (s Snapshot) MarshalJSON() ([]byte, error) {
	if len(s) == 0 {
		return []byte("null"), nil
	}
	return s, nil
}

// UnmarshalJSON implements json.Unmarshaler
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	if s == nil {
		return fmt.Errorf("snapshot: UnmarshalJSON on nil pointer")
	}
	*s = append((*s)[0:0], data...)
	return nil
}
