package domain

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// MapOfAny is persisted as JSON in the database
type MapOfAny map[string]any

// Scan implements the sql.Scanner interface
func (m *MapOfAny) Scan(val interface{}) error {
	return scanJSON(val, m)
}

// Value implements the driver.Valuer interface
func (m MapOfAny) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// scanJSON decodes a JSON column. The driver reuses its byte buffers between
// rows, so bytes are cloned before decoding.
func scanJSON(val interface{}, into interface{}) error {
	var data []byte

	switch v := val.(type) {
	case nil:
		return nil
	case []byte:
		data = bytes.Clone(v)
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported JSON column type %T", val)
	}

	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, into)
}
