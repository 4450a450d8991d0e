package storage

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONText is a JSON document stored as text in the database
type JSONText []byte

// Scan implements the sql.Scanner interface for JSONText
func (j *JSONText) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	switch v := value.(type) {
	case string:
		*j = append((*j)[:0], v...)
	case []byte:
		*j = append((*j)[:0], v...)
	default:
		return fmt.Errorf("cannot scan type %T into JSONText", value)
	}

	if len(*j) > 0 && !json.Valid(*j) {
		return fmt.Errorf("invalid JSON in column")
	}
	return nil
}

// Value implements the driver.Valuer interface for JSONText
func (j JSONText) Value() (driver.Value, error) {
	if len(j) == 0 {
		return "null", nil
	}
	if !json.Valid(j) {
		return nil, fmt.Errorf("invalid JSON value")
	}
	return string(j), nil
}
