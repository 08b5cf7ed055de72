package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// JSONMap represents a JSON object column.
type JSONMap map[string]interface{}

// Value implements the driver.Valuer interface for database storage
func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements the sql.Scanner interface for database retrieval
func (j *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, err := columnBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, j)
}

// GormDataType tells GORM how to handle this type
func (JSONMap) GormDataType() string {
	return "jsonb"
}

// StringList is a JSON array of strings, used for provider assigned tags.
type StringList []string

func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *StringList) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	bytes, err := columnBytes(value)
	if err != nil {
		return err
	}
	var out []string
	if err := json.Unmarshal(bytes, &out); err != nil {
		return err
	}
	*s = out
	return nil
}

func (StringList) GormDataType() string {
	return "jsonb"
}

func columnBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, errors.New(fmt.Sprintf("unsupported column type %T for JSON value", value))
	}
}

// Snapshot converts v into a JSONMap for audit before/after values.
func Snapshot(v interface{}) JSONMap {
	b, err := json.Marshal(v)
	if err != nil {
		return JSONMap{"error": err.Error()}
	}
	var out JSONMap
	if err := json.Unmarshal(b, &out); err != nil {
		return JSONMap{"error": err.Error()}
	}
	return out
}
