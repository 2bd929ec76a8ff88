package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base carries the uuid primary key and timestamps shared by every table
type Base struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Initialize UUID before creating
func (b *Base) BeforeCreate(tx *gorm.DB) (err error) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return
}

// Custom JSONB type for free-form settings and schedules
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return "{}", nil
	}
	b, err := json.Marshal(j)
	return string(b), err
}

func (j *JSONB) Scan(value interface{}) error {
	b, err := jsonBytes(value)
	if err != nil || b == nil {
		return err
	}
	return json.Unmarshal(b, j)
}

// StringList is a JSON array of strings. Callers must assign a new slice to
// the field when changing it so gorm sees the update.
type StringList []string

func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(s))
	return string(b), err
}

func (s *StringList) Scan(value interface{}) error {
	b, err := jsonBytes(value)
	if err != nil || b == nil {
		return err
	}
	return json.Unmarshal(b, (*[]string)(s))
}

// Contains reports whether v is in the list
func (s StringList) Contains(v string) bool {
	for _, item := range s {
		if item == v {
			return true
		}
	}
	return false
}

// JSONList is a JSON array of objects (formulas, photos, metric snapshots)
type JSONList []map[string]interface{}

func (l JSONList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]map[string]interface{}(l))
	return string(b), err
}

func (l *JSONList) Scan(value interface{}) error {
	b, err := jsonBytes(value)
	if err != nil || b == nil {
		return err
	}
	return json.Unmarshal(b, (*[]map[string]interface{})(l))
}

func jsonBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported JSON column type %T", value)
	}
}

// NewStringList builds a list from values, skipping blanks and duplicates
func NewStringList(values ...string) StringList {
	out := make(StringList, 0, len(values))
	for _, v := range values {
		if v == "" || out.Contains(v) {
			continue
		}
		out = append(out, v)
	}
	return out
}
