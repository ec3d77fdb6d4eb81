// AngelaMos | 2026
// entity.go

package customfield

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type Entity string

const (
	EntityCustomer    Entity = "customer"
	EntityTransaction Entity = "transaction"
)

func (e Entity) Valid() bool {
	return e == EntityCustomer || e == EntityTransaction
}

type FieldType string

const (
	TypeText   FieldType = "text"
	TypeNumber FieldType = "number"
	TypeDate   FieldType = "date"
	TypeSelect FieldType = "select"
)

type Definition struct {
	ID        string     `db:"id"`
	UserID    string     `db:"user_id"`
	Entity    Entity     `db:"entity"`
	Key       string     `db:"key"`
	Label     string     `db:"label"`
	Type      FieldType  `db:"type"`
	Options   StringList `db:"options"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
}

// Values holds the custom field values of a customer or transaction,
// stored as a JSONB object keyed by definition key.
type Values map[string]any

func (v Values) Value() (driver.Value, error) {
	if v == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(v)
}

func (v *Values) Scan(src any) error {
	return scanJSON(src, v)
}

// StringList is a JSONB array of strings.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

func (l *StringList) Scan(src any) error {
	return scanJSON(src, l)
}

func scanJSON(src, dst any) error {
	switch data := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(data, dst)
	case string:
		return json.Unmarshal([]byte(data), dst)
	default:
		return fmt.Errorf("scan json: unsupported type %T", src)
	}
}
