// Package schema maps logical field descriptions onto sqlite column types
// and coerces values in both directions. It is pure and stateless: the
// repository consumes the same descriptor for table creation, row
// serialization and condition values.
package schema

import (
	"fmt"
	"strings"
	"time"
)

// TimeLayout is the canonical timestamp encoding. It is lexicographically
// order-preserving, which the repository relies on for range conditions
// over TEXT columns.
const TimeLayout = "2006-01-02T15:04:05"

// Kind is the logical type of a field. Anything a descriptor cannot express
// with one of these kinds must be declared as KindText by its author; that
// coercion is lossy and is a compatibility fallback, not the contract.
type Kind int

const (
	KindInt Kind = iota
	KindReal
	KindText
	KindBool
	KindEnum
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindReal:
		return "real"
	case KindText:
		return "text"
	case KindBool:
		return "bool"
	case KindEnum:
		return "enum"
	case KindTime:
		return "time"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Field describes one column of an entity.
type Field struct {
	Name     string
	Kind     Kind
	Nullable bool
	Enum     []string // closed set of canonical values, KindEnum only
}

// Descriptor is the ordered field list for one entity type. The first
// field must be the primary key and must be named "id".
type Descriptor struct {
	Table  string
	Fields []Field
}

// ViolationError reports a stored value that cannot be decoded to its
// declared logical type.
type ViolationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("schema violation on field %q: %s (value %v)", e.Field, e.Reason, e.Value)
}

func violation(f Field, v any, reason string) error {
	return &ViolationError{Field: f.Name, Value: v, Reason: reason}
}

// Validate checks structural rules: a table name, at least one field, the
// id field first, unique names, and enum sets on enum fields only.
func (d Descriptor) Validate() error {
	if d.Table == "" {
		return fmt.Errorf("descriptor has no table name")
	}
	if len(d.Fields) == 0 {
		return fmt.Errorf("descriptor %q has no fields", d.Table)
	}
	if d.Fields[0].Name != "id" {
		return fmt.Errorf("descriptor %q: first field must be id, got %q", d.Table, d.Fields[0].Name)
	}
	seen := make(map[string]bool, len(d.Fields))
	for _, f := range d.Fields {
		if f.Name == "" {
			return fmt.Errorf("descriptor %q has an unnamed field", d.Table)
		}
		if seen[f.Name] {
			return fmt.Errorf("descriptor %q: duplicate field %q", d.Table, f.Name)
		}
		seen[f.Name] = true
		if f.Kind == KindEnum && len(f.Enum) == 0 {
			return fmt.Errorf("descriptor %q: enum field %q has no values", d.Table, f.Name)
		}
		if f.Kind != KindEnum && len(f.Enum) > 0 {
			return fmt.Errorf("descriptor %q: field %q declares enum values but is %s", d.Table, f.Name, f.Kind)
		}
	}
	return nil
}

// Field looks up a field by name.
func (d Descriptor) Field(name string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// ColumnNames returns the column names in declaration order.
func (d Descriptor) ColumnNames() []string {
	names := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		names[i] = f.Name
	}
	return names
}

// ColumnType maps a field to its sqlite storage class.
func ColumnType(f Field) string {
	switch f.Kind {
	case KindInt, KindBool:
		return "INTEGER"
	case KindReal:
		return "REAL"
	default:
		return "TEXT"
	}
}

// DDL renders the idempotent CREATE TABLE statement for the descriptor.
func (d Descriptor) DDL() string {
	cols := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		col := f.Name + " " + ColumnType(f)
		if i == 0 {
			col += " PRIMARY KEY"
		} else if !f.Nullable {
			col += " NOT NULL"
		}
		cols[i] = col
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", d.Table, strings.Join(cols, ", "))
}

// EncodeValue coerces a logical value to its store representation.
// A nil value is accepted for nullable fields only.
func EncodeValue(f Field, v any) (any, error) {
	if v == nil {
		if !f.Nullable {
			return nil, violation(f, v, "null value for non-nullable field")
		}
		return nil, nil
	}
	switch f.Kind {
	case KindInt:
		n, ok := v.(int64)
		if !ok {
			return nil, violation(f, v, "expected int64")
		}
		return n, nil
	case KindReal:
		r, ok := v.(float64)
		if !ok {
			return nil, violation(f, v, "expected float64")
		}
		return r, nil
	case KindText:
		s, ok := v.(string)
		if !ok {
			return nil, violation(f, v, "expected string")
		}
		return s, nil
	case KindBool:
		b, ok := v.(bool)
		if !ok {
			return nil, violation(f, v, "expected bool")
		}
		if b {
			return int64(1), nil
		}
		return int64(0), nil
	case KindEnum:
		s, ok := v.(string)
		if !ok {
			return nil, violation(f, v, "expected enum string")
		}
		if !contains(f.Enum, s) {
			return nil, violation(f, v, "value outside enum set")
		}
		return s, nil
	case KindTime:
		t, ok := v.(time.Time)
		if !ok {
			return nil, violation(f, v, "expected time.Time")
		}
		return t.Format(TimeLayout), nil
	}
	return nil, violation(f, v, "unknown field kind")
}

// DecodeValue coerces a raw store value back to its logical form. Decoding
// is strict: an unrecognized enum value or malformed timestamp is a
// ViolationError, never a silent default.
func DecodeValue(f Field, raw any) (any, error) {
	if raw == nil {
		if !f.Nullable {
			return nil, violation(f, raw, "null in non-nullable column")
		}
		return nil, nil
	}
	switch f.Kind {
	case KindInt:
		n, ok := raw.(int64)
		if !ok {
			return nil, violation(f, raw, "column is not INTEGER")
		}
		return n, nil
	case KindReal:
		switch r := raw.(type) {
		case float64:
			return r, nil
		case int64:
			// sqlite stores integral REALs without a fraction
			return float64(r), nil
		}
		return nil, violation(f, raw, "column is not REAL")
	case KindText:
		s, ok := raw.(string)
		if !ok {
			return nil, violation(f, raw, "column is not TEXT")
		}
		return s, nil
	case KindBool:
		n, ok := raw.(int64)
		if !ok {
			return nil, violation(f, raw, "column is not INTEGER")
		}
		switch n {
		case 0:
			return false, nil
		case 1:
			return true, nil
		}
		return nil, violation(f, raw, "boolean column holds a value other than 0 or 1")
	case KindEnum:
		s, ok := raw.(string)
		if !ok {
			return nil, violation(f, raw, "column is not TEXT")
		}
		if !contains(f.Enum, s) {
			return nil, violation(f, raw, "stored value outside enum set")
		}
		return s, nil
	case KindTime:
		s, ok := raw.(string)
		if !ok {
			return nil, violation(f, raw, "column is not TEXT")
		}
		t, err := time.ParseInLocation(TimeLayout, s, time.UTC)
		if err != nil {
			return nil, violation(f, raw, "malformed timestamp")
		}
		return t, nil
	}
	return nil, violation(f, raw, "unknown field kind")
}

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
