// Package schema provides a declarative field table and a single generic
// validation routine that turns an untyped payload into a canonical Record.
package schema

import (
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"
)

// FieldType enumerates the value types a field may declare.
type FieldType int

const (
	String FieldType = iota + 1
	Integer
	Float
	Boolean
	Date
	Timestamp
	Enum
	Email
	StringList
	RecordList
)

func (t FieldType) String() string {
	switch t {
	case String:
		return "string"
	case Integer:
		return "integer"
	case Float:
		return "float"
	case Boolean:
		return "boolean"
	case Date:
		return "date"
	case Timestamp:
		return "timestamp"
	case Enum:
		return "enum"
	case Email:
		return "email"
	case StringList:
		return "list of string"
	case RecordList:
		return "list of record"
	default:
		return fmt.Sprintf("FieldType(%d)", int(t))
	}
}

// Record is a canonical, validated document. Every declared field of its
// schema is present as a key; absent optional fields without a default hold nil.
type Record map[string]any

// Field describes one entry of a schema. Fields are built with the
// constructors below and refined with the chainable modifiers.
type Field struct {
	Name        string
	Type        FieldType
	Required    bool
	Nullable    bool
	NonNegative bool
	Values      []string
	Of          *Schema

	def     func() any
	dynamic bool
}

func Str(name string) Field { return Field{Name: name, Type: String} }
func Int(name string) Field { return Field{Name: name, Type: Integer} }
func Num(name string) Field { return Field{Name: name, Type: Float} }
func Bool(name string) Field { return Field{Name: name, Type: Boolean} }
func Day(name string) Field { return Field{Name: name, Type: Date} }
func Time(name string) Field { return Field{Name: name, Type: Timestamp} }
func Mail(name string) Field { return Field{Name: name, Type: Email} }
func Strs(name string) Field { return Field{Name: name, Type: StringList} }

// OneOf declares an enumerated string field.
func OneOf(name string, values ...string) Field {
	return Field{Name: name, Type: Enum, Values: values}
}

// List declares an ordered list of sub-records validated against of.
func List(name string, of *Schema) Field {
	return Field{Name: name, Type: RecordList, Of: of}
}

func (f Field) Req() Field {
	f.Required = true
	return f
}

func (f Field) Null() Field {
	f.Nullable = true
	return f
}

func (f Field) Min0() Field {
	f.NonNegative = true
	return f
}

// Default sets the value used when the field is absent from the payload.
// List defaults are copied on every use so records never share backing arrays.
func (f Field) Default(v any) Field {
	f.def = func() any { return cloneValue(v) }
	return f
}

// Now defaults a timestamp field to the current UTC time at validation.
func (f Field) Now() Field {
	f.def = func() any { return time.Now().UTC() }
	f.dynamic = true
	return f
}

// HasDefault reports whether the field declares a default.
func (f Field) HasDefault() bool { return f.def != nil }

// StaticDefault returns the declared default unless it is computed at
// validation time.
func (f Field) StaticDefault() (any, bool) {
	if f.def == nil || f.dynamic {
		return nil, false
	}
	return f.def(), true
}

func (f Field) defaultValue() any {
	if f.def == nil {
		return nil
	}
	return f.def()
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case []string:
		return append([]string{}, t...)
	case []Record:
		return append([]Record{}, t...)
	default:
		return v
	}
}

// Schema is the ordered field table of one resource kind.
type Schema struct {
	kind   string
	fields []Field
	index  map[string]int
}

// New builds a schema. It panics on duplicate field names since schemas are
// declared statically.
func New(kind string, fields ...Field) *Schema {
	s := &Schema{kind: kind, fields: fields, index: make(map[string]int, len(fields))}
	for i, f := range fields {
		if _, dup := s.index[f.Name]; dup {
			panic(fmt.Sprintf("schema %s: duplicate field %q", kind, f.Name))
		}
		if f.Type == RecordList && f.Of == nil {
			panic(fmt.Sprintf("schema %s: list field %q has no element schema", kind, f.Name))
		}
		s.index[f.Name] = i
	}
	return s
}

func (s *Schema) Kind() string { return s.kind }

// Fields returns a copy of the field table in declaration order.
func (s *Schema) Fields() []Field {
	return append([]Field(nil), s.fields...)
}

func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Registry maps resource kinds to schemas. It is populated at start-up and
// read concurrently afterwards.
type Registry struct {
	schemas map[string]*Schema
}

func NewRegistry(schemas ...*Schema) (*Registry, error) {
	r := &Registry{schemas: make(map[string]*Schema, len(schemas))}
	for _, s := range schemas {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(s *Schema) error {
	if s == nil || s.kind == "" {
		return fmt.Errorf("register schema: kind is required")
	}
	if _, exists := r.schemas[s.kind]; exists {
		return fmt.Errorf("register schema: kind %s already registered", s.kind)
	}
	r.schemas[s.kind] = s
	return nil
}

func (r *Registry) Lookup(kind string) (*Schema, bool) {
	s, ok := r.schemas[kind]
	return s, ok
}

// Kinds returns the registered kinds in lexical order.
func (r *Registry) Kinds() []string {
	kinds := lo.Keys(r.schemas)
	sort.Strings(kinds)
	return kinds
}

// Validate checks payload against the schema registered for kind.
func (r *Registry) Validate(kind string, payload map[string]any) (Record, error) {
	s, ok := r.schemas[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	return s.Validate(payload)
}
