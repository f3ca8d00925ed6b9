package registry

import (
	"fmt"
	"sort"
)

// ErrUnknownType is returned by Lookup for a key that was never registered.
// No processing run is started for an unknown type.
var ErrUnknownType = fmt.Errorf("unknown document type")

// Strategy selects how a field value is located in the token stream.
type Strategy string

const (
	StrategyKeyword     Strategy = "keyword"     // label synonym + nearby value
	StrategyPattern     Strategy = "pattern"     // shape regex over all tokens
	StrategyMRZ         Strategy = "mrz"         // value supplied by the MRZ decoder
	StrategyFixedOffset Strategy = "fixedOffset" // fixed line position on a page
)

// Shape is the expected data shape of a field value.
type Shape string

const (
	ShapeString Shape = "string"
	ShapeDate   Shape = "date"
	ShapeNumber Shape = "number"
	ShapeEnum   Shape = "enum"
)

// FieldSpec 单个字段的抽取规则
type FieldSpec struct {
	Name     string
	Strategy Strategy
	Shape    Shape
	Required bool

	// Keyword strategy: label synonyms, matched case-insensitively against
	// token sequences.
	Synonyms []string

	// Pattern strategy: candidate regexes in priority order. The first
	// pattern carries full match strength, later ones progressively less.
	Patterns []string

	// MRZ strategy: name of the decoded MRZ field backing this spec.
	MRZField string

	// FixedOffset strategy: reading-order line on the page holding the value.
	Page, LineOffset int

	// Enum shape: allowed values (canonical casing).
	Enum []string
}

// Schema describes one document type: its key, display name and the ordered
// field list the mapper must emit.
type Schema struct {
	Key      string
	Name     string
	Keywords []string // page keywords used by the classifier
	Fields   []FieldSpec
}

// HasMRZ reports whether any field is MRZ-derived, which routes the document
// through the MRZ decoder first.
func (s *Schema) HasMRZ() bool {
	for _, f := range s.Fields {
		if f.Strategy == StrategyMRZ {
			return true
		}
	}
	return false
}

// Summary is the discovery view of a schema.
type Summary struct {
	Key        string `json:"key"`
	Name       string `json:"name"`
	FieldCount int    `json:"fieldsCount"`
}

// Registry holds all known document type schemas. It is populated once at
// startup and read-only afterwards, so it is safe to share across runs.
type Registry struct {
	schemas map[string]*Schema
	order   []string
}

// New builds a registry from the given schemas, preserving their order.
func New(schemas ...*Schema) (*Registry, error) {
	r := &Registry{schemas: make(map[string]*Schema, len(schemas))}
	for _, s := range schemas {
		if s.Key == "" {
			return nil, fmt.Errorf("schema with empty key")
		}
		if _, dup := r.schemas[s.Key]; dup {
			return nil, fmt.Errorf("duplicate schema key: %s", s.Key)
		}
		seen := make(map[string]struct{}, len(s.Fields))
		for _, f := range s.Fields {
			if _, dup := seen[f.Name]; dup {
				return nil, fmt.Errorf("schema %s: duplicate field %s", s.Key, f.Name)
			}
			seen[f.Name] = struct{}{}
		}
		r.schemas[s.Key] = s
		r.order = append(r.order, s.Key)
	}
	return r, nil
}

// Default returns the registry of builtin document types.
func Default() *Registry {
	r, err := New(builtinSchemas()...)
	if err != nil {
		// builtin schemas are code, a conflict is a programming error
		panic(err)
	}
	return r
}

// Lookup returns the schema for key.
func (r *Registry) Lookup(key string) (*Schema, error) {
	s, ok := r.schemas[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, key)
	}
	return s, nil
}

// List returns schema summaries in registration order.
func (r *Registry) List() []Summary {
	out := make([]Summary, 0, len(r.order))
	for _, key := range r.order {
		s := r.schemas[key]
		out = append(out, Summary{Key: s.Key, Name: s.Name, FieldCount: len(s.Fields)})
	}
	return out
}

// Keys returns all registered keys, sorted.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.schemas))
	for k := range r.schemas {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
