// Package schema implements the declarative schema engine of spec §3
// "Schema" and §4.E: YAML-derived records that drive diagnostics,
// completions, hover text, and document symbols from data files instead
// of per-construct Go code, grounded on the teacher's
// Workspace.LoadValidators (workspace.go:584) — walk a directory,
// decode each file, build a lookup keyed by identification predicate —
// generalized from "YAML CRD to k8s-openapi validator" to "YAML schema
// file to field-map validator".
package schema

import "regexp"

// FieldType is a field's declared value shape.
type FieldType string

const (
	FieldString FieldType = "string"
	FieldNumber FieldType = "number"
	FieldBool   FieldType = "bool"
	FieldEnum   FieldType = "enum"
	FieldBlock  FieldType = "block"
	FieldList   FieldType = "list"
)

// Field is one entry in a schema's field map (spec §3 "Schema").
type Field struct {
	Type FieldType

	Required      bool
	RequiredWhen  string // a rule name evaluated to decide conditional requirement
	MinOccurs     int
	MaxOccurs     int // 0 means unbounded
	Enum          []string
	Ref           string // name of a nested schema this field's block conforms to
	Code          string // diagnostic code to use for violations of this field, defaults to the schema's
	Default       string
}

// Rule is a named cross-field predicate in the small expression language
// of spec §3/§9: `field.exists`, `field.missing`, `field.value == X`,
// `field.count >= N`, combined with AND|OR|NOT.
type Rule struct {
	Name    string
	Expr    Expr
	Code    string
	Message string
}

// FieldDoc is the hover/completion-snippet documentation for one field
// (spec §3 "field-documentation entries").
type FieldDoc struct {
	Description string
	Detail      string
	Snippet     string
}

// SymbolEntry describes one field that becomes a document-outline entry
// for the schema's "symbols recipe" (spec §3, §4.E "Symbols").
type SymbolEntry struct {
	Field string
	Kind  string // LSP SymbolKind name, e.g. "Event", "Function", "Property"
}

// CodeLensEntry describes one code-lens surfaced above a schema's
// top-level block (spec §3 "code-lens recipe").
type CodeLensEntry struct {
	Title   string
	Command string
}

// Schema is one loaded YAML-derived validation/completion/hover/symbol
// record (spec §3 "Schema").
type Schema struct {
	Name string

	// PathGlobs and BlockKeyPattern together form the identification
	// predicate: a file must match a glob, and a top-level block key in
	// that file must match the pattern, for this schema to apply to it.
	PathGlobs       []string
	BlockKeyPattern *regexp.Regexp

	Constants map[string][]string
	Fields    map[string]*Field
	Nested    map[string]*Schema
	Rules     []Rule
	Docs      map[string]FieldDoc
	Symbols   []SymbolEntry
	CodeLens  []CodeLensEntry

	// DefaultCode is used for field violations that don't set Field.Code.
	DefaultCode string
}

// Matches reports whether path and the top-level block key blockKey
// identify this schema as applicable (spec §3 "identification
// predicate").
func (s *Schema) Matches(path, blockKey string) bool {
	if !s.matchesPath(path) {
		return false
	}
	if s.BlockKeyPattern == nil {
		return true
	}
	return s.BlockKeyPattern.MatchString(blockKey)
}

func (s *Schema) matchesPath(path string) bool {
	if len(s.PathGlobs) == 0 {
		return true
	}
	for _, g := range s.PathGlobs {
		if ok, _ := globMatch(g, path); ok {
			return true
		}
	}
	return false
}
