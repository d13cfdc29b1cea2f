// Package diag defines the Diagnostic value shared by every producer —
// parser, scope validator, language-table checks, schema engine, and the
// domain validators — before the orchestrator in internal/diagnostics
// composes and stages them for publication (spec §4.G).
package diag

import "github.com/Cyborgninja21/pychivalry-sub003/internal/ast"

// Severity mirrors the four LSP diagnostic severities.
type Severity int

const (
	SeverityError Severity = iota + 1
	SeverityWarning
	SeverityInformation
	SeverityHint
)

// Diagnostic is one finding, in the {range, severity, code, message,
// source, related?, tags?} shape spec §4.G specifies.
type Diagnostic struct {
	Range    ast.Range
	Severity Severity
	Code     string
	Message  string
	Source   string

	Related []RelatedInfo
	Tags    []Tag

	// Data carries machine-readable payload a code action can use to build
	// a quick fix (e.g. the suggested replacement name) without
	// re-deriving it from Message.
	Data map[string]string
}

// RelatedInfo points to a secondary location relevant to a diagnostic
// (e.g. the `save_scope_as` it expected but never found).
type RelatedInfo struct {
	URI     string
	Range   ast.Range
	Message string
}

// Tag is an LSP diagnostic tag (e.g. Unnecessary, Deprecated).
type Tag int

const (
	TagUnnecessary Tag = iota + 1
	TagDeprecated
)

// Parser diagnostic codes (spec §4.B).
const (
	CodeUnmatchedRBrace = "CK3001"
	CodeUnclosedLBrace  = "CK3002"
)

// Scope diagnostic codes (spec §4.C).
const (
	CodeUnresolvedChainSegment = "CK3201"
	CodeUnsavedScope           = "CK3202"
	CodeIllegalIterator        = "CK3203"
)

// Language-table diagnostic codes (spec §4.D).
const (
	CodeUnknownTrigger        = "CK3101"
	CodeEffectInTriggerBlock  = "CK3102"
	CodeUnknownEffect         = "CK3103"
)

// Domain-validator diagnostic codes (spec §4.G's "events, iterators,
// localization, script values, scripted blocks, variables, style,
// conventions, scope timing" pipeline). Spec §4.B/C/D enumerate codes
// for the parser/scope/language stages only; these extend the same
// CK3xxx numbering for the domain stage that sits after them.
const (
	CodeEventMissingType      = "CK3301"
	CodeUnresolvedLocalization = "CK3302"
	CodeDuplicateDefinition   = "CK3303"
	CodeNamingConvention      = "CK3304"
	CodeScopeUsedBeforeSaved  = "CK3305"
	CodeDanglingReference     = "CK3306"
)

// Source names for the `source` field (spec §7: "source set to the
// component name").
const (
	SourceParse  = "ck3-parse"
	SourceScope  = "ck3-scope"
	SourceSchema = "ck3-schema"
	SourceEvents = "ck3-events"
	SourceLang   = "ck3-lang"
	SourceStyle  = "ck3-style"
	SourceInternal = "ck3-internal"
)
