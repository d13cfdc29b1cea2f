// Package diagnostics composes the fixed validator pipeline of spec
// §4.G — syntax, scope, built-in semantic, schema, and the domain
// validators — into the two publication stages the document pipeline
// needs, grounded on Workspace.Validate/validationDiagnostics
// (workspace.go:441-544): a pure function from (ast, index, scope
// tables, language tables, schemas) to []Diagnostic, generalized from
// "one k8s-openapi validator per GVK" to a fixed pipeline of named
// Validate(tree, path, index) []Diagnostic checks.
package diagnostics

import (
	"github.com/Cyborgninja21/pychivalry-sub003/internal/ast"
	"github.com/Cyborgninja21/pychivalry-sub003/internal/diag"
	"github.com/Cyborgninja21/pychivalry-sub003/internal/index"
	"github.com/Cyborgninja21/pychivalry-sub003/internal/lang"
	"github.com/Cyborgninja21/pychivalry-sub003/internal/schema"
	"github.com/Cyborgninja21/pychivalry-sub003/internal/scope"
)

// DomainValidator is one named check in the fixed domain-validator
// pipeline (spec §4.G: "events, iterators, localization, script values,
// scripted blocks, variables, style, conventions, scope timing").
type DomainValidator struct {
	Name string
	Fn   func(tree *ast.Tree, path string, idx *index.Index) []diag.Diagnostic
}

// defaultDomainValidators is the fixed pipeline every Orchestrator runs,
// in order. "iterators" is carried by scope.Annotate's CK3203 check
// already (an iterator's legality depends on the same scope tables
// chain validation does, so splitting it into a second pass would
// duplicate the walk); "style" belongs to internal/features' Formatting
// adapter, which sees raw source text this pipeline does not retain.
// Neither is a separate entry here.
var defaultDomainValidators = []DomainValidator{
	{Name: "events", Fn: validateEvents},
	{Name: "localization", Fn: validateLocalization},
	{Name: "script_values", Fn: validateScriptValueReferences},
	{Name: "scripted_blocks", Fn: validateScriptedBlockReferences},
	{Name: "dependencies", Fn: validateDependencies},
	{Name: "conventions", Fn: validateConventions},
	{Name: "scope_timing", Fn: validateScopeTiming},
}

// Orchestrator runs the fixed validator pipeline against a parsed
// document. It holds no per-document state; every method is a pure
// function of its arguments, matching Workspace.Validate's shape.
type Orchestrator struct {
	schemas *schema.Registry
	domain  []DomainValidator
}

// New constructs an Orchestrator. schemas may be nil (no schema files
// loaded yet); the schema stage is then skipped.
func New(schemas *schema.Registry) *Orchestrator {
	return &Orchestrator{schemas: schemas, domain: defaultDomainValidators}
}

// SetSchemas swaps in a freshly reloaded schema registry (called from
// the schema directory's fsnotify watch callback).
func (o *Orchestrator) SetSchemas(schemas *schema.Registry) {
	o.schemas = schemas
}

// RunSyntaxAndScope produces the first of the document pipeline's two
// staged publications (spec §4.I step 4.d): parse diagnostics plus the
// scope-annotation walk's findings.
func (o *Orchestrator) RunSyntaxAndScope(tree *ast.Tree, rootScope ast.ScopeType, parseDiags []diag.Diagnostic) []diag.Diagnostic {
	out := append([]diag.Diagnostic(nil), parseDiags...)
	out = append(out, scope.Annotate(tree, rootScope)...)
	return out
}

// RunSemantic produces the second stage's contribution (spec §4.I step
// 4.e): built-in semantic (language-table), schema, and domain
// validator findings. The document pipeline publishes this concatenated
// with RunSyntaxAndScope's result, not in isolation.
func (o *Orchestrator) RunSemantic(tree *ast.Tree, path string, idx *index.Index) []diag.Diagnostic {
	var out []diag.Diagnostic
	out = append(out, lang.Validate(tree)...)
	if o.schemas != nil {
		out = append(out, schema.Validate(o.schemas, path, tree)...)
	}
	for _, v := range o.domain {
		out = append(out, v.Fn(tree, path, idx)...)
	}
	return out
}

// RunAll runs the entire pipeline in one pass, for callers that publish
// a single combined result rather than staging it. No command calls it:
// `validate_workspace` and `check_dependencies` report the document
// pipeline's cached diagnostics instead.
func (o *Orchestrator) RunAll(tree *ast.Tree, path string, idx *index.Index, rootScope ast.ScopeType, parseDiags []diag.Diagnostic) []diag.Diagnostic {
	out := o.RunSyntaxAndScope(tree, rootScope, parseDiags)
	out = append(out, o.RunSemantic(tree, path, idx)...)
	return out
}

// Split partitions diags into syntax (CK3001-3002) and everything else,
// per spec §4.G ("splits the output into syntax and semantic for staged
// publication"). Used by callers that already hold a combined slice
// (e.g. from RunAll) and need to republish it in the two-stage shape.
func Split(diags []diag.Diagnostic) (syntax, semantic []diag.Diagnostic) {
	for _, d := range diags {
		if d.Code == diag.CodeUnmatchedRBrace || d.Code == diag.CodeUnclosedLBrace {
			syntax = append(syntax, d)
		} else {
			semantic = append(semantic, d)
		}
	}
	return syntax, semantic
}
