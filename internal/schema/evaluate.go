package schema

import (
	"fmt"

	"github.com/Cyborgninja21/pychivalry-sub003/internal/ast"
	"github.com/Cyborgninja21/pychivalry-sub003/internal/diag"
)

// Validate evaluates every top-level block in tree against the schemas
// in r that apply to it (spec §4.E "For a given file and for each
// top-level block matching a schema, the engine evaluates its field map
// and nested schemas against the parsed AST").
func Validate(r *Registry, path string, tree *ast.Tree) []diag.Diagnostic {
	var out []diag.Diagnostic
	root := tree.Get(tree.Root)
	for _, c := range root.Children {
		n := tree.Get(c)
		if n.Type != ast.NodeBlock || n.Key == "" {
			continue
		}
		for _, s := range r.Match(path, n.Key) {
			out = append(out, evaluateBlock(tree, s, n)...)
		}
	}
	return out
}

func evaluateBlock(tree *ast.Tree, s *Schema, n *ast.Node) []diag.Diagnostic {
	facts, occurrences := buildFacts(tree, n)
	var out []diag.Diagnostic

	for name, f := range s.Fields {
		out = append(out, checkField(tree, s, n, name, f, facts, occurrences)...)
	}
	out = append(out, checkUnexpectedFields(tree, s, n)...)

	for _, rule := range s.Rules {
		if rule.Expr.Eval(facts) == False {
			out = append(out, diag.Diagnostic{
				Range:    n.Range,
				Severity: diag.SeverityError,
				Code:     codeFor(rule.Code, s),
				Message:  rule.Message,
				Source:   diag.SourceSchema,
			})
		}
	}
	return out
}

// buildFacts derives the Facts view of a block's direct children, plus
// a map from field name to the list of occurrences (for enum/nested
// checks that need the actual nodes).
func buildFacts(tree *ast.Tree, n *ast.Node) (Facts, map[string][]*ast.Node) {
	facts := Facts{Present: map[string]bool{}, Value: map[string]string{}, Count: map[string]int{}}
	occurrences := map[string][]*ast.Node{}
	for _, cidx := range n.Children {
		child := tree.Get(cidx)
		if child.Key == "" {
			continue
		}
		facts.Present[child.Key] = true
		facts.Count[child.Key]++
		if child.Type != ast.NodeBlock {
			facts.Value[child.Key] = child.Value
		}
		occurrences[child.Key] = append(occurrences[child.Key], child)
	}
	return facts, occurrences
}

func checkField(tree *ast.Tree, s *Schema, blockNode *ast.Node, name string, f *Field, facts Facts, occurrences map[string][]*ast.Node) []diag.Diagnostic {
	var out []diag.Diagnostic
	present := facts.Present[name]

	required := f.Required || f.MinOccurs > 0
	if !f.Required && f.RequiredWhen != "" {
		for _, r := range s.Rules {
			if r.Name == f.RequiredWhen {
				required = required || r.Expr.Eval(facts) == True
			}
		}
	}
	count := facts.Count[name]
	minRequired := f.MinOccurs
	if minRequired < 1 {
		minRequired = 1
	}
	if required && count < minRequired {
		msg := fmt.Sprintf("missing required field '%s'", name)
		if present {
			msg = fmt.Sprintf("'%s' must occur at least %d time(s), found %d", name, minRequired, count)
		}
		out = append(out, diag.Diagnostic{
			Range:    blockNode.Range,
			Severity: diag.SeverityError,
			Code:     codeFor(f.Code, s),
			Message:  msg,
			Source:   diag.SourceSchema,
		})
		if !present {
			return out
		}
	}
	if !present {
		return out
	}

	if f.MaxOccurs > 0 && count > f.MaxOccurs {
		out = append(out, diag.Diagnostic{
			Range:    blockNode.Range,
			Severity: diag.SeverityError,
			Code:     codeFor(f.Code, s),
			Message:  fmt.Sprintf("'%s' may occur at most %d time(s), found %d", name, f.MaxOccurs, count),
			Source:   diag.SourceSchema,
		})
	}

	for _, occ := range occurrences[name] {
		out = append(out, checkFieldValue(tree, s, f, name, occ)...)
	}
	return out
}

func checkFieldValue(tree *ast.Tree, s *Schema, f *Field, name string, occ *ast.Node) []diag.Diagnostic {
	var out []diag.Diagnostic

	if f.Type == FieldEnum && len(f.Enum) > 0 && occ.Type != ast.NodeBlock {
		ok := false
		for _, v := range f.Enum {
			if v == occ.Value {
				ok = true
				break
			}
		}
		if !ok {
			out = append(out, diag.Diagnostic{
				Range:    occ.Range,
				Severity: diag.SeverityError,
				Code:     codeFor(f.Code, s),
				Message:  fmt.Sprintf("'%s' is not a valid value for '%s'", occ.Value, name),
				Source:   diag.SourceSchema,
			})
		}
	}

	if f.Type == FieldBlock && occ.Type != ast.NodeBlock {
		out = append(out, diag.Diagnostic{
			Range:    occ.Range,
			Severity: diag.SeverityError,
			Code:     codeFor(f.Code, s),
			Message:  fmt.Sprintf("'%s' must be a block", name),
			Source:   diag.SourceSchema,
		})
		return out
	}

	if f.Ref != "" && occ.Type == ast.NodeBlock {
		nested, ok := s.Nested[f.Ref]
		if ok {
			out = append(out, evaluateBlock(tree, nested, occ)...)
		}
	}
	return out
}

func checkUnexpectedFields(tree *ast.Tree, s *Schema, n *ast.Node) []diag.Diagnostic {
	var out []diag.Diagnostic
	for _, cidx := range n.Children {
		child := tree.Get(cidx)
		if child.Key == "" {
			continue
		}
		if _, ok := s.Fields[child.Key]; ok {
			continue
		}
		out = append(out, diag.Diagnostic{
			Range:    child.Range,
			Severity: diag.SeverityWarning,
			Code:     codeFor("", s),
			Message:  fmt.Sprintf("'%s' is not a recognized field of '%s'", child.Key, s.Name),
			Source:   diag.SourceSchema,
		})
	}
	return out
}

func codeFor(fieldCode string, s *Schema) string {
	if fieldCode != "" {
		return fieldCode
	}
	if s.DefaultCode != "" {
		return s.DefaultCode
	}
	return "CK3SCHEMA"
}

// Hover resolves the field named name in schema s to its documentation
// record (spec §4.E "Hover: resolve the field under cursor to its
// documentation record").
func Hover(s *Schema, name string) (FieldDoc, bool) {
	d, ok := s.Docs[name]
	return d, ok
}

// Completions proposes fields not yet present (or still repeatable)
// in a block already evaluated once via buildFacts-equivalent presence
// data, using each field's documentation snippet (spec §4.E
// "Completions").
func Completions(tree *ast.Tree, s *Schema, n *ast.Node) []CompletionItem {
	facts, _ := buildFacts(tree, n)
	var out []CompletionItem
	for name, f := range s.Fields {
		count := facts.Count[name]
		if f.MaxOccurs > 0 && count >= f.MaxOccurs {
			continue
		}
		doc := s.Docs[name]
		out = append(out, CompletionItem{
			Label:   name,
			Detail:  doc.Detail,
			Snippet: doc.Snippet,
		})
	}
	return out
}

// CompletionItem is the minimal shape internal/features needs to render
// an LSP CompletionItem from a schema-driven proposal.
type CompletionItem struct {
	Label   string
	Detail  string
	Snippet string
}

// Symbols walks s's symbols recipe against n's children, building one
// outline entry per listed field present (spec §4.E "Symbols").
func Symbols(tree *ast.Tree, s *Schema, n *ast.Node) []SymbolResult {
	var out []SymbolResult
	for _, entry := range s.Symbols {
		for _, cidx := range n.Children {
			child := tree.Get(cidx)
			if child.Key != entry.Field {
				continue
			}
			out = append(out, SymbolResult{Name: child.Key, Kind: entry.Kind, Range: child.Range})
		}
	}
	return out
}

// SymbolResult is one document-outline entry produced by Symbols.
type SymbolResult struct {
	Name  string
	Kind  string
	Range ast.Range
}
