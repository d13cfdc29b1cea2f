package diagnostics

import (
	"fmt"
	"strings"

	"github.com/Cyborgninja21/pychivalry-sub003/internal/ast"
	"github.com/Cyborgninja21/pychivalry-sub003/internal/diag"
	"github.com/Cyborgninja21/pychivalry-sub003/internal/index"
	"github.com/Cyborgninja21/pychivalry-sub003/internal/lang"
)

// isEventHeader reports whether n is a top-level, dot-qualified block —
// an event definition header rather than ordinary nested content (same
// test internal/scope and internal/index use to recognize event ids).
func isEventHeader(tree *ast.Tree, n *ast.Node) bool {
	return n.Parent == tree.Root && n.Type == ast.NodeBlock && strings.Contains(n.Key, ".")
}

// validateEvents flags event bodies with no `type` field (spec §4.G
// "events"): every event needs a type to be dispatched by the host
// game, and the schema engine only enforces this when an event schema
// is actually loaded, so this check runs unconditionally.
func validateEvents(tree *ast.Tree, path string, idx *index.Index) []diag.Diagnostic {
	var out []diag.Diagnostic
	root := tree.Get(tree.Root)
	for _, c := range root.Children {
		n := tree.Get(c)
		if !isEventHeader(tree, n) {
			continue
		}
		hasType := false
		for _, cc := range n.Children {
			if tree.Get(cc).Key == "type" {
				hasType = true
				break
			}
		}
		if !hasType {
			out = append(out, diag.Diagnostic{
				Range:    n.Range,
				Severity: diag.SeverityError,
				Code:     diag.CodeEventMissingType,
				Message:  fmt.Sprintf("event '%s' has no 'type' field", n.Key),
				Source:   diag.SourceEvents,
			})
		}
	}
	return out
}

// validateLocalization cross-checks `desc`/`title`/`name` references
// written inside an event body against the workspace localization index
// (spec §4.G "localization"; the index's CategoryLocalization entries
// come from internal/locale scanning .yml files, not this parser).
func validateLocalization(tree *ast.Tree, path string, idx *index.Index) []diag.Diagnostic {
	var out []diag.Diagnostic
	localizedFields := map[string]bool{"desc": true, "title": true, "name": true, "flavor": true}
	tree.Walk(tree.Root, func(i ast.NodeIndex) bool {
		n := tree.Get(i)
		if n.Type == ast.NodeAssignment && localizedFields[n.Key] && n.Value != "" {
			if !idx.Has(index.CategoryLocalization, n.Value) {
				out = append(out, diag.Diagnostic{
					Range:    n.Range,
					Severity: diag.SeverityWarning,
					Code:     diag.CodeUnresolvedLocalization,
					Message:  fmt.Sprintf("localization key '%s' not found", n.Value),
					Source:   diag.SourceEvents,
				})
			}
		}
		return true
	})
	return out
}

// groupingCategories pairs the top-level grouping block keys extract.go
// recognizes with the index category their named children land in, so
// the duplicate-definition checks below can be driven by the same
// contract index.Extract already uses instead of re-deriving it.
var groupingCategories = map[string]index.Category{
	"scripted_trigger": index.CategoryScriptedTrigger,
	"scripted_effect":  index.CategoryScriptedEffect,
	"scripted_list":    index.CategoryScriptedList,
}

var scriptValueCategories = map[string]index.Category{
	"script_value":  index.CategoryScriptValue,
	"script_values": index.CategoryScriptValue,
}

// validateScriptedBlockReferences flags scripted_trigger/scripted_effect
// names defined more than once across the workspace (spec §4.G
// "scripted blocks"), using the index's already-merged, cross-file view
// so the duplicate may live in a different file than the one being
// diagnosed.
func validateScriptedBlockReferences(tree *ast.Tree, path string, idx *index.Index) []diag.Diagnostic {
	return duplicateDefinitions(tree, idx, groupingCategories)
}

// validateScriptValueReferences flags script_value names defined more
// than once across the workspace (spec §4.G "script values").
func validateScriptValueReferences(tree *ast.Tree, path string, idx *index.Index) []diag.Diagnostic {
	return duplicateDefinitions(tree, idx, scriptValueCategories)
}

func duplicateDefinitions(tree *ast.Tree, idx *index.Index, groupKeys map[string]index.Category) []diag.Diagnostic {
	var out []diag.Diagnostic
	root := tree.Get(tree.Root)
	for _, c := range root.Children {
		n := tree.Get(c)
		cat, ok := groupKeys[n.Key]
		if !ok || n.Type != ast.NodeBlock {
			continue
		}
		for _, cc := range n.Children {
			child := tree.Get(cc)
			if child.Key == "" {
				continue
			}
			syms := idx.Lookup(cat, child.Key)
			if len(syms) <= 1 {
				continue
			}
			var locs []diag.RelatedInfo
			for _, s := range syms {
				locs = append(locs, diag.RelatedInfo{URI: s.URI, Range: s.Range, Message: "also defined here"})
			}
			out = append(out, diag.Diagnostic{
				Range:    child.Range,
				Severity: diag.SeverityError,
				Code:     diag.CodeDuplicateDefinition,
				Message:  fmt.Sprintf("'%s' is defined %d times across the workspace", child.Key, len(syms)),
				Source:   diag.SourceEvents,
				Related:  locs,
			})
		}
	}
	return out
}

// validateConventions checks event ids follow `namespace.number` (spec
// §4.G "conventions"; spec Glossary's own definition of "Event").
func validateConventions(tree *ast.Tree, path string, idx *index.Index) []diag.Diagnostic {
	var out []diag.Diagnostic
	root := tree.Get(tree.Root)
	for _, c := range root.Children {
		n := tree.Get(c)
		if !isEventHeader(tree, n) {
			continue
		}
		dot := strings.LastIndex(n.Key, ".")
		namespace, number := n.Key[:dot], n.Key[dot+1:]
		if namespace == "" || number == "" || !isAllDigits(number) {
			out = append(out, diag.Diagnostic{
				Range:    n.Range,
				Severity: diag.SeverityWarning,
				Code:     diag.CodeNamingConvention,
				Message:  fmt.Sprintf("event id '%s' does not follow the 'namespace.number' convention", n.Key),
				Source:   diag.SourceStyle,
			})
		}
	}
	return out
}

// scriptedDefinitionBlocks pairs the grouping keys whose children are
// scripted_trigger/scripted_effect definitions with the index category
// those names register under, reusing the same contract index.Extract's
// extractNamedChildren already owns instead of re-deriving it.
var scriptedDefinitionBlocks = map[string]index.Category{
	"scripted_trigger": index.CategoryScriptedTrigger,
	"scripted_effect":  index.CategoryScriptedEffect,
}

// validateDependencies implements the check_dependencies command (spec
// §6) as the dangling-reference diagnostic stream spec.md describes it:
// one scripted_trigger/scripted_effect's body calling another, and an
// `on_action = { NAME = yes }` firing block naming an on_action, are the
// two places a name resolves purely against the workspace index rather
// than internal/lang's static trigger/effect tables.
func validateDependencies(tree *ast.Tree, path string, idx *index.Index) []diag.Diagnostic {
	var out []diag.Diagnostic
	out = append(out, validateScriptedBlockBodies(tree, idx)...)
	out = append(out, validateOnActionInvocations(tree, idx)...)
	return out
}

// validateScriptedBlockBodies walks the body of every scripted_trigger/
// scripted_effect definition, flagging a command leaf that names
// neither a built-in trigger/effect nor a scripted_trigger/
// scripted_effect defined anywhere in the workspace. internal/lang's
// Validate visits a scripted block definition's body with BlockUnknown
// context — the definition's own key is a header, not a recognized
// trigger/effect block key, so its childCtx never becomes
// BlockTrigger/BlockEffect — so a call one scripted block makes to
// another goes unchecked there.
func validateScriptedBlockBodies(tree *ast.Tree, idx *index.Index) []diag.Diagnostic {
	var out []diag.Diagnostic
	root := tree.Get(tree.Root)
	for _, c := range root.Children {
		n := tree.Get(c)
		if _, ok := scriptedDefinitionBlocks[n.Key]; !ok {
			continue
		}
		for _, cc := range n.Children {
			tree.Walk(cc, func(i ast.NodeIndex) bool {
				if i == cc {
					return true // the definition header itself, not a call
				}
				node := tree.Get(i)
				if node.Key == "" {
					return true
				}
				leaf := invocationLeaf(node.Key)
				if leaf == "on_action" && node.Type == ast.NodeBlock {
					return false // its children name on_actions, checked separately
				}
				if isStructuralLeaf(leaf) || lang.KnownTriggers[leaf] || lang.KnownEffects[leaf] {
					return true
				}
				if idx.Has(index.CategoryScriptedEffect, leaf) || idx.Has(index.CategoryScriptedTrigger, leaf) {
					return true
				}
				out = append(out, diag.Diagnostic{
					Range:    node.Range,
					Severity: diag.SeverityWarning,
					Code:     diag.CodeDanglingReference,
					Message:  fmt.Sprintf("'%s' is not a known trigger/effect, nor a scripted_trigger/scripted_effect defined anywhere in the workspace", leaf),
					Source:   diag.SourceEvents,
				})
				return true
			})
		}
	}
	return out
}

// validateOnActionInvocations flags an `on_action = { NAME = yes }`
// firing block (the on_action effect command's argument shape, spec §3
// "on_actions") whose NAME is absent from the index, anywhere a
// scripted_trigger/scripted_effect definition or an event body uses one.
func validateOnActionInvocations(tree *ast.Tree, idx *index.Index) []diag.Diagnostic {
	var out []diag.Diagnostic
	tree.Walk(tree.Root, func(i ast.NodeIndex) bool {
		n := tree.Get(i)
		if n.Parent == tree.Root || invocationLeaf(n.Key) != "on_action" || n.Type != ast.NodeBlock {
			return true
		}
		for _, cc := range n.Children {
			child := tree.Get(cc)
			if child.Key != "" && !idx.Has(index.CategoryOnAction, child.Key) {
				out = append(out, diag.Diagnostic{
					Range:    child.Range,
					Severity: diag.SeverityWarning,
					Code:     diag.CodeDanglingReference,
					Message:  fmt.Sprintf("on_action '%s' is not defined anywhere in the workspace", child.Key),
					Source:   diag.SourceEvents,
				})
			}
		}
		return false
	})
	return out
}

// isStructuralLeaf reports whether leaf is a block key/keyword that
// opens its own nested context rather than naming a trigger/effect
// invocation, the same exclusion list internal/lang's checkLeaf uses.
func isStructuralLeaf(leaf string) bool {
	return lang.ControlFlowKeywords[leaf] || lang.IsIteratorKey(leaf) ||
		lang.TriggerBlockKeys[leaf] || lang.EffectBlockKeys[leaf] || leaf == "option"
}

func invocationLeaf(key string) string {
	if i := strings.LastIndex(key, "."); i >= 0 {
		return key[i+1:]
	}
	return key
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// validateScopeTiming flags a bare `scope:NAME` reference (single
// segment, no trailing `.link` — the case internal/scope's chain
// validator deliberately leaves unchecked, see DESIGN.md) used before
// any `save_scope_as NAME`/`save_temporary_scope_as NAME` earlier in the
// same event body (spec §4.G "scope timing").
func validateScopeTiming(tree *ast.Tree, path string, idx *index.Index) []diag.Diagnostic {
	var out []diag.Diagnostic
	root := tree.Get(tree.Root)
	for _, c := range root.Children {
		n := tree.Get(c)
		if !isEventHeader(tree, n) {
			continue
		}
		declared := map[string]bool{}
		tree.Walk(c, func(i ast.NodeIndex) bool {
			node := tree.Get(i)
			switch node.Key {
			case "save_scope_as", "save_temporary_scope_as":
				if node.Value != "" {
					declared[node.Value] = true
				}
			default:
				if strings.HasPrefix(node.Key, "scope:") && !strings.Contains(node.Key, ".") {
					name := strings.TrimPrefix(node.Key, "scope:")
					if !declared[name] {
						out = append(out, diag.Diagnostic{
							Range:    node.Range,
							Severity: diag.SeverityError,
							Code:     diag.CodeScopeUsedBeforeSaved,
							Message:  fmt.Sprintf("scope:%s used before it is saved in this event", name),
							Source:   diag.SourceScope,
						})
					}
				}
			}
			return true
		})
	}
	return out
}
