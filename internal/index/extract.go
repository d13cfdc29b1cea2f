package index

import (
	"strings"

	"github.com/Cyborgninja21/pychivalry-sub003/internal/ast"
)

// Extract walks a parsed document's tree and produces the index
// contributions for every category (spec §3 "During AST indexing,
// extractors run per category"), grounded on the teacher's parseDoc
// walk (workspace.go:320) which recurses a document's AST assigning a
// NodeIdentifier to each recognized construct.
func Extract(tree *ast.Tree) []Contribution {
	e := &extractor{tree: tree}
	e.visitTopLevel()
	return e.out
}

type extractor struct {
	tree *ast.Tree
	out  []Contribution
}

func (e *extractor) visitTopLevel() {
	root := e.tree.Get(e.tree.Root)
	for _, c := range root.Children {
		n := e.tree.Get(c)
		e.visitTopLevelNode(n)
	}
}

func (e *extractor) visitTopLevelNode(n *ast.Node) {
	switch n.Key {
	case "namespace":
		if n.Value != "" {
			e.out = append(e.out, Contribution{Category: CategoryNamespace, Name: n.Value, Range: n.Range})
		}
		return
	}

	if n.Type != ast.NodeBlock {
		return
	}

	switch {
	case strings.Contains(n.Key, "."):
		// A qualified id ("my_mod.0001") is an event definition; its
		// "type" child distinguishes character/letter/etc event kinds,
		// captured as an attribute for completion/hover filtering.
		attrs := map[string]string{}
		for _, cc := range n.Children {
			child := e.tree.Get(cc)
			if child.Key == "type" {
				attrs["type"] = child.Value
			}
		}
		e.out = append(e.out, Contribution{Category: CategoryEvent, Name: n.Key, Range: n.Range, Attrs: attrs})
		e.extractSavedScopes(n, n.Key)
	case n.Key == "scripted_trigger":
		e.extractNamedChildren(n, CategoryScriptedTrigger)
	case n.Key == "scripted_effect":
		e.extractNamedChildren(n, CategoryScriptedEffect)
	case n.Key == "scripted_list":
		e.extractNamedChildren(n, CategoryScriptedList)
	case n.Key == "script_value" || n.Key == "script_values":
		e.extractNamedChildren(n, CategoryScriptValue)
	case n.Key == "on_action" || n.Key == "on_actions":
		e.extractNamedChildren(n, CategoryOnAction)
	case n.Key == "character_interaction" || n.Key == "character_interactions":
		e.extractNamedChildren(n, CategoryCharacterInteraction)
	case n.Key == "trait" || n.Key == "traits":
		e.extractNamedChildren(n, CategoryTrait)
	case n.Key == "modifier" || n.Key == "modifiers":
		e.extractNamedChildren(n, CategoryModifier)
	case n.Key == "opinion_modifiers":
		e.extractNamedChildren(n, CategoryOpinionModifier)
	case n.Key == "scripted_gui" || n.Key == "scripted_guis":
		e.extractNamedChildren(n, CategoryScriptedGUI)
	}
}

// extractNamedChildren registers every direct child of a grouping block
// (e.g. `scripted_trigger = { my_trigger = { ... } }`) as one symbol
// named after the child's key.
func (e *extractor) extractNamedChildren(n *ast.Node, cat Category) {
	for _, cc := range n.Children {
		child := e.tree.Get(cc)
		if child.Key == "" {
			continue
		}
		e.out = append(e.out, Contribution{Category: cat, Name: child.Key, Range: child.Range})
	}
}

// extractSavedScopes walks an event body for save_scope_as/
// save_temporary_scope_as declarations, tagging each with its enclosing
// event id so completions can filter saved scopes by enclosing event
// (spec §4.F "file-scoped-per-event").
func (e *extractor) extractSavedScopes(n *ast.Node, eventID string) {
	var walk func(idx ast.NodeIndex)
	walk = func(idx ast.NodeIndex) {
		node := e.tree.Get(idx)
		if node.Key == "save_scope_as" || node.Key == "save_temporary_scope_as" {
			if node.Value != "" {
				e.out = append(e.out, Contribution{
					Category: CategorySavedScope,
					Name:     node.Value,
					Range:    node.Range,
					Attrs:    map[string]string{"event": eventID},
				})
			}
		}
		for _, c := range node.Children {
			walk(c)
		}
	}
	for _, c := range n.Children {
		walk(c)
	}
}
