package lang

import (
	"fmt"
	"strings"

	"github.com/agext/levenshtein"

	"github.com/Cyborgninja21/pychivalry-sub003/internal/ast"
	"github.com/Cyborgninja21/pychivalry-sub003/internal/diag"
)

// Validate walks tree and reports CK3101 (unknown trigger), CK3102
// (effect used inside a trigger block) and CK3103 (unknown effect) per
// spec §4.D. The walk starts at the tree root in BlockUnknown context,
// which disables leaf validation until a trigger/effect/option key is
// seen.
func Validate(tree *ast.Tree) []diag.Diagnostic {
	v := &validator{tree: tree}
	v.visitChildren(tree.Root, BlockUnknown)
	return v.diags
}

type validator struct {
	tree  *ast.Tree
	diags []diag.Diagnostic
}

func (v *validator) visitChildren(idx ast.NodeIndex, ctx BlockKind) {
	for _, c := range v.tree.Get(idx).Children {
		v.visitNode(c, ctx)
	}
}

func (v *validator) visitNode(idx ast.NodeIndex, ctx BlockKind) {
	n := v.tree.Get(idx)

	leaf := lastSegment(n.Key)

	// A top-level key (namespace, "my_mod.0001", scripted_effect/
	// scripted_trigger names) is a definition header, never itself a
	// trigger/effect command.
	isTopLevel := n.Parent == v.tree.Root
	if !isTopLevel && n.Key != "" {
		v.checkLeaf(n, leaf, ctx)
	}

	if n.Type != ast.NodeBlock {
		return
	}

	childCtx := ctx
	switch {
	case isTopLevel:
		childCtx = BlockUnknown
	case TriggerBlockKeys[leaf]:
		childCtx = BlockTrigger
	case EffectBlockKeys[leaf]:
		childCtx = BlockEffect
	case leaf == "option":
		childCtx = BlockOption
	case IsIteratorKey(leaf):
		// An iterator inherits its enclosing context: any_x under a
		// trigger is itself evaluated as a trigger, under immediate as
		// an effect.
	}

	v.visitChildren(idx, childCtx)
}

// checkLeaf reports a diagnostic for a bare (non-chain) leaf key
// evaluated directly in a trigger or effect context. Control-flow
// keywords, iterator keys, and keys that open their own nested context
// (trigger/effect/option block keys) are structural, not commands, and
// are never flagged.
func (v *validator) checkLeaf(n *ast.Node, leaf string, ctx BlockKind) {
	if ctx == BlockUnknown {
		return
	}
	if ControlFlowKeywords[leaf] || IsIteratorKey(leaf) {
		return
	}
	if TriggerBlockKeys[leaf] || EffectBlockKeys[leaf] || leaf == "option" {
		return
	}
	// Dot-chains navigate scope before applying a command; the scope
	// package validates the navigation portion (CK3201/3202) and the
	// trailing command (leaf) is still checked here regardless.
	switch ctx {
	case BlockTrigger:
		if KnownTriggers[leaf] {
			return
		}
		if KnownEffects[leaf] {
			v.diags = append(v.diags, diag.Diagnostic{
				Range:    n.Range,
				Severity: diag.SeverityError,
				Code:     diag.CodeEffectInTriggerBlock,
				Message:  fmt.Sprintf("'%s' is an effect and cannot be used inside a trigger block", leaf),
				Source:   diag.SourceLang,
			})
			return
		}
		v.reportUnknown(n, leaf, diag.CodeUnknownTrigger, "trigger", KnownTriggers)
	case BlockEffect, BlockOption:
		if KnownEffects[leaf] {
			return
		}
		v.reportUnknown(n, leaf, diag.CodeUnknownEffect, "effect", KnownEffects)
	}
}

func (v *validator) reportUnknown(n *ast.Node, leaf, code, kind string, table map[string]bool) {
	msg := fmt.Sprintf("'%s' is not a known %s", leaf, kind)
	data := map[string]string{}
	if suggestion, ok := suggest(leaf, table); ok {
		msg = fmt.Sprintf("%s; did you mean '%s'?", msg, suggestion)
		data["suggestion"] = suggestion
	}
	v.diags = append(v.diags, diag.Diagnostic{
		Range:    n.Range,
		Severity: diag.SeverityError,
		Code:     code,
		Message:  msg,
		Source:   diag.SourceLang,
		Data:     data,
	})
}

// suggest returns the closest name in table to name within Levenshtein
// distance 2, for CK3101/CK3103 quick-fix suggestions (spec §8 scenario 2).
func suggest(name string, table map[string]bool) (string, bool) {
	best := ""
	bestDist := 3
	for candidate := range table {
		d := levenshtein.Distance(name, candidate, nil)
		if d <= 2 && d < bestDist {
			best, bestDist = candidate, d
		}
	}
	return best, best != ""
}

// IsIteratorKey reports whether key carries a recognized iterator prefix.
func IsIteratorKey(key string) bool {
	_, _, ok := IteratorPrefix(key)
	return ok
}

func lastSegment(key string) string {
	if i := strings.LastIndexByte(key, '.'); i >= 0 {
		return key[i+1:]
	}
	return key
}
