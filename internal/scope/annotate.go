package scope

import (
	"fmt"

	"github.com/Cyborgninja21/pychivalry-sub003/internal/ast"
	"github.com/Cyborgninja21/pychivalry-sub003/internal/diag"
	"github.com/Cyborgninja21/pychivalry-sub003/internal/lang"
)

// bodyScope tracks the saved-scope names declared so far within the
// current event/scripted-effect/scripted-trigger body (spec §4.C.4,
// §4.F "file-scoped-per-event").
type bodyScope struct {
	saved map[string]bool
}

func newBodyScope() *bodyScope {
	return &bodyScope{saved: map[string]bool{}}
}

func (b *bodyScope) has(name string) bool {
	return b.saved[name]
}

func (b *bodyScope) save(name string) {
	b.saved[name] = true
}

// Annotate performs the single walk of spec §4.C: it resolves and sets
// ScopeType on every node in the tree starting from rootScope, and
// returns the scope-related diagnostics (CK3201-3203). It is called once
// per parse, after tree construction (spec §4.B).
func Annotate(tree *ast.Tree, rootScope ast.ScopeType) []diag.Diagnostic {
	w := &walker{tree: tree}
	w.visitChildren(tree.Root, rootScope, nil, nil)
	return w.diags
}

type walker struct {
	tree  *ast.Tree
	diags []diag.Diagnostic
}

// visitChildren annotates every child of idx, threading the current
// scope, the ancestor-scope stack (nearest first, for prev/root), and the
// current saved-scope body tracker (nil outside any event/scripted body).
func (w *walker) visitChildren(idx ast.NodeIndex, curScope ast.ScopeType, ancestors []ast.ScopeType, body *bodyScope) {
	for _, c := range w.tree.Get(idx).Children {
		w.visitNode(c, curScope, ancestors, body)
	}
}

func (w *walker) visitNode(idx ast.NodeIndex, curScope ast.ScopeType, ancestors []ast.ScopeType, body *bodyScope) {
	n := w.tree.Get(idx)
	n.ScopeType = curScope

	// Top-level keys (namespace declarations, event/scripted_effect/
	// scripted_trigger ids such as "my_mod.0001") name a definition, not
	// a scope-navigation chain, even though they may themselves contain
	// a literal '.'. A fresh saved-scope body starts here.
	isTopLevel := n.Parent == w.tree.Root
	childBody := body
	if body == nil && isTopLevel {
		childBody = newBodyScope()
	}

	if n.Key != "" && !isTopLevel {
		w.checkSavedScopeDeclaration(n, childBody)
		w.checkChain(n, curScope, ancestors, childBody)
	}

	if n.Type != ast.NodeBlock {
		return
	}

	childScope := curScope
	if !isTopLevel {
		childScope = w.childBlockScope(n, curScope, childBody)
		w.checkIteratorContext(n, curScope)
	}

	newAncestors := append([]ast.ScopeType{curScope}, ancestors...)
	w.visitChildren(idx, childScope, newAncestors, childBody)
}

// checkSavedScopeDeclaration records `save_scope_as = NAME` /
// `save_temporary_scope_as = NAME` declarations into the enclosing body
// tracker (spec §3 "Lifecycle").
func (w *walker) checkSavedScopeDeclaration(n *ast.Node, body *bodyScope) {
	if body == nil {
		return
	}
	if n.Key == "save_scope_as" || n.Key == "save_temporary_scope_as" {
		if n.Value != "" {
			body.save(n.Value)
		}
	}
}

// childBlockScope determines the scope a block's children should be
// evaluated in (spec §4.C.1): inherited from the parent unless the key
// names an iterator, a `scope:NAME` switch, or a known link.
func (w *walker) childBlockScope(n *ast.Node, parentScope ast.ScopeType, body *bodyScope) ast.ScopeType {
	segs := Segments(n.Key)
	leaf := segs[len(segs)-1]

	if _, base, ok := lang.IteratorPrefix(leaf); ok {
		target, known := ResolveIteratorBase(parentScope, base)
		if known {
			return target
		}
		return ast.ScopeUnknown
	}

	var savedFn func(string) bool
	if body != nil {
		savedFn = body.has
	}
	res := ValidateChain(parentScope, segs, nil, savedFn)
	if res.BadIndex == -1 {
		return res.Final
	}
	return parentScope
}

// checkChain validates a node's key as a dot-separated chain and records
// CK3201/CK3202 as appropriate (spec §4.C.3-4). Only multi-segment keys
// are validated: a bare single-word key is either a recognized keyword
// (trigger/immediate/...), a trigger/effect name (internal/lang's
// concern), or a single scope link consumed silently by childBlockScope,
// never a chain that can go "unresolved" in isolation.
func (w *walker) checkChain(n *ast.Node, scopeType ast.ScopeType, ancestors []ast.ScopeType, body *bodyScope) {
	segs := Segments(n.Key)
	if len(segs) < 2 {
		return
	}
	// For a plain assignment/scalar (not a block), the final segment is
	// the trigger/effect/comparison command applied once navigation
	// completes, not itself a scope link (spec §4.C.3 "a.b.c.cmd = v").
	navSegs := segs
	if n.Type != ast.NodeBlock {
		navSegs = segs[:len(segs)-1]
		if len(navSegs) == 0 {
			return
		}
	}

	var savedFn func(string) bool
	if body != nil {
		savedFn = body.has
	}
	res := ValidateChain(scopeType, navSegs, ancestors, savedFn)
	if res.BadIndex == -1 {
		return
	}

	badSeg := navSegs[res.BadIndex]
	if res.NeedsSavedScope != "" {
		w.diags = append(w.diags, diag.Diagnostic{
			Range:    n.Range,
			Severity: diag.SeverityError,
			Code:     diag.CodeUnsavedScope,
			Message:  fmt.Sprintf("scope:%s is not saved before use in this event/effect/trigger", res.NeedsSavedScope),
			Source:   diag.SourceScope,
		})
		return
	}

	// Resolve the scope just before the bad segment to offer a
	// near-miss suggestion (spec §7).
	priorScope := scopeType
	if res.BadIndex > 0 {
		partial := ValidateChain(scopeType, navSegs[:res.BadIndex], ancestors, savedFn)
		priorScope = partial.Final
	}
	msg := fmt.Sprintf("unresolved scope link '%s' from %s", badSeg, priorScope)
	data := map[string]string{}
	if suggestion, ok := SuggestLink(priorScope, badSeg); ok {
		msg = fmt.Sprintf("%s; did you mean '%s'?", msg, suggestion)
		data["suggestion"] = suggestion
	}
	w.diags = append(w.diags, diag.Diagnostic{
		Range:    n.Range,
		Severity: diag.SeverityError,
		Code:     diag.CodeUnresolvedChainSegment,
		Message:  msg,
		Source:   diag.SourceScope,
		Data:     data,
	})
}

// checkIteratorContext enforces spec §4.C.5: `every_foo` is disallowed
// inside a trigger block (an any_/any analog is required), and inside an
// effect block the iterator's base must be a legal link from the current
// scope.
func (w *walker) checkIteratorContext(n *ast.Node, scopeType ast.ScopeType) {
	segs := Segments(n.Key)
	leaf := segs[len(segs)-1]
	prefix, base, ok := lang.IteratorPrefix(leaf)
	if !ok {
		return
	}

	if prefix == "every_" && w.inTriggerContext(n) {
		w.diags = append(w.diags, diag.Diagnostic{
			Range:    n.Range,
			Severity: diag.SeverityError,
			Code:     diag.CodeIllegalIterator,
			Message:  fmt.Sprintf("'%s' is not allowed in a trigger block; use 'any_%s' instead", leaf, base),
			Source:   diag.SourceScope,
		})
		return
	}

	if _, known := ResolveIteratorBase(scopeType, base); !known && scopeType != ast.ScopeAny && scopeType != ast.ScopeUnknown {
		w.diags = append(w.diags, diag.Diagnostic{
			Range:    n.Range,
			Severity: diag.SeverityError,
			Code:     diag.CodeIllegalIterator,
			Message:  fmt.Sprintf("'%s' is not a legal link from scope %s", base, scopeType),
			Source:   diag.SourceScope,
		})
	}
}

// inTriggerContext reports whether n's block is evaluated as a trigger,
// per the nearest enclosing lang.BlockTrigger key.
func (w *walker) inTriggerContext(n *ast.Node) bool {
	idx := n.Parent
	for idx != ast.NoIndex {
		p := w.tree.Get(idx)
		if p.Key != "" {
			segs := Segments(p.Key)
			leaf := segs[len(segs)-1]
			switch lang.ClassifyBlock(leaf) {
			case lang.BlockTrigger:
				return true
			case lang.BlockEffect, lang.BlockOption:
				return false
			}
		}
		idx = p.Parent
	}
	return false
}
