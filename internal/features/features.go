// Package features implements the ~15 thin feature adapters of spec
// §4.J: completion, hover, definition, references, rename, semantic
// tokens, symbols, code lens, inlay hints, folding, formatting,
// document highlight, and code actions. Each adapter is a pure
// function of the AST/index/schemas already held by the document
// pipeline, grounded on the teacher's handler.go "read the workspace,
// render a reply" shape (Handle's per-method switch calling into
// Workspace getters and mapping the result into an lsp.* type). The
// LSP wire types themselves are internal/lspserver's concern (the
// "generic LSP runtime" spec.md scopes out of this package); every
// adapter here returns a plain result type keyed on ast.Position/
// ast.Range so it has no dependency on the transport library.
package features

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agext/levenshtein"

	"github.com/Cyborgninja21/pychivalry-sub003/internal/ast"
	"github.com/Cyborgninja21/pychivalry-sub003/internal/diag"
	"github.com/Cyborgninja21/pychivalry-sub003/internal/index"
	"github.com/Cyborgninja21/pychivalry-sub003/internal/lang"
	"github.com/Cyborgninja21/pychivalry-sub003/internal/schema"
	"github.com/Cyborgninja21/pychivalry-sub003/internal/scope"
)

// nodeAt returns the most specific (deepest) node whose range contains
// pos, or false if pos falls outside the tree entirely.
func nodeAt(tree *ast.Tree, pos ast.Position) (ast.NodeIndex, bool) {
	best := ast.NoIndex
	tree.Walk(tree.Root, func(i ast.NodeIndex) bool {
		n := tree.Get(i)
		if n.Type == ast.NodeRoot || !n.Range.Contains(pos) {
			return true
		}
		best = i
		return true
	})
	return best, best != ast.NoIndex
}

func enclosingBlockKind(tree *ast.Tree, idx ast.NodeIndex) lang.BlockKind {
	for cur := tree.Get(idx).Parent; cur != ast.NoIndex; cur = tree.Get(cur).Parent {
		n := tree.Get(cur)
		if kind := lang.ClassifyBlock(n.Key); kind != lang.BlockUnknown {
			return kind
		}
	}
	return lang.BlockUnknown
}

func matchingSchema(reg *schema.Registry, path string, tree *ast.Tree, idx ast.NodeIndex) *schema.Schema {
	if reg == nil {
		return nil
	}
	for cur := idx; cur != ast.NoIndex; cur = tree.Get(cur).Parent {
		n := tree.Get(cur)
		if n.Parent == tree.Root {
			matches := reg.Match(path, n.Key)
			if len(matches) > 0 {
				return matches[0]
			}
		}
	}
	return nil
}

// --- Completion ---------------------------------------------------------

// CompletionItem is one completion proposal.
type CompletionItem struct {
	Label  string
	Detail string
	Insert string
	Kind   string // "field" | "link" | "savedScope" | "trigger" | "effect" | "iterator"
}

// Completion implements spec §4.J's Completion contract: trigger `.`
// proposes link children of the node's current scope, `:` proposes
// saved scopes declared anywhere in the enclosing event body, and every
// other trigger (including none) proposes schema fields plus the
// language table appropriate to the enclosing block kind.
func Completion(tree *ast.Tree, reg *schema.Registry, path string, pos ast.Position, trigger rune) []CompletionItem {
	idx, ok := nodeAt(tree, pos)
	if !ok {
		idx = tree.Root
	}
	n := tree.Get(idx)

	switch trigger {
	case '.':
		names := scope.KnownLinkNames(n.ScopeType)
		out := make([]CompletionItem, 0, len(names))
		for _, name := range names {
			out = append(out, CompletionItem{Label: name, Kind: "link"})
		}
		return out
	case ':':
		names := savedScopeNames(tree, idx)
		out := make([]CompletionItem, 0, len(names))
		for _, name := range names {
			out = append(out, CompletionItem{Label: name, Kind: "savedScope"})
		}
		return out
	}

	var out []CompletionItem
	if s := matchingSchema(reg, path, tree, idx); s != nil {
		for _, c := range schema.Completions(tree, s, tree.Get(idx)) {
			out = append(out, CompletionItem{Label: c.Label, Detail: c.Detail, Insert: c.Snippet, Kind: "field"})
		}
	}
	switch enclosingBlockKind(tree, idx) {
	case lang.BlockTrigger:
		for name := range lang.KnownTriggers {
			out = append(out, CompletionItem{Label: name, Kind: "trigger"})
		}
	case lang.BlockEffect, lang.BlockOption, lang.BlockUnknown:
		for name := range lang.KnownEffects {
			out = append(out, CompletionItem{Label: name, Kind: "effect"})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// savedScopeNames walks the event body enclosing idx collecting every
// name a save_scope_as/save_temporary_scope_as declares in it, whether
// before or after idx.
func savedScopeNames(tree *ast.Tree, idx ast.NodeIndex) []string {
	eventRoot := idx
	for cur := idx; cur != ast.NoIndex; cur = tree.Get(cur).Parent {
		if tree.Get(cur).Parent == tree.Root {
			eventRoot = cur
			break
		}
	}
	var names []string
	tree.Walk(eventRoot, func(i ast.NodeIndex) bool {
		n := tree.Get(i)
		if (n.Key == "save_scope_as" || n.Key == "save_temporary_scope_as") && n.Value != "" {
			names = append(names, n.Value)
		}
		return true
	})
	return names
}

// --- Hover ---------------------------------------------------------------

// Hover resolves a position to Markdown text per spec §4.J's
// resolution order: schema field-doc, then built-in trigger/effect
// doc, then an index entry, then the node's scope-type annotation.
func Hover(tree *ast.Tree, reg *schema.Registry, idx *index.Index, path string, pos ast.Position) (string, bool) {
	i, ok := nodeAt(tree, pos)
	if !ok {
		return "", false
	}
	n := tree.Get(i)
	name := lastSegment(n.Key)

	if s := matchingSchema(reg, path, tree, i); s != nil {
		if doc, ok := schema.Hover(s, name); ok {
			text := doc.Description
			if doc.Snippet != "" {
				text += fmt.Sprintf("\n\n```\n%s\n```", doc.Snippet)
			}
			return text, true
		}
	}
	if lang.KnownTriggers[name] {
		return fmt.Sprintf("**%s** — built-in trigger", name), true
	}
	if lang.KnownEffects[name] {
		return fmt.Sprintf("**%s** — built-in effect", name), true
	}
	for _, cat := range index.AllCategories {
		if syms := idx.Lookup(cat, name); len(syms) > 0 {
			return fmt.Sprintf("**%s** — %s (%d definition(s))", name, cat, len(syms)), true
		}
	}
	if n.ScopeType != ast.ScopeUnknown {
		return fmt.Sprintf("scope: `%s`", n.ScopeType), true
	}
	return "", false
}

func lastSegment(key string) string {
	if i := strings.LastIndex(key, "."); i >= 0 {
		return key[i+1:]
	}
	return strings.TrimPrefix(key, "scope:")
}

// --- Definition / References / Rename ------------------------------------

// Location names a symbol's position in the workspace.
type Location struct {
	URI   string
	Range ast.Range
}

func symbolCategories() []index.Category {
	return index.AllCategories
}

// resolveSymbol returns the category and bare name the node at pos
// names, used by Definition/References/Rename to find every other
// occurrence of the same symbol.
func resolveSymbol(tree *ast.Tree, idx *index.Index, pos ast.Position) (index.Category, string, bool) {
	i, ok := nodeAt(tree, pos)
	if !ok {
		return "", "", false
	}
	name := lastSegment(tree.Get(i).Key)
	if name == "" {
		name = tree.Get(i).Value
	}
	for _, cat := range symbolCategories() {
		if len(idx.Lookup(cat, name)) > 0 {
			return cat, name, true
		}
	}
	return "", "", false
}

// Definition resolves the symbol at pos to its defining Location(s).
func Definition(tree *ast.Tree, idx *index.Index, pos ast.Position) []Location {
	cat, name, ok := resolveSymbol(tree, idx, pos)
	if !ok {
		return nil
	}
	var out []Location
	for _, s := range idx.Lookup(cat, name) {
		out = append(out, Location{URI: s.URI, Range: s.Range})
	}
	return out
}

// References returns the indexed definition Location(s) of the symbol at
// pos, the same result as Definition. Use sites (for example
// `trigger_event = ID`) are not in the index and are not returned.
func References(tree *ast.Tree, idx *index.Index, pos ast.Position) []Location {
	return Definition(tree, idx, pos)
}

// WorkspaceEdit is a rename's result: per-URI text replacements.
type WorkspaceEdit struct {
	Changes map[string][]TextEdit
}

// TextEdit replaces the text in Range with NewText.
type TextEdit struct {
	Range   ast.Range
	NewText string
}

// PrepareRename resolves the symbol at pos and returns the range a
// client should highlight/edit in place before it sends the follow-up
// rename request, or ok=false if pos does not resolve to a renameable
// symbol — the same resolution Rename itself performs, so a client that
// calls prepareRename first and rename second never sees the two
// disagree on whether pos is renameable.
func PrepareRename(tree *ast.Tree, idx *index.Index, pos ast.Position) (ast.Range, string, bool) {
	i, ok := nodeAt(tree, pos)
	if !ok {
		return ast.Range{}, "", false
	}
	_, name, ok := resolveSymbol(tree, idx, pos)
	if !ok {
		return ast.Range{}, "", false
	}
	return tree.Get(i).Range, name, true
}

// Rename resolves the symbol at pos and returns a WorkspaceEdit
// replacing every occurrence with newName, or ok=false if pos does not
// resolve to a renameable symbol (spec §4.J "rejects rename on
// positions that do not resolve").
func Rename(tree *ast.Tree, idx *index.Index, pos ast.Position, newName string) (WorkspaceEdit, bool) {
	cat, name, ok := resolveSymbol(tree, idx, pos)
	if !ok {
		return WorkspaceEdit{}, false
	}
	edit := WorkspaceEdit{Changes: map[string][]TextEdit{}}
	for _, s := range idx.Lookup(cat, name) {
		edit.Changes[s.URI] = append(edit.Changes[s.URI], TextEdit{Range: s.Range, NewText: newName})
	}
	return edit, true
}

// --- Semantic tokens -------------------------------------------------------

// TokenType enumerates the semantic token legend spec §4.J names.
type TokenType int

const (
	TokenKeyword TokenType = iota
	TokenFunction
	TokenVariable
	TokenProperty
	TokenString
	TokenNumber
	TokenComment
	TokenEvent
	TokenMacro
	TokenEnumMember
	TokenClass
	TokenNamespace
)

// Token is one absolute-positioned semantic token before delta encoding.
type Token struct {
	Line, StartChar, Length int
	Type                    TokenType
	Modifiers               uint32
}

// SemanticTokens walks tree assigning a token type to every leaf
// node's key, classifying by the language tables and node shape.
func SemanticTokens(tree *ast.Tree) []Token {
	var out []Token
	tree.Walk(tree.Root, func(i ast.NodeIndex) bool {
		n := tree.Get(i)
		if n.Type == ast.NodeRoot || n.Key == "" {
			return true
		}
		name := lastSegment(n.Key)
		_, _, isIterator := lang.IteratorPrefix(n.Key)
		var t TokenType
		switch {
		case lang.ControlFlowKeywords[n.Key]:
			t = TokenKeyword
		case lang.KnownTriggers[name], lang.KnownEffects[name]:
			t = TokenFunction
		case strings.HasPrefix(n.Key, "scope:"):
			t = TokenVariable
		case isIterator:
			t = TokenMacro
		case n.Parent == tree.Root && strings.Contains(n.Key, "."):
			t = TokenEvent
		default:
			t = TokenProperty
		}
		out = append(out, Token{
			Line:      n.Range.Start.Line,
			StartChar: n.Range.Start.Character,
			Length:    len(n.Key),
			Type:      t,
		})
		return true
	})
	return out
}

// DeltaEncode converts absolute tokens (already sorted by position,
// which Walk's pre-order traversal guarantees for non-overlapping
// sibling ranges) into the relative tuples the LSP wire format uses.
func DeltaEncode(tokens []Token) [][5]int {
	out := make([][5]int, 0, len(tokens))
	prevLine, prevChar := 0, 0
	for _, t := range tokens {
		lineDelta := t.Line - prevLine
		charDelta := t.StartChar
		if lineDelta == 0 {
			charDelta = t.StartChar - prevChar
		}
		out = append(out, [5]int{lineDelta, charDelta, t.Length, int(t.Type), int(t.Modifiers)})
		prevLine, prevChar = t.Line, t.StartChar
	}
	return out
}

// --- Symbols ---------------------------------------------------------------

// Symbols renders document symbols per the matching schema's `symbols`
// recipe (spec §4.J), one tree per top-level block.
func Symbols(tree *ast.Tree, reg *schema.Registry, path string) []schema.SymbolResult {
	var out []schema.SymbolResult
	root := tree.Get(tree.Root)
	for _, c := range root.Children {
		n := tree.Get(c)
		if n.Type != ast.NodeBlock {
			continue
		}
		matches := reg.Match(path, n.Key)
		if len(matches) == 0 {
			continue
		}
		out = append(out, schema.SymbolResult{Name: n.Key, Kind: "block", Range: n.Range})
		out = append(out, schema.Symbols(tree, matches[0], n)...)
	}
	return out
}

// --- Code lens --------------------------------------------------------------

// CodeLens is one reference-count or missing-localization annotation.
type CodeLens struct {
	Range   ast.Range
	Title   string
	Command string
	Args    []string
}

// CodeLenses implements spec §4.J: a reference count above every
// definition, a missing-localization marker above every event lacking a
// resolvable `desc`, and every code lens a matching schema's own
// `code_lens` recipe declares (spec §3 "a code-lens recipe").
func CodeLenses(tree *ast.Tree, idx *index.Index, reg *schema.Registry, path string) []CodeLens {
	var out []CodeLens
	root := tree.Get(tree.Root)
	for _, c := range root.Children {
		n := tree.Get(c)
		if n.Type != ast.NodeBlock {
			continue
		}
		for _, cat := range symbolCategories() {
			if syms := idx.Lookup(cat, n.Key); len(syms) > 0 {
				out = append(out, CodeLens{
					Range:   n.Range,
					Title:   fmt.Sprintf("%d reference(s)", len(syms)-1),
					Command: "show_namespace_events",
					Args:    []string{n.Key},
				})
			}
		}
		if strings.Contains(n.Key, ".") {
			hasDesc := false
			for _, cc := range n.Children {
				if tree.Get(cc).Key == "desc" {
					hasDesc = true
				}
			}
			if !hasDesc {
				out = append(out, CodeLens{
					Range:   n.Range,
					Title:   "generate missing localization",
					Command: "generate_localization_stubs",
					Args:    []string{n.Key},
				})
			}
		}
		if reg == nil {
			continue
		}
		for _, s := range reg.Match(path, n.Key) {
			for _, entry := range s.CodeLens {
				out = append(out, CodeLens{
					Range:   n.Range,
					Title:   entry.Title,
					Command: entry.Command,
					Args:    []string{n.Key},
				})
			}
		}
	}
	return out
}

// --- Inlay hints ------------------------------------------------------------

// InlayHint is one scope-type or chain-result annotation.
type InlayHint struct {
	Position ast.Position
	Label    string
}

// InlayHints implements spec §4.J: scope-type hints after `scope:`,
// chain resolution results, and iterator targets, restricted to rng.
func InlayHints(tree *ast.Tree, rng ast.Range) []InlayHint {
	var out []InlayHint
	tree.Walk(tree.Root, func(i ast.NodeIndex) bool {
		n := tree.Get(i)
		if n.Type == ast.NodeRoot || !rangesOverlap(n.Range, rng) {
			return true
		}
		if n.ScopeType == ast.ScopeUnknown {
			return true
		}
		if strings.HasPrefix(n.Key, "scope:") || strings.Contains(n.Key, ".") {
			out = append(out, InlayHint{Position: n.Range.End, Label: string(n.ScopeType)})
		} else if _, _, ok := lang.IteratorPrefix(n.Key); ok {
			out = append(out, InlayHint{Position: n.Range.End, Label: string(n.ScopeType)})
		}
		return true
	})
	return out
}

func rangesOverlap(a, b ast.Range) bool {
	return !(a.End.Line < b.Start.Line || a.Start.Line > b.End.Line)
}

// --- Folding -----------------------------------------------------------------

// FoldingRange is one collapsible region.
type FoldingRange struct {
	StartLine, EndLine int
	Kind               string // "region" | "comment"
}

// Folding returns one region per block (spec §4.J); multi-line
// comments are folded from comments, the raw token list the parser
// emits alongside the tree (not retained on the tree itself).
func Folding(tree *ast.Tree, comments []CommentSpan) []FoldingRange {
	var out []FoldingRange
	tree.Walk(tree.Root, func(i ast.NodeIndex) bool {
		n := tree.Get(i)
		if n.Type == ast.NodeBlock && n.Range.End.Line > n.Range.Start.Line {
			out = append(out, FoldingRange{StartLine: n.Range.Start.Line, EndLine: n.Range.End.Line, Kind: "region"})
		}
		return true
	})
	for _, c := range comments {
		if c.EndLine > c.StartLine {
			out = append(out, FoldingRange{StartLine: c.StartLine, EndLine: c.EndLine, Kind: "comment"})
		}
	}
	return out
}

// CommentSpan is the minimal shape Folding needs from a multi-line
// comment token; internal/lspserver derives it from parser.Result.Comments.
type CommentSpan struct {
	StartLine, EndLine int
}

// --- Document highlight ------------------------------------------------------

// Highlight implements spec §4.J: every token-equal occurrence of the
// symbol at pos within the current document only.
func Highlight(tree *ast.Tree, pos ast.Position) []ast.Range {
	i, ok := nodeAt(tree, pos)
	if !ok {
		return nil
	}
	target := tree.Get(i).Key
	if target == "" {
		return nil
	}
	var out []ast.Range
	tree.Walk(tree.Root, func(j ast.NodeIndex) bool {
		if tree.Get(j).Key == target {
			out = append(out, tree.Get(j).Range)
		}
		return true
	})
	return out
}

// --- Code actions -------------------------------------------------------------

// CodeAction is one quick fix tied to a diagnostic.
type CodeAction struct {
	Title string
	Edit  TextEdit
}

// CodeActions implements spec §4.J's quick fixes for select codes:
// Levenshtein-suggested trigger/effect name replacements
// (CodeUnknownTrigger/CodeUnknownEffect), inserting a missing
// save_scope_as (CodeUnsavedScope), and swapping a bare trigger for its
// any_/every_ iterator form (CodeIllegalIterator, only the message
// shape that names a replacement). Missing required-field insertion
// would be a fourth case but schema.Validate's missing-field
// diagnostics don't populate Data with the field name yet.
func CodeActions(diags []diag.Diagnostic) []CodeAction {
	var out []CodeAction
	for _, d := range diags {
		switch d.Code {
		case diag.CodeUnknownTrigger:
			if s, ok := suggestName(d.Message, lang.KnownTriggers); ok {
				out = append(out, CodeAction{
					Title: fmt.Sprintf("Replace with '%s'", s),
					Edit:  TextEdit{Range: d.Range, NewText: s},
				})
			}
		case diag.CodeUnknownEffect:
			if s, ok := suggestName(d.Message, lang.KnownEffects); ok {
				out = append(out, CodeAction{
					Title: fmt.Sprintf("Replace with '%s'", s),
					Edit:  TextEdit{Range: d.Range, NewText: s},
				})
			}
		case diag.CodeUnsavedScope:
			if name, ok := unsavedScopeName(d.Message); ok {
				at := ast.Range{Start: d.Range.Start, End: d.Range.Start}
				out = append(out, CodeAction{
					Title: fmt.Sprintf("Insert 'save_scope_as = %s'", name),
					Edit:  TextEdit{Range: at, NewText: fmt.Sprintf("save_scope_as = %s\n", name)},
				})
			}
		case diag.CodeIllegalIterator:
			if s, ok := iteratorReplacement(d.Message); ok {
				out = append(out, CodeAction{
					Title: fmt.Sprintf("Replace with '%s'", s),
					Edit:  TextEdit{Range: d.Range, NewText: s},
				})
			}
		}
	}
	return out
}

// unsavedScopeName extracts NAME from scope.Annotate's CodeUnsavedScope
// message ("scope:NAME is not saved before use in this event/effect/
// trigger"), the name a "save_scope_as" quick fix needs to insert.
func unsavedScopeName(message string) (string, bool) {
	const prefix = "scope:"
	i := strings.Index(message, prefix)
	if i < 0 {
		return "", false
	}
	rest := message[i+len(prefix):]
	end := strings.IndexByte(rest, ' ')
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}

// iteratorReplacement extracts the suggested "any_"/"every_" name from
// scope.Annotate's actionable CodeIllegalIterator message ("'leaf' is
// not allowed in a trigger block; use 'any_leaf' instead"). The other
// CodeIllegalIterator shape ("'leaf' is not a legal link from scope
// scopeType") names no replacement, so it is left unfixed.
func iteratorReplacement(message string) (string, bool) {
	if !strings.Contains(message, "instead") {
		return "", false
	}
	last := strings.LastIndexByte(message, '\'')
	if last < 0 {
		return "", false
	}
	start := strings.LastIndexByte(message[:last], '\'')
	if start < 0 {
		return "", false
	}
	return message[start+1 : last], true
}

// suggestName extracts the quoted token from a "unknown ... 'name'"
// style message and finds its nearest Levenshtein neighbor in table.
func suggestName(message string, table map[string]bool) (string, bool) {
	start := strings.IndexByte(message, '\'')
	if start < 0 {
		return "", false
	}
	end := strings.IndexByte(message[start+1:], '\'')
	if end < 0 {
		return "", false
	}
	name := message[start+1 : start+1+end]

	best, bestDist := "", 3
	for candidate := range table {
		d := levenshtein.Distance(name, candidate, nil)
		if d < bestDist {
			bestDist, best = d, candidate
		}
	}
	return best, best != ""
}

// --- Formatting -------------------------------------------------------------

// Format renders tree as source text under spec §4.J's rules: tabs for
// indentation, a single space around the assignment operator, the
// opening brace on the same line as its key, and a blank line between
// top-level blocks. It is a pretty-printer over the AST rather than a
// re-indenter of the original text, so whitespace inside string/number
// literals is preserved (they are opaque token text) but comments are
// not — the parser discards them from the tree it builds formatting
// from.
func Format(tree *ast.Tree) string {
	var sb strings.Builder
	root := tree.Get(tree.Root)
	for i, c := range root.Children {
		if i > 0 {
			sb.WriteString("\n")
		}
		writeNode(&sb, tree, c, 0)
	}
	return sb.String()
}

func writeNode(sb *strings.Builder, tree *ast.Tree, idx ast.NodeIndex, depth int) {
	n := tree.Get(idx)
	indent := strings.Repeat("\t", depth)
	switch n.Type {
	case ast.NodeAssignment:
		sb.WriteString(indent)
		sb.WriteString(n.Key)
		sb.WriteString(" ")
		sb.WriteString(n.Op.String())
		sb.WriteString(" ")
		sb.WriteString(n.Value)
		sb.WriteString("\n")
	case ast.NodeBlock:
		sb.WriteString(indent)
		sb.WriteString(n.Key)
		sb.WriteString(" ")
		sb.WriteString(n.Op.String())
		sb.WriteString(" {\n")
		for _, c := range n.Children {
			writeNode(sb, tree, c, depth+1)
		}
		sb.WriteString(indent)
		sb.WriteString("}\n")
	case ast.NodeScalar:
		sb.WriteString(indent)
		sb.WriteString(n.Value)
		sb.WriteString("\n")
	}
}
