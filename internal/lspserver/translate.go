package lspserver

import (
	"github.com/sourcegraph/go-lsp"

	"github.com/Cyborgninja21/pychivalry-sub003/internal/ast"
	"github.com/Cyborgninja21/pychivalry-sub003/internal/diag"
	"github.com/Cyborgninja21/pychivalry-sub003/internal/features"
	"github.com/Cyborgninja21/pychivalry-sub003/internal/schema"
)

func toLSPPosition(p ast.Position) lsp.Position {
	return lsp.Position{Line: p.Line, Character: p.Character}
}

func fromLSPPosition(p Position) ast.Position {
	return ast.Position{Line: p.Line, Character: p.Character}
}

func toLSPRange(r ast.Range) lsp.Range {
	return lsp.Range{Start: toLSPPosition(r.Start), End: toLSPPosition(r.End)}
}

func toRange(r ast.Range) Range {
	return Range{Start: toPos(r.Start), End: toPos(r.End)}
}

func toPos(p ast.Position) Position {
	return Position{Line: p.Line, Character: p.Character}
}

// severityToLSP maps diag.Severity to the LSP wire severity; both
// taxonomies share the same 1-4 ordering (Error, Warning, Information,
// Hint) so the conversion is a direct cast.
func severityToLSP(s diag.Severity) lsp.DiagnosticSeverity {
	return lsp.DiagnosticSeverity(s)
}

// toLSPDiagnostic converts one internal Diagnostic to go-lsp's wire
// shape, the one stage of this translation layer grounded directly on
// the teacher's own confirmed usage (workspace.go:525-533) rather than
// on this package's own wire.go structs.
func toLSPDiagnostic(d diag.Diagnostic) lsp.Diagnostic {
	return lsp.Diagnostic{
		Range:    toLSPRange(d.Range),
		Severity: severityToLSP(d.Severity),
		Code:     d.Code,
		Source:   d.Source,
		Message:  d.Message,
	}
}

func toLSPDiagnostics(diags []diag.Diagnostic) []lsp.Diagnostic {
	out := make([]lsp.Diagnostic, 0, len(diags))
	for _, d := range diags {
		out = append(out, toLSPDiagnostic(d))
	}
	return out
}

func toCompletionItem(c features.CompletionItem) CompletionItem {
	return CompletionItem{Label: c.Label, Detail: c.Detail, InsertText: c.Insert, Kind: completionKind(c.Kind)}
}

func toCompletionItems(items []features.CompletionItem) []CompletionItem {
	out := make([]CompletionItem, 0, len(items))
	for _, c := range items {
		out = append(out, toCompletionItem(c))
	}
	return out
}

// completionKind maps an adapter's informal kind tag to the LSP
// CompletionItemKind numeric wire value (spec 3.0's 1-indexed enum).
func completionKind(kind string) int {
	switch kind {
	case "field":
		return 10 // Property
	case "link":
		return 6 // Variable
	case "savedScope":
		return 6 // Variable
	case "trigger":
		return 3 // Function
	case "effect":
		return 3 // Function
	case "iterator":
		return 4 // Constructor (closest fit: generates a scoped block)
	default:
		return 1 // Text
	}
}

func toLocation(l features.Location) Location {
	return Location{URI: l.URI, Range: toRange(l.Range)}
}

func toLocations(ls []features.Location) []Location {
	out := make([]Location, 0, len(ls))
	for _, l := range ls {
		out = append(out, toLocation(l))
	}
	return out
}

func toWorkspaceEdit(e features.WorkspaceEdit) WorkspaceEdit {
	out := WorkspaceEdit{Changes: map[string][]TextEdit{}}
	for uri, edits := range e.Changes {
		for _, te := range edits {
			out.Changes[uri] = append(out.Changes[uri], TextEdit{Range: toRange(te.Range), NewText: te.NewText})
		}
	}
	return out
}

func toSemanticTokensData(tokens []features.Token) []int {
	deltas := features.DeltaEncode(tokens)
	data := make([]int, 0, len(deltas)*5)
	for _, d := range deltas {
		data = append(data, d[0], d[1], d[2], d[3], d[4])
	}
	return data
}

func toSymbolInformation(uri string, syms []schema.SymbolResult) []SymbolInformation {
	out := make([]SymbolInformation, 0, len(syms))
	for _, s := range syms {
		out = append(out, SymbolInformation{Name: s.Name, Kind: symbolKindToLSP(s.Kind), Location: Location{URI: uri, Range: toRange(s.Range)}})
	}
	return out
}

// symbolKindToLSP maps a schema `symbols` recipe's informal kind string
// (spec §3 "Kind: LSP SymbolKind name") to the numeric wire enum.
func symbolKindToLSP(kind string) int {
	switch kind {
	case "Event":
		return 5 // Class, the nearest structural analogue LSP offers
	case "Function":
		return 12
	case "Property":
		return 7
	case "Variable":
		return 13
	case "Constant":
		return 14
	case "Field":
		return 8
	case "EnumMember":
		return 22
	default:
		return 13 // Variable
	}
}

func toCodeLens(l features.CodeLens) CodeLens {
	var args []interface{}
	for _, a := range l.Args {
		args = append(args, a)
	}
	return CodeLens{
		Range:   toRange(l.Range),
		Command: &Command{Title: l.Title, Command: l.Command, Arguments: args},
	}
}

func toCodeLenses(ls []features.CodeLens) []CodeLens {
	out := make([]CodeLens, 0, len(ls))
	for _, l := range ls {
		out = append(out, toCodeLens(l))
	}
	return out
}

func toInlayHint(h features.InlayHint) InlayHint {
	return InlayHint{Position: toPos(h.Position), Label: h.Label}
}

func toInlayHints(hs []features.InlayHint) []InlayHint {
	out := make([]InlayHint, 0, len(hs))
	for _, h := range hs {
		out = append(out, toInlayHint(h))
	}
	return out
}

func toFoldingRange(f features.FoldingRange) FoldingRange {
	return FoldingRange{StartLine: f.StartLine, EndLine: f.EndLine, Kind: f.Kind}
}

func toFoldingRanges(fs []features.FoldingRange) []FoldingRange {
	out := make([]FoldingRange, 0, len(fs))
	for _, f := range fs {
		out = append(out, toFoldingRange(f))
	}
	return out
}

func toDocumentHighlights(rs []ast.Range) []DocumentHighlight {
	out := make([]DocumentHighlight, 0, len(rs))
	for _, r := range rs {
		out = append(out, DocumentHighlight{Range: toRange(r)})
	}
	return out
}

func toCodeAction(a features.CodeAction, uri string) CodeAction {
	return CodeAction{
		Title: a.Title,
		Edit: &WorkspaceEdit{Changes: map[string][]TextEdit{
			uri: {{Range: toRange(a.Edit.Range), NewText: a.Edit.NewText}},
		}},
	}
}

func toCodeActions(as []features.CodeAction, uri string) []CodeAction {
	out := make([]CodeAction, 0, len(as))
	for _, a := range as {
		out = append(out, toCodeAction(a, uri))
	}
	return out
}
