package lspserver

// tokenLegend names the semantic-token types in the exact order
// features.TokenType enumerates them, so a token's numeric Type is a
// direct index into this slice (spec §6 "a legend enumerating the token
// types of §4.D"). Keep in sync with that const block by hand; there are
// only twelve of them.
var tokenLegend = []string{
	"keyword", "function", "variable", "property", "string", "number",
	"comment", "event", "macro", "enumMember", "class", "namespace",
}

// executeCommandNames lists the custom commands spec §6's table defines,
// advertised so clients know workspace/executeCommand accepts them.
var executeCommandNames = []string{
	"validate_workspace",
	"rescan_workspace",
	"get_workspace_stats",
	"generate_event_template",
	"generate_localization_stubs",
	"rename_event",
	"find_orphaned_localization",
	"show_namespace_events",
	"check_dependencies",
}

// buildCapabilities returns the full capability advertisement spec §6
// names: incremental sync, completion with the `_ . : =` trigger set,
// hover, definition, references, document-highlight, document-symbol,
// workspace-symbol, code-action, code-lens (with resolve), formatting,
// range formatting, inlay-hint, folding-range, semantic-tokens
// (full-only, with the §4.D legend), rename (with prepare),
// execute-command.
func buildCapabilities() ServerCapabilities {
	return ServerCapabilities{
		TextDocumentSync: TextDocumentSyncOptions{OpenClose: true, Change: 2}, // 2 = Incremental
		CompletionProvider: CompletionOptions{
			TriggerCharacters: []string{"_", ".", ":", "="},
			ResolveProvider:   false,
		},
		HoverProvider:                   true,
		DefinitionProvider:              true,
		ReferencesProvider:              true,
		DocumentHighlightProvider:       true,
		DocumentSymbolProvider:          true,
		WorkspaceSymbolProvider:         true,
		CodeActionProvider:              true,
		CodeLensProvider:                CodeLensOptions{ResolveProvider: true},
		DocumentFormattingProvider:      true,
		DocumentRangeFormattingProvider: true,
		InlayHintProvider:               true,
		FoldingRangeProvider:            true,
		SemanticTokensProvider: SemanticTokensOptions{
			Legend: SemanticTokensLegend{TokenTypes: tokenLegend, TokenModifiers: []string{}},
			Full:   true,
		},
		RenameProvider:         RenameOptions{PrepareProvider: true},
		ExecuteCommandProvider: ExecuteCommandOptions{Commands: executeCommandNames},
	}
}
