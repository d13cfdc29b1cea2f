// Package lexer implements the byte-stream-to-token-stream pass of spec
// §4.A. It is hand-written rather than built on a parser-generator or
// format-specific tokenizer library: no library in the retrieval pack
// targets an arbitrary bespoke grammar (every tokenizer present — YAML,
// TOML — is tied to its own format).
package lexer

// Kind classifies a Token.
type Kind int

const (
	KindIdentifier Kind = iota
	KindNumber
	KindString
	KindOperator
	KindLBrace
	KindRBrace
	KindComment
	KindWhitespace
	KindEOF
	// KindError marks a lexical error; Text carries the unrecognized
	// source text, from the offending byte up to the next `{` or newline,
	// where the lexer has already recovered (spec §4.A).
	KindError
)

// Token is a single lexical unit with its 0-based line/character position
// (UTF-16 code units for Character, per LSP negotiation).
type Token struct {
	Kind   Kind
	Text   string
	Line   int
	Column int
}
