// Package parser implements the recursive-descent grammar of spec §4.B.
// It never aborts: on any malformed input it records a diagnostic and
// keeps going, always yielding a forest.
package parser

import (
	"github.com/Cyborgninja21/pychivalry-sub003/internal/ast"
	"github.com/Cyborgninja21/pychivalry-sub003/internal/diag"
	"github.com/Cyborgninja21/pychivalry-sub003/internal/lexer"
)

// Result is the output of a single parse: the arena-owned tree, any
// syntax diagnostics, and the comment tokens (needed by formatting and
// folding, but not part of the grammar proper).
type Result struct {
	Tree        *ast.Tree
	Diagnostics []diag.Diagnostic
	Comments    []lexer.Token
}

// Parse tokenizes and parses src, returning a forest that is never nil
// even for malformed input.
func Parse(src string) *Result {
	toks := lexer.Lex(src)
	p := &parser{toks: toks}
	p.skipTrivia()

	tree := ast.NewTree()
	for p.cur().Kind != lexer.KindEOF {
		switch p.cur().Kind {
		case lexer.KindRBrace:
			// Unmatched '}' at top level: no open block exists here.
			p.errf(diag.CodeUnmatchedRBrace, p.cur(), p.cur(), "unmatched '}'")
			p.advance()
			p.skipTrivia()
			continue
		case lexer.KindIdentifier:
			p.parseAssignment(tree, tree.Root)
		default:
			// Unexpected token at top level (stray number/string/operator):
			// skip it and keep going so later well-formed content still
			// parses.
			p.advance()
			p.skipTrivia()
		}
	}

	return &Result{Tree: tree, Diagnostics: p.diags, Comments: p.comments}
}

type parser struct {
	toks     []lexer.Token
	pos      int
	diags    []diag.Diagnostic
	comments []lexer.Token
}

func (p *parser) cur() lexer.Token {
	return p.toks[p.pos]
}

func (p *parser) advance() lexer.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

// skipTrivia consumes whitespace and comment tokens, stashing comments for
// the formatter/folding range adapter (spec §4.A: "preserved only for
// formatting").
func (p *parser) skipTrivia() {
	for {
		switch p.cur().Kind {
		case lexer.KindWhitespace:
			p.advance()
		case lexer.KindComment:
			p.comments = append(p.comments, p.cur())
			p.advance()
		case lexer.KindError:
			// The lexer already recovered to the next '{' or newline;
			// surface it as a syntax diagnostic and continue.
			p.errf(diag.CodeUnclosedLBrace, p.cur(), p.cur(), "unexpected character")
			p.advance()
		default:
			return
		}
	}
}

func tokRange(start, end lexer.Token) ast.Range {
	return ast.Range{
		Start: ast.Position{Line: start.Line, Character: start.Column},
		End:   ast.Position{Line: end.Line, Character: end.Column + len(end.Text)},
	}
}

func (p *parser) errf(code string, start, end lexer.Token, msg string) {
	p.diags = append(p.diags, diag.Diagnostic{
		Range:    tokRange(start, end),
		Severity: diag.SeverityError,
		Code:     code,
		Message:  msg,
		Source:   diag.SourceParse,
	})
}

func opFromText(text string) (ast.Op, bool) {
	switch text {
	case "=":
		return ast.OpAssign, true
	case ">":
		return ast.OpGT, true
	case "<":
		return ast.OpLT, true
	case ">=":
		return ast.OpGE, true
	case "<=":
		return ast.OpLE, true
	case "!=":
		return ast.OpNE, true
	case "==":
		return ast.OpEQ, true
	}
	return ast.OpAssign, false
}

// parseAssignment parses `key op value` and appends the result to parent.
func (p *parser) parseAssignment(tree *ast.Tree, parent ast.NodeIndex) {
	keyTok := p.advance()
	p.skipTrivia()

	if p.cur().Kind != lexer.KindOperator {
		// Malformed row: recover to the next top-level key or '}'.
		p.errf(diag.CodeUnclosedLBrace, keyTok, keyTok, "expected operator after key '"+keyTok.Text+"'")
		p.recoverToBoundary()
		return
	}
	opTok := p.advance()
	op, ok := opFromText(opTok.Text)
	if !ok {
		op = ast.OpAssign
	}
	p.skipTrivia()

	switch p.cur().Kind {
	case lexer.KindLBrace:
		lb := p.advance()
		idx := tree.Add(parent, ast.Node{
			Type: ast.NodeBlock,
			Key:  keyTok.Text,
			Op:   op,
		})
		p.parseBlockBody(tree, idx, lb)
	case lexer.KindIdentifier, lexer.KindNumber, lexer.KindString:
		valTok := p.advance()
		tree.Add(parent, ast.Node{
			Type:  ast.NodeAssignment,
			Key:   keyTok.Text,
			Op:    op,
			Value: valTok.Text,
			Range: tokRange(keyTok, valTok),
		})
	default:
		p.errf(diag.CodeUnclosedLBrace, keyTok, opTok, "expected a value after '"+opTok.Text+"'")
		p.recoverToBoundary()
		return
	}
	p.skipTrivia()
}

// parseBlockBody parses the `(assignment | scalar)*` body of a block
// already past its opening '{', stopping at '}' or EOF. On EOF it records
// the unclosed-brace diagnostic at lb's position (spec §4.B).
func (p *parser) parseBlockBody(tree *ast.Tree, blockIdx ast.NodeIndex, lb lexer.Token) {
	p.skipTrivia()
	for {
		switch p.cur().Kind {
		case lexer.KindRBrace:
			end := p.advance()
			n := tree.Get(blockIdx)
			n.Range = tokRange(lb, end)
			p.skipTrivia()
			return
		case lexer.KindEOF:
			p.errf(diag.CodeUnclosedLBrace, lb, lb, "unclosed '{'")
			n := tree.Get(blockIdx)
			n.Range = tokRange(lb, lb)
			return
		case lexer.KindIdentifier:
			// Could be `key op value` or a bare scalar list element; only
			// a following operator (after skipping trivia) distinguishes
			// them, so peek ahead without committing.
			if p.looksLikeAssignment() {
				p.parseAssignment(tree, blockIdx)
			} else {
				tok := p.advance()
				tree.Add(blockIdx, ast.Node{
					Type:  ast.NodeScalar,
					Value: tok.Text,
					Range: tokRange(tok, tok),
				})
				p.skipTrivia()
			}
		case lexer.KindNumber, lexer.KindString:
			tok := p.advance()
			tree.Add(blockIdx, ast.Node{
				Type:  ast.NodeScalar,
				Value: tok.Text,
				Range: tokRange(tok, tok),
			})
			p.skipTrivia()
		default:
			// Unexpected token inside a block: skip to the next top-level
			// key or '}' and record a syntax diagnostic (spec §4.B
			// recovery).
			bad := p.cur()
			p.errf(diag.CodeUnclosedLBrace, bad, bad, "unexpected token '"+bad.Text+"' in block")
			p.recoverToBoundary()
		}
	}
}

// looksLikeAssignment peeks past the current identifier for an operator
// token, without consuming anything.
func (p *parser) looksLikeAssignment() bool {
	save := p.pos
	defer func() { p.pos = save }()

	p.advance()
	p.skipTriviaNoCapture()
	return p.cur().Kind == lexer.KindOperator
}

// skipTriviaNoCapture is like skipTrivia but does not append to comments,
// used for lookahead that must not have side effects.
func (p *parser) skipTriviaNoCapture() {
	for p.cur().Kind == lexer.KindWhitespace || p.cur().Kind == lexer.KindComment || p.cur().Kind == lexer.KindError {
		p.advance()
	}
}

// recoverToBoundary skips tokens until the next position a block body or
// top-level file can resynchronize at: an identifier immediately followed
// by an operator (a candidate key), a '}', or EOF.
func (p *parser) recoverToBoundary() {
	for {
		switch p.cur().Kind {
		case lexer.KindRBrace, lexer.KindEOF:
			p.skipTrivia()
			return
		case lexer.KindIdentifier:
			if p.looksLikeAssignment() {
				p.skipTrivia()
				return
			}
			p.advance()
		default:
			p.advance()
		}
		p.skipTriviaNoCapture()
	}
}
