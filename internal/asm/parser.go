package asm

import (
	"errors"
	"fmt"

	"ssp/internal/ast"
	"ssp/internal/lexer"
	"ssp/internal/log"
	"ssp/internal/token"
)

// Line is one parsed source line: an opcode (or the LABEL pseudo-op) identifier together with its
// same-line parameter nodes. The parser does not know opcodes; "LABEL" is recognized purely as a
// spelling, leaving opcode validity to the assembler's ingest pass.
type Line struct {
	Opcode       string
	Params       []ast.Node
	Line, Column int
}

// Parser drives a lexer, grouping tokens into Lines and reporting syntax errors as Diagnostics. It
// does not resolve labels or type-check arguments; see Assembler for that.
type Parser struct {
	lex  *lexer.Lexer
	log  *log.Logger
	diag Diagnostics

	tok  token.Token
	peek *token.Token
}

// NewParser creates a Parser reading from src.
func NewParser(src lexer.Source, logger *log.Logger) *Parser {
	return &Parser{lex: lexer.New(src), log: logger}
}

func (p *Parser) next() (token.Token, error) {
	if p.peek != nil {
		t := *p.peek
		p.peek = nil

		return t, nil
	}

	return p.lex.Next()
}

func (p *Parser) peekTok() (token.Token, error) {
	if p.peek == nil {
		t, err := p.lex.Next()
		if err != nil {
			return token.Token{}, err
		}

		p.peek = &t
	}

	return *p.peek, nil
}

// Parse consumes the entire source, returning every parsed Line. Lexical and syntactic errors are
// recorded as ERROR diagnostics; Parse makes a best effort to resynchronize at the next identifier
// so one bad line doesn't suppress diagnostics for the rest of the file.
func (p *Parser) Parse() ([]Line, Diagnostics) {
	var lines []Line

	for {
		t, err := p.next()
		if err != nil {
			p.reportLexError(err)

			continue
		}

		if t.Kind == token.EOF {
			break
		}

		if t.Kind != token.Identifier {
			p.diag.Add(ERROR, t.Line, t.Column, "unexpected %s, expected an opcode", t.Kind)

			continue
		}

		line, err := p.parseLine(t)
		if err != nil {
			continue
		}

		lines = append(lines, line)
	}

	return lines, p.diag
}

func (p *Parser) reportLexError(err error) {
	var perr *lexer.PositionError
	if errors.As(err, &perr) {
		p.diag.Add(ERROR, perr.Line, perr.Column, "%s", perr.Err)

		return
	}

	p.diag.Add(ERROR, 0, 0, "%s", err)
}

// parseLine parses one opcode token plus its same-line parameters.
func (p *Parser) parseLine(opTok token.Token) (Line, error) {
	line := Line{Opcode: opTok.Literal, Line: opTok.Line, Column: opTok.Column}

	for {
		pk, err := p.peekTok()
		if err != nil {
			p.reportLexError(err)

			return line, err
		}

		if pk.Kind == token.EOF || pk.Line != opTok.Line {
			break
		}

		node, err := p.parseParam()
		if err != nil {
			return line, err
		}

		line.Params = append(line.Params, node)
	}

	return line, nil
}

// parseParam parses a single top-level parameter: identifier, literal, list, or dict.
func (p *Parser) parseParam() (ast.Node, error) {
	t, err := p.next()
	if err != nil {
		p.reportLexError(err)

		return ast.Node{}, err
	}

	switch t.Kind {
	case token.Identifier:
		return ast.Identifier(t.Literal, t.Line, t.Column), nil
	case token.Integer:
		n, err := ast.IntLiteral(t.Literal, t.Line, t.Column)
		if err != nil {
			p.diag.Add(ERROR, t.Line, t.Column, "%s", err)

			return ast.Node{}, err
		}

		return n, nil
	case token.Real:
		n, err := ast.RealLiteral(t.Literal, t.Line, t.Column)
		if err != nil {
			p.diag.Add(ERROR, t.Line, t.Column, "%s", err)

			return ast.Node{}, err
		}

		return n, nil
	case token.String:
		return ast.StringLiteral(t.Literal, t.Line, t.Column), nil
	case token.LBracket:
		return p.parseList(t)
	case token.LBrace:
		return p.parseDict(t)
	default:
		err := fmt.Errorf("unexpected %s in parameter position", t.Kind)
		p.diag.Add(ERROR, t.Line, t.Column, "%s", err)

		return ast.Node{}, err
	}
}

// parseList parses a bracketed, comma-separated list of parameters. Trailing commas are rejected.
func (p *Parser) parseList(open token.Token) (ast.Node, error) {
	var items []ast.Node

	pk, err := p.peekTok()
	if err != nil {
		p.reportLexError(err)

		return ast.Node{}, err
	}

	if pk.Kind == token.RBracket {
		p.next()

		return ast.ListLiteral(items, open.Line, open.Column), nil
	}

	for {
		item, err := p.parseParam()
		if err != nil {
			return ast.Node{}, err
		}

		items = append(items, item)

		t, err := p.next()
		if err != nil {
			p.reportLexError(err)

			return ast.Node{}, err
		}

		switch t.Kind {
		case token.Comma:
			pk, err := p.peekTok()
			if err != nil {
				p.reportLexError(err)

				return ast.Node{}, err
			}

			if pk.Kind == token.RBracket {
				err := fmt.Errorf("trailing comma before %s", pk.Kind)
				p.diag.Add(ERROR, pk.Line, pk.Column, "%s", err)

				return ast.Node{}, err
			}

			continue
		case token.RBracket:
			return ast.ListLiteral(items, open.Line, open.Column), nil
		default:
			err := fmt.Errorf("expected ',' or ']', got %s", t.Kind)
			p.diag.Add(ERROR, t.Line, t.Column, "%s", err)

			return ast.Node{}, err
		}
	}
}

// parseDict parses a braced, comma-separated sequence of "key": value pairs. Keys must be string
// literals.
func (p *Parser) parseDict(open token.Token) (ast.Node, error) {
	var entries []ast.DictEntry

	pk, err := p.peekTok()
	if err != nil {
		p.reportLexError(err)

		return ast.Node{}, err
	}

	if pk.Kind == token.RBrace {
		p.next()

		return ast.DictLiteral(entries, open.Line, open.Column), nil
	}

	for {
		keyTok, err := p.next()
		if err != nil {
			p.reportLexError(err)

			return ast.Node{}, err
		}

		if keyTok.Kind != token.String {
			err := fmt.Errorf("dict key must be a string literal, got %s", keyTok.Kind)
			p.diag.Add(ERROR, keyTok.Line, keyTok.Column, "%s", err)

			return ast.Node{}, err
		}

		colon, err := p.next()
		if err != nil {
			p.reportLexError(err)

			return ast.Node{}, err
		}

		if colon.Kind != token.Colon {
			err := fmt.Errorf("expected ':' after dict key, got %s", colon.Kind)
			p.diag.Add(ERROR, colon.Line, colon.Column, "%s", err)

			return ast.Node{}, err
		}

		val, err := p.parseParam()
		if err != nil {
			return ast.Node{}, err
		}

		entries = append(entries, ast.DictEntry{Key: keyTok.Literal, Value: val})

		t, err := p.next()
		if err != nil {
			p.reportLexError(err)

			return ast.Node{}, err
		}

		switch t.Kind {
		case token.Comma:
			pk, err := p.peekTok()
			if err != nil {
				p.reportLexError(err)

				return ast.Node{}, err
			}

			if pk.Kind == token.RBrace {
				err := fmt.Errorf("trailing comma before %s", pk.Kind)
				p.diag.Add(ERROR, pk.Line, pk.Column, "%s", err)

				return ast.Node{}, err
			}

			continue
		case token.RBrace:
			return ast.DictLiteral(entries, open.Line, open.Column), nil
		default:
			err := fmt.Errorf("expected ',' or '}', got %s", t.Kind)
			p.diag.Add(ERROR, t.Line, t.Column, "%s", err)

			return ast.Node{}, err
		}
	}
}
