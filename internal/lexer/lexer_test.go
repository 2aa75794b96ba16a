package lexer_test

import (
	"errors"
	"testing"

	. "ssp/internal/lexer"
	"ssp/internal/token"
)

func tokenize(t *testing.T, src string) []token.Token {
	t.Helper()

	l := New(NewSource(src))

	var toks []token.Token

	for {
		tok, err := l.Next()
		if err != nil {
			t.Fatalf("Next(): %s", err)
		}

		toks = append(toks, tok)

		if tok.Kind == token.EOF {
			return toks
		}
	}
}

func TestTokenKinds(t *testing.T) {
	toks := tokenize(t, `PUSH 1, -2, 3.5, "hi", [1, 2], {"a": 1}`)

	var kinds []token.Kind
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}

	want := []token.Kind{
		token.Identifier, token.Integer, token.Comma, token.Integer, token.Comma, token.Real,
		token.Comma, token.String, token.Comma, token.LBracket, token.Integer, token.Comma,
		token.Integer, token.RBracket, token.Comma, token.LBrace, token.String, token.Colon,
		token.Integer, token.RBrace, token.EOF,
	}

	if len(kinds) != len(want) {
		t.Fatalf("token count = %d, want %d (%v)", len(kinds), len(want), kinds)
	}

	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("token %d: kind = %s, want %s", i, kinds[i], want[i])
		}
	}
}

func TestHexAndBinaryLiterals(t *testing.T) {
	toks := tokenize(t, "0x1F 0b101")

	if toks[0].Literal != "0x1F" || toks[0].Kind != token.Integer {
		t.Errorf("got %+v", toks[0])
	}

	if toks[1].Literal != "0b101" || toks[1].Kind != token.Integer {
		t.Errorf("got %+v", toks[1])
	}
}

func TestStringEscapes(t *testing.T) {
	toks := tokenize(t, `"a\tb\n\"c\\"`)

	if got, want := toks[0].Literal, "a\tb\n\"c\\"; got != want {
		t.Errorf("literal = %q, want %q", got, want)
	}
}

func TestComment(t *testing.T) {
	toks := tokenize(t, "PUSH 1 # a trailing comment\nPUSH 2")

	if toks[0].Kind != token.Identifier || toks[2].Kind != token.Identifier {
		t.Fatalf("got %+v", toks)
	}
}

func TestUnterminatedString(t *testing.T) {
	l := New(NewSource(`"abc`))

	_, err := l.Next()

	var perr *PositionError
	if !errors.As(err, &perr) || !errors.Is(err, ErrUnterminatedString) {
		t.Fatalf("err = %v, want *PositionError wrapping ErrUnterminatedString", err)
	}
}

func TestUnknownChar(t *testing.T) {
	l := New(NewSource(`@`))

	_, err := l.Next()
	if !errors.Is(err, ErrUnknownChar) {
		t.Fatalf("err = %v, want ErrUnknownChar", err)
	}
}

func TestMalformedNumeric(t *testing.T) {
	l := New(NewSource(`0x`))

	_, err := l.Next()
	if !errors.Is(err, ErrMalformedNumeric) {
		t.Fatalf("err = %v, want ErrMalformedNumeric", err)
	}
}
