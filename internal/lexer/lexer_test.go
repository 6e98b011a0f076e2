package lexer

import (
	"testing"

	"github.com/NumSlower/ocl/internal/diag"
	"github.com/NumSlower/ocl/internal/token"
)

func scanAll(t *testing.T, src string) ([]token.Token, *diag.Collector) {
	t.Helper()
	collector := diag.New()
	toks := New(src, collector).Scan()
	return toks, collector
}

func TestScanPunctuationAndOperators(t *testing.T) {
	toks, collector := scanAll(t, "(){}[],;:.+-*/% = == != < <= > >= && ||")
	if collector.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", collector.Items())
	}
	want := []token.Type{
		token.LPAREN, token.RPAREN, token.LBRACE, token.RBRACE,
		token.LBRACKET, token.RBRACKET, token.COMMA, token.SEMICOLON,
		token.COLON, token.DOT, token.PLUS, token.MINUS, token.STAR,
		token.SLASH, token.PERCENT, token.ASSIGN, token.EQUAL_EQUAL,
		token.NOT_EQUAL, token.LESS, token.LESS_EQUAL, token.GREATER,
		token.GREATER_EQUAL, token.AND_AND, token.OR_OR, token.EOF,
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(toks), len(want), toks)
	}
	for i, w := range want {
		if toks[i].Type != w {
			t.Errorf("token %d: got %s, want %s", i, toks[i].Type, w)
		}
	}
}

func TestScanKeywordsAndIdentifiers(t *testing.T) {
	toks, collector := scanAll(t, "Let func if else while for return break continue Import true false count")
	if collector.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", collector.Items())
	}
	want := []token.Type{
		token.LET, token.FUNC, token.IF, token.ELSE, token.WHILE, token.FOR,
		token.RETURN, token.BREAK, token.CONTINUE, token.IMPORT, token.TRUE,
		token.FALSE, token.IDENTIFIER, token.EOF,
	}
	for i, w := range want {
		if toks[i].Type != w {
			t.Errorf("token %d: got %s, want %s", i, toks[i].Type, w)
		}
	}
}

func TestScanNumbers(t *testing.T) {
	toks, collector := scanAll(t, "42 3.14")
	if collector.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", collector.Items())
	}
	if toks[0].Type != token.INT || toks[0].Literal.(int64) != 42 {
		t.Errorf("got %v, want int 42", toks[0])
	}
	if toks[1].Type != token.FLOAT || toks[1].Literal.(float64) != 3.14 {
		t.Errorf("got %v, want float 3.14", toks[1])
	}
}

func TestScanStringEscapes(t *testing.T) {
	toks, collector := scanAll(t, `"hi\nthere"`)
	if collector.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", collector.Items())
	}
	if toks[0].Type != token.STRING || toks[0].Lexeme != "hi\nthere" {
		t.Errorf("got %q, want %q", toks[0].Lexeme, "hi\nthere")
	}
}

func TestScanUnclosedStringRecordsDiagnosticAndContinues(t *testing.T) {
	toks, collector := scanAll(t, "\"unterminated\n42")
	if !collector.HasErrors() {
		t.Fatalf("expected a diagnostic for the unclosed string")
	}
	// scanning must continue past the bad token and still find the int.
	found := false
	for _, tk := range toks {
		if tk.Type == token.INT {
			found = true
		}
	}
	if !found {
		t.Errorf("expected lexing to continue past the unclosed string, got %v", toks)
	}
}

func TestSkipBlockComments(t *testing.T) {
	toks, collector := scanAll(t, "1 /# a comment /# nested #/ still here #/ 2")
	if collector.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", collector.Items())
	}
	if len(toks) != 3 || toks[0].Type != token.INT || toks[1].Type != token.INT {
		t.Fatalf("got %v, want two ints and EOF", toks)
	}
}
