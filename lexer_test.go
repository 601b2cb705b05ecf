package acf

import (
	"errors"
	"testing"
)

func TestLex_LineStructure(t *testing.T) {
	input := "(\"main\"\n*( a\nb )*\n\t'k' -> 1 */ note\n)\n"

	lines, err := lex("", input)
	if err != nil {
		t.Fatalf("lex() failed: %v", err)
	}

	// The trailing newline yields a final empty line.
	if len(lines) != 6 {
		t.Fatalf("Expected 6 lines, got %d", len(lines))
	}
	for i, l := range lines {
		if l.num != i+1 {
			t.Errorf("line %d: expected num %d, got %d", i, i+1, l.num)
		}
	}

	if !lines[1].blank() || !lines[1].pure {
		t.Errorf("Expected block comment start to be a pure comment line: %+v", lines[1])
	}
	if !lines[2].blank() || !lines[2].pure {
		t.Errorf("Expected block comment end to be a pure comment line: %+v", lines[2])
	}

	k := lines[3]
	if k.code != "\t'k' -> 1" {
		t.Errorf("Expected code without comment, got %q", k.code)
	}
	if k.comment != "*/ note" {
		t.Errorf("Expected trailing comment, got %q", k.comment)
	}
	if k.indent() != "\t" {
		t.Errorf("Expected tab indent, got %q", k.indent())
	}
	if lines[5].raw != "" {
		t.Errorf("Expected empty final line, got %q", lines[5].raw)
	}
}

func TestLex_InlineBlockComment(t *testing.T) {
	lines, err := lex("", "'a' *(x)* -> 1")
	if err != nil {
		t.Fatalf("lex() failed: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("Expected 1 line, got %d", len(lines))
	}
	if !lines[0].inline {
		t.Error("Expected inline flag when code follows a comment")
	}
	if lines[0].pure {
		t.Error("Expected a line with code not to be pure")
	}
}

func TestLex_QuotedTokens(t *testing.T) {
	lines, err := lex("", `'u' -> "a*/b*(c"`)
	if err != nil {
		t.Fatalf("lex() failed: %v", err)
	}
	if lines[0].code != `'u' -> "a*/b*(c"` {
		t.Errorf("Expected quoted comment tokens to be kept, got %q", lines[0].code)
	}
	if lines[0].comment != "" {
		t.Errorf("Expected no comment, got %q", lines[0].comment)
	}
}

func TestLex_ApostropheInBareWord(t *testing.T) {
	tests := []struct {
		input   string
		code    string
		comment string
	}{
		{`'k' -> don't */ note`, `'k' -> don't`, `*/ note`},
		{`'k' -> don't *( note )*`, `'k' -> don't`, `*( note )*`},
		{`'k' -> say"hi" */ note`, `'k' -> say"hi"`, `*/ note`},
		{`'k' -> "don't" */ note`, `'k' -> "don't"`, `*/ note`},
		{`("db" */ note`, `("db"`, `*/ note`},
	}

	for _, test := range tests {
		lines, err := lex("", test.input)
		if err != nil {
			t.Fatalf("lex(%q) failed: %v", test.input, err)
		}
		if lines[0].code != test.code {
			t.Errorf("lex(%q): expected code %q, got %q", test.input, test.code, lines[0].code)
		}
		if lines[0].comment != test.comment {
			t.Errorf("lex(%q): expected comment %q, got %q", test.input, test.comment, lines[0].comment)
		}
	}
}

func TestLex_UnterminatedBlock(t *testing.T) {
	_, err := lex("x.acf", "a\n*( open\nb")
	if !errors.Is(err, ErrUnterminatedComment) {
		t.Fatalf("Expected ErrUnterminatedComment, got %v", err)
	}
	var fe *FormatError
	if !errors.As(err, &fe) || fe.Line != 2 || fe.Text != "*( open" || fe.Source != "x.acf" {
		t.Errorf("Expected error at line 2 of x.acf, got %+v", fe)
	}
}

func TestLex_CRLF(t *testing.T) {
	lines, err := lex("", "(\r\n'a' -> 1\r\n)")
	if err != nil {
		t.Fatalf("lex() failed: %v", err)
	}
	if lines[1].code != "'a' -> 1" {
		t.Errorf("Expected carriage return to be trimmed from code, got %q", lines[1].code)
	}
	if lines[1].raw != "'a' -> 1\r" {
		t.Errorf("Expected raw line to keep its carriage return, got %q", lines[1].raw)
	}
}
