package acf

import (
	"errors"
	"strings"
	"testing"
)

func TestNewParser(t *testing.T) {
	p := NewParser()
	if p == nil {
		t.Fatal("NewParser() returned nil")
	}
}

func TestParse_Simple(t *testing.T) {
	input := `("main"
	'name' -> "Alice"
	'tags' -> {
		'a'
		'b'
	}
)`

	p := NewParser()
	store, err := p.Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	name, ok := store.Get("name").(Scalar)
	if !ok {
		t.Fatalf("Expected Scalar for name, got %T", store.Get("name"))
	}
	if name.Str() != "Alice" || !name.IsText() {
		t.Errorf("Expected text 'Alice', got %v", name)
	}

	tags, ok := store.Get("tags").(*List)
	if !ok {
		t.Fatalf("Expected *List for tags, got %T", store.Get("tags"))
	}
	got := tags.Strings()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Expected tags [a b], got %v", got)
	}

	if store.IsSet("missing") {
		t.Error("Expected missing to be unset")
	}
}

func TestParse_UnclosedSection(t *testing.T) {
	input := "(\"main\"\n\t'x' -> 1\n"

	_, err := NewParser().ParseBytes([]byte(input))
	if !errors.Is(err, ErrUnclosedSection) {
		t.Fatalf("Expected ErrUnclosedSection, got %v", err)
	}

	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("Expected *FormatError, got %T", err)
	}
	if fe.Line != 1 {
		t.Errorf("Expected error at line 1, got %d", fe.Line)
	}
	if !strings.Contains(err.Error(), `"main"`) {
		t.Errorf("Expected error to name the main section, got %q", err.Error())
	}
}

func TestParse_NestedSections(t *testing.T) {
	input := `("main"
	("server"
		'host' -> "localhost"
		("tls"
			'enabled' -> true
		)
	)
	'after' -> 1
)`

	store, err := NewParser().ParseBytes([]byte(input))
	if err != nil {
		t.Fatalf("ParseBytes() failed: %v", err)
	}

	if got := store.Get("server.host"); got == nil || !got.Equal(Text("localhost")) {
		t.Errorf("Expected server.host 'localhost', got %v", got)
	}
	if got := store.Get("main.server.tls.enabled"); got == nil || !got.Equal(Bool(true)) {
		t.Errorf("Expected server.tls.enabled true, got %v", got)
	}
	if got := store.Get("after"); got == nil || !got.Equal(Int(1)) {
		t.Errorf("Expected after 1, got %v", got)
	}
}

func TestParse_RootForms(t *testing.T) {
	inputs := []string{
		"(\n'a' -> 1\n)",
		"(\"main\"\n'a' -> 1\n)",
		"(\"\"\n'a' -> 1\n)",
	}

	for _, input := range inputs {
		store, err := NewParser().ParseBytes([]byte(input))
		if err != nil {
			t.Errorf("ParseBytes(%q) failed: %v", input, err)
			continue
		}
		if !store.IsSet("a") {
			t.Errorf("ParseBytes(%q): expected a to be set", input)
		}
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"extra close", "(\"main\"\n)\n)", ErrUnclosedSection},
		{"repeated section", "(\"main\"\n(\"a\"\n)\n(\"a\"\n)\n)", ErrRepeatedSection},
		{"repeated key", "(\"main\"\n'k' -> 1\n'k' -> 2\n)", ErrRepeatedKey},
		{"key clashes with section", "(\"main\"\n(\"k\")\n'k' -> 2\n)", ErrRepeatedKey},
		{"no spaces around arrow", "(\"main\"\n'k'->1\n)", ErrInvalidBinding},
		{"two spaces before arrow", "(\"main\"\n'k'  -> 1\n)", ErrInvalidBinding},
		{"two spaces after arrow", "(\"main\"\n'k' ->  1\n)", ErrInvalidBinding},
		{"unquoted key", "(\"main\"\nk -> 1\n)", ErrInvalidBinding},
		{"mismatched key quotes", "(\"main\"\n'k\" -> 1\n)", ErrInvalidBinding},
		{"dotted key", "(\"main\"\n'a.b' -> 1\n)", ErrInvalidBinding},
		{"keyed then simple", "(\"main\"\n'l' -> {\n'k' -> 1\n'x'\n}\n)", ErrMixedList},
		{"simple then keyed", "(\"main\"\n'l' -> {\n'x'\n'k' -> 1\n}\n)", ErrMixedList},
		{"unclosed list", "(\"main\"\n'l' -> {\n'x'\n", ErrUnclosedList},
		{"list runs into section close", "(\"main\"\n'l' -> {\n'x'\n)", ErrUnclosedList},
		{"unterminated value quote", "(\"main\"\n'k' -> \"abc\n)", ErrUnterminatedQuote},
		{"unterminated comment", "(\"main\"\n*( never closed\n'k' -> 1\n)", ErrUnterminatedComment},
		{"binding outside root", "'k' -> 1", ErrRootSection},
		{"misnamed root", "(\"other\"\n)", ErrRootSection},
		{"second root", "(\"main\"\n)\n(\"main\"\n)", ErrRootSection},
		{"content after root", "(\"main\"\n)\n'k' -> 1", ErrUnexpectedContent},
		{"dotted section", "(\"main\"\n(\"a.b\"\n)\n)", ErrUnexpectedContent},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := NewParser().ParseBytes([]byte(test.input))
			if err == nil {
				t.Fatalf("Expected error, got nil")
			}
			if !errors.Is(err, test.want) {
				t.Errorf("Expected %v, got %v", test.want, err)
			}
			var fe *FormatError
			if !errors.As(err, &fe) {
				t.Errorf("Expected *FormatError, got %T", err)
			} else if fe.Line == 0 {
				t.Errorf("Expected a line number in %v", err)
			}
		})
	}
}

func TestParse_ErrorReportsLine(t *testing.T) {
	input := "(\"main\"\n\t'a' -> 1\n\n\t'b'->2\n)"

	_, err := NewParser().WithSource("app.acf").ParseBytes([]byte(input))
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("Expected *FormatError, got %v", err)
	}
	if fe.Line != 4 {
		t.Errorf("Expected line 4, got %d", fe.Line)
	}
	if fe.Text != "\t'b'->2" {
		t.Errorf("Expected offending line text, got %q", fe.Text)
	}
	if !strings.Contains(err.Error(), "app.acf") {
		t.Errorf("Expected source name in %q", err.Error())
	}
}

func TestParse_UnterminatedCommentLine(t *testing.T) {
	input := "(\"main\"\n'a' -> 1\n*( open\nstill open\n"

	_, err := NewParser().ParseBytes([]byte(input))
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("Expected *FormatError, got %v", err)
	}
	if fe.Line != 3 {
		t.Errorf("Expected error at opening line 3, got %d", fe.Line)
	}
}

func TestParse_LegacyKeyQuotes(t *testing.T) {
	input := "(\"main\"\n\"legacy\" -> 1\n)"

	store, err := NewParser().ParseBytes([]byte(input))
	if err != nil {
		t.Fatalf("ParseBytes() failed: %v", err)
	}
	if !store.IsSet("legacy") {
		t.Error("Expected legacy key to be set")
	}

	_, err = NewParser().WithKeyQuotes("'").ParseBytes([]byte(input))
	if !errors.Is(err, ErrInvalidBinding) {
		t.Errorf("Expected ErrInvalidBinding with single-quote keys only, got %v", err)
	}
}

func TestParse_Comments(t *testing.T) {
	input := `*( header
   comment )*
("main" */ root
	'a' -> 1 */ trailing
	*( block *) not closed yet
	still comment )*
	'url' -> "http://example.com/*/x"
	'b' -> 'keep *( this'
)`

	store, err := NewParser().ParseBytes([]byte(input))
	if err != nil {
		t.Fatalf("ParseBytes() failed: %v", err)
	}
	if got := store.Get("a"); got == nil || !got.Equal(Int(1)) {
		t.Errorf("Expected a 1, got %v", got)
	}
	if got := store.Get("url"); got == nil || !got.Equal(Text("http://example.com/*/x")) {
		t.Errorf("Expected url with comment token kept, got %v", got)
	}
	if got := store.Get("b"); got == nil || !got.Equal(Text("keep *( this")) {
		t.Errorf("Expected b with block token kept, got %v", got)
	}
	if store.Len() != 3 {
		t.Errorf("Expected 3 bindings, got %d", store.Len())
	}
}

func TestParse_ApostropheInBareValue(t *testing.T) {
	input := "(\"main\"\n\t'k' -> don't */ note\n\t'n' -> it's *( block\n\tcomment )*\n)"

	store, err := NewParser().ParseBytes([]byte(input))
	if err != nil {
		t.Fatalf("ParseBytes() failed: %v", err)
	}
	if got := store.Get("k"); got == nil || !got.Equal(Text("don't")) {
		t.Errorf("Expected k to be don't, got %v", got)
	}
	if got := store.Get("n"); got == nil || !got.Equal(Text("it's")) {
		t.Errorf("Expected n to be it's, got %v", got)
	}
}

func TestParse_Lists(t *testing.T) {
	input := `("main"
	'empty' -> {}
	'nested' -> {
		{
			'x'
			'y'
		}
		'z'
	}
	'keyed' -> {
		'n' -> 1
		'inner' -> {
			'deep' -> true
		}
		'link' <-> "back"
	}
)`

	store, err := NewParser().ParseBytes([]byte(input))
	if err != nil {
		t.Fatalf("ParseBytes() failed: %v", err)
	}

	empty, ok := store.Get("empty").(*List)
	if !ok || empty.Len() != 0 {
		t.Errorf("Expected empty list, got %v", store.Get("empty"))
	}

	nested, ok := store.Get("nested").(*List)
	if !ok || nested.Len() != 2 {
		t.Fatalf("Expected nested list of 2, got %v", store.Get("nested"))
	}
	if inner, ok := nested.At(0).(*List); !ok || inner.Len() != 2 {
		t.Errorf("Expected inner list of 2, got %v", nested.At(0))
	}

	keyed, ok := store.Get("keyed").(*KeyedList)
	if !ok {
		t.Fatalf("Expected *KeyedList, got %T", store.Get("keyed"))
	}
	if keys := keyed.Keys(); len(keys) != 3 || keys[0] != "n" || keys[1] != "inner" || keys[2] != "link" {
		t.Errorf("Expected keys [n inner link], got %v", keys)
	}
	if _, ok := keyed.Get("inner").(*KeyedList); !ok {
		t.Errorf("Expected inner keyed list, got %T", keyed.Get("inner"))
	}
	if !keyed.IsRecursive("link") || keyed.KeyOf(Text("back")) != "link" {
		t.Error("Expected link to be recursive")
	}
}

func TestParse_Recursive(t *testing.T) {
	input := "(\"main\"\n'admin' <-> \"root\"\n'plain' -> \"x\"\n)"

	store, err := NewParser().ParseBytes([]byte(input))
	if err != nil {
		t.Fatalf("ParseBytes() failed: %v", err)
	}
	if !store.IsRecursive("admin") {
		t.Error("Expected admin to be recursive")
	}
	if store.PathOf(Text("root")) != "main.admin" {
		t.Errorf("Expected reverse lookup main.admin, got %q", store.PathOf(Text("root")))
	}
	if store.IsRecursive("plain") {
		t.Error("Expected plain not to be recursive")
	}
}

func TestParseScalar(t *testing.T) {
	tests := []struct {
		input string
		typ   ScalarType
		want  any
	}{
		{"true", TypeBool, true},
		{"FALSE", TypeBool, false},
		{"3,5", TypeDecimal, 3.5},
		{"3.5", TypeFloat, 3.5},
		{"-2.25", TypeFloat, -2.25},
		{"3", TypeInteger, int64(3)},
		{"-17", TypeInteger, int64(-17)},
		{"yes", TypeText, "yes"},
		{"1.2.3", TypeText, "1.2.3"},
		{"1,2,3", TypeText, "1,2,3"},
		{`"true"`, TypeText, "true"},
		{`'42'`, TypeText, "42"},
		{`"it's"`, TypeText, "it's"},
		{`''`, TypeText, ""},
	}

	for _, test := range tests {
		got, err := ParseScalar(test.input)
		if err != nil {
			t.Errorf("ParseScalar(%s) failed: %v", test.input, err)
			continue
		}
		if got.Type() != test.typ {
			t.Errorf("ParseScalar(%s): expected type %s, got %s", test.input, test.typ, got.Type())
		}
		if got.Value() != test.want {
			t.Errorf("ParseScalar(%s): expected %v, got %v", test.input, test.want, got.Value())
		}
	}
}

func TestParseScalar_Unterminated(t *testing.T) {
	for _, input := range []string{`"abc`, `'abc`, `"a"b"`, `'`} {
		if _, err := ParseScalar(input); err == nil {
			t.Errorf("ParseScalar(%s): expected error", input)
		}
	}
}

func TestParseSectionHeader(t *testing.T) {
	tests := []struct {
		code     string
		name     string
		closed   bool
		isHeader bool
		wantErr  bool
	}{
		{"(", "", false, true, false},
		{"()", "", true, true, false},
		{`("db"`, "db", false, true, false},
		{`("db")`, "db", true, true, false},
		{`( "db" )`, "db", true, true, false},
		{`(db`, "", false, true, true},
		{`("db" x`, "", false, true, true},
		{`'k' -> 1`, "", false, false, false},
	}

	for _, test := range tests {
		name, closed, isHeader, err := parseSectionHeader(test.code)
		if (err != nil) != test.wantErr {
			t.Errorf("parseSectionHeader(%s): unexpected error state %v", test.code, err)
			continue
		}
		if name != test.name || closed != test.closed || isHeader != test.isHeader {
			t.Errorf("parseSectionHeader(%s) = %q, %v, %v; want %q, %v, %v",
				test.code, name, closed, isHeader, test.name, test.closed, test.isHeader)
		}
	}
}
