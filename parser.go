package acf

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	arrow          = "->"
	recursiveArrow = "<->"
)

// scanner walks lexed lines, skipping those that carry no code.
type scanner struct {
	lines []line
	pos   int
}

func newScanner(lines []line) *scanner {
	return &scanner{lines: lines}
}

// next returns the next line with code.
func (s *scanner) next() (line, bool) {
	for s.pos < len(s.lines) {
		l := s.lines[s.pos]
		s.pos++
		if !l.blank() {
			return l, true
		}
	}
	return line{}, false
}

// listKind is the kind a list block settles on with its first item.
type listKind int

const (
	listUnset listKind = iota
	listSimple
	listKeyed
)

// openSection is a section on the parser stack.
type openSection struct {
	path string
	line line
}

// Parser provides configurable parsing functionality.
type Parser struct {
	source    string
	keyQuotes string
}

// NewParser creates a new Parser with default configuration. Keys may be
// quoted with ' or, in the legacy form, with ".
func NewParser() *Parser {
	return &Parser{
		keyQuotes: `'"`,
	}
}

// WithSource names the input in error messages.
func (p *Parser) WithSource(name string) *Parser {
	p.source = name
	return p
}

// WithKeyQuotes configures the characters accepted around keys.
func (p *Parser) WithKeyQuotes(quotes string) *Parser {
	p.keyQuotes = quotes
	return p
}

// Parse parses an ACF document from an io.Reader into a Store.
func (p *Parser) Parse(r io.Reader) (*Store, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p.sourceName(), err)
	}
	return p.ParseBytes(data)
}

// ParseBytes parses an ACF document held in memory.
func (p *Parser) ParseBytes(data []byte) (*Store, error) {
	lines, err := lex(p.source, string(data))
	if err != nil {
		return nil, err
	}
	return p.parseLines(lines)
}

func (p *Parser) sourceName() string {
	if p.source == "" {
		return "<input>"
	}
	return p.source
}

func (p *Parser) fail(l line, err error, detail string) error {
	return &FormatError{
		Source: p.source,
		Line:   l.num,
		Text:   strings.TrimRight(l.raw, "\r"),
		Detail: detail,
		Err:    err,
	}
}

// parseLines runs the section state machine over lexed lines.
func (p *Parser) parseLines(lines []line) (*Store, error) {
	store := NewStore()
	sc := newScanner(lines)

	var (
		stack    []openSection
		rootDone bool
		// names tracks keys and section names already used per section path.
		names = make(map[string]map[string]bool)
	)

	claim := func(section, name string) bool {
		used := names[section]
		if used == nil {
			used = make(map[string]bool)
			names[section] = used
		}
		if used[name] {
			return false
		}
		used[name] = true
		return true
	}

	for {
		l, ok := sc.next()
		if !ok {
			break
		}
		store.index(strings.TrimRight(l.raw, "\r"), l.num)
		code := strings.TrimSpace(l.code)

		if code == ")" {
			if len(stack) == 0 {
				return nil, p.fail(l, ErrUnclosedSection, "no open section to close")
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				rootDone = true
			}
			continue
		}

		if len(stack) == 0 {
			if rootDone {
				if strings.HasPrefix(code, "(") {
					return nil, p.fail(l, ErrRootSection, "second top-level section")
				}
				return nil, p.fail(l, ErrUnexpectedContent, "content after the root section")
			}
			name, closed, isHeader, err := parseSectionHeader(code)
			if !isHeader {
				return nil, p.fail(l, ErrRootSection, "document must start with the root section")
			}
			if err != nil {
				return nil, p.fail(l, ErrRootSection, err.Error())
			}
			if name != "" && name != RootSection {
				return nil, p.fail(l, ErrRootSection, fmt.Sprintf("root section must be named %q, got %q", RootSection, name))
			}
			if closed {
				rootDone = true
				continue
			}
			stack = append(stack, openSection{path: RootSection, line: l})
			continue
		}

		current := stack[len(stack)-1].path

		if strings.HasPrefix(code, "(") {
			name, closed, _, err := parseSectionHeader(code)
			if err != nil {
				return nil, p.fail(l, ErrUnexpectedContent, err.Error())
			}
			if name == "" {
				return nil, p.fail(l, ErrUnexpectedContent, "section name must not be empty")
			}
			if !claim(current, name) {
				return nil, p.fail(l, ErrRepeatedSection, fmt.Sprintf("%q in %s", name, current))
			}
			if !closed {
				stack = append(stack, openSection{path: current + "." + name, line: l})
			}
			continue
		}

		b, err := p.parseBinding(code)
		if err != nil {
			return nil, p.fail(l, ErrInvalidBinding, err.Error())
		}
		if !claim(current, b.key) {
			return nil, p.fail(l, ErrRepeatedKey, fmt.Sprintf("%q in %s", b.key, current))
		}
		value, err := p.parseValue(sc, l, b.value)
		if err != nil {
			return nil, err
		}
		path := current + "." + b.key
		if b.recursive {
			store.SetRecursive(path, value)
		} else {
			store.Set(path, value)
		}
	}

	if len(stack) > 0 {
		top := stack[len(stack)-1]
		return nil, p.fail(top.line, ErrUnclosedSection,
			fmt.Sprintf("section %q opened at line %d is never closed", top.path, top.line.num))
	}

	return store, nil
}

// parseSectionHeader reads `(`, `("name"` or `("name")`. isHeader is false
// when code is not a section header at all.
func parseSectionHeader(code string) (name string, closed, isHeader bool, err error) {
	c := newCursor(code)
	if !c.accept("(") {
		return "", false, false, nil
	}
	c.skipSpace()
	if c.done() {
		return "", false, true, nil
	}
	m := c.mark()
	if c.accept(")") {
		c.skipSpace()
		if c.done() {
			return "", true, true, nil
		}
		c.reset(m)
	}
	if !c.accept(`"`) {
		return "", false, true, fmt.Errorf("section name must be quoted with '\"'")
	}
	name, ok := c.until('"')
	if !ok {
		return "", false, true, fmt.Errorf("unterminated section name")
	}
	c.advance(1)
	switch tail := strings.TrimSpace(c.rest()); tail {
	case "":
	case ")":
		closed = true
	default:
		return "", false, true, fmt.Errorf("unexpected %q after section name", tail)
	}
	if strings.ContainsAny(name, ".'") {
		return "", false, true, fmt.Errorf("section name %q must not contain '.' or quotes", name)
	}
	return name, closed, true, nil
}

// binding is a parsed `'key' -> value` line.
type binding struct {
	key       string
	quote     byte
	recursive bool
	value     string
}

// parseBinding reads a quoted key, an arrow surrounded by single spaces and
// the raw value text.
func (p *Parser) parseBinding(code string) (binding, error) {
	c := newCursor(code)
	q := c.peek()
	if q == 0 || strings.IndexByte(p.keyQuotes, q) < 0 {
		return binding{}, fmt.Errorf("key must be quoted with one of %s", p.keyQuotes)
	}
	c.advance(1)
	key, ok := c.until(q)
	if !ok {
		return binding{}, fmt.Errorf("unterminated key quote")
	}
	c.advance(1)
	if key == "" {
		return binding{}, fmt.Errorf("empty key")
	}
	if strings.ContainsAny(key, `'"`) {
		return binding{}, fmt.Errorf("mismatched quotes around key %q", key)
	}
	if strings.Contains(key, ".") {
		return binding{}, fmt.Errorf("key %q must not contain '.'", key)
	}

	b := binding{key: key, quote: q}
	switch {
	case c.accept(" " + recursiveArrow + " "):
		b.recursive = true
	case c.accept(" " + arrow + " "):
	default:
		return binding{}, fmt.Errorf("expected %q or %q surrounded by single spaces after key %q", arrow, recursiveArrow, key)
	}
	b.value = c.rest()
	if b.value == "" || b.value[0] == ' ' || b.value[0] == '\t' {
		return binding{}, fmt.Errorf("missing value after arrow for key %q", key)
	}
	return b, nil
}

// isKeyedItem reports whether a list line is a `'key' -> value` item rather
// than a single quoted scalar.
func (p *Parser) isKeyedItem(code string) bool {
	c := newCursor(code)
	q := c.peek()
	if q == 0 || strings.IndexByte(p.keyQuotes, q) < 0 {
		return false
	}
	c.advance(1)
	if _, ok := c.until(q); !ok {
		return false
	}
	c.advance(1)
	return strings.TrimSpace(c.rest()) != ""
}

// parseValue parses the value part of a binding or list item.
func (p *Parser) parseValue(sc *scanner, l line, text string) (Element, error) {
	switch text {
	case "{":
		return p.parseList(sc, l)
	case "{}":
		return NewList(), nil
	}
	s, err := ParseScalar(text)
	if err != nil {
		return nil, p.fail(l, ErrUnterminatedQuote, err.Error())
	}
	return s, nil
}

// parseList parses the body of a `{` block up to its closing `}`.
func (p *Parser) parseList(sc *scanner, open line) (Element, error) {
	kind := listUnset
	simple := NewList()
	keyed := NewKeyedList()

	for {
		l, ok := sc.next()
		if !ok {
			return nil, p.fail(open, ErrUnclosedList, "list is never closed")
		}
		code := strings.TrimSpace(l.code)
		if code == "}" {
			break
		}
		if code == ")" || strings.HasPrefix(code, "(") {
			return nil, p.fail(l, ErrUnclosedList, fmt.Sprintf("list opened at line %d is not closed before section marker", open.num))
		}

		if p.isKeyedItem(code) {
			if kind == listSimple {
				return nil, p.fail(l, ErrMixedList, "keyed item in a simple list")
			}
			kind = listKeyed
			b, err := p.parseBinding(code)
			if err != nil {
				return nil, p.fail(l, ErrInvalidBinding, err.Error())
			}
			if keyed.Has(b.key) {
				return nil, p.fail(l, ErrRepeatedKey, fmt.Sprintf("%q in keyed list", b.key))
			}
			value, err := p.parseValue(sc, l, b.value)
			if err != nil {
				return nil, err
			}
			if b.recursive {
				keyed.SetRecursive(b.key, value)
			} else {
				keyed.Set(b.key, value)
			}
			continue
		}

		if kind == listKeyed {
			return nil, p.fail(l, ErrMixedList, "simple item in a keyed list")
		}
		kind = listSimple
		value, err := p.parseValue(sc, l, code)
		if err != nil {
			return nil, err
		}
		simple.Append(value)
	}

	if kind == listKeyed {
		return keyed, nil
	}
	return simple, nil
}

// ParseScalar coerces a raw value. Quoted values are text. Unquoted values
// are tried as boolean, comma decimal, dotted float and integer, falling back
// to text.
func ParseScalar(text string) (Scalar, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Text(""), nil
	}
	if q := text[0]; q == '"' || q == '\'' {
		if len(text) < 2 || text[len(text)-1] != q {
			return Scalar{}, fmt.Errorf("missing closing %c in %s", q, text)
		}
		inner := text[1 : len(text)-1]
		if strings.IndexByte(inner, q) >= 0 {
			return Scalar{}, fmt.Errorf("embedded %c in %s", q, text)
		}
		return Text(inner), nil
	}

	switch strings.ToLower(text) {
	case "true":
		return Bool(true), nil
	case "false":
		return Bool(false), nil
	}

	if strings.Contains(text, ",") {
		if f, err := strconv.ParseFloat(strings.Replace(text, ",", ".", 1), 64); err == nil {
			return Decimal(f), nil
		}
		return Text(text), nil
	}
	if strings.Contains(text, ".") {
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return Float(f), nil
		}
		return Text(text), nil
	}
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return Int(i), nil
	}
	return Text(text), nil
}
