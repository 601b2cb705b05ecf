package acf

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Writer renders a Store as ACF text. Given the previously written text it
// works in patch mode: only bindings whose value changed are rewritten, new
// bindings are appended to their section and everything else is kept as is.
type Writer struct {
	indent string
	parser *Parser
}

// NewWriter creates a Writer indenting one tab per level.
func NewWriter() *Writer {
	return &Writer{
		indent: "\t",
		parser: NewParser(),
	}
}

// WithIndent configures the indentation unit of new lines.
func (w *Writer) WithIndent(indent string) *Writer {
	w.indent = indent
	return w
}

// WithParser configures the parser used to read the previous text.
func (w *Writer) WithParser(p *Parser) *Writer {
	w.parser = p
	return w
}

// Write renders store. previous may be nil or empty, in which case every
// binding is emitted fresh.
func (w *Writer) Write(store *Store, previous []byte) ([]byte, error) {
	if strings.TrimSpace(string(previous)) == "" {
		lines, err := w.document(store, &patchState{})
		if err != nil {
			return nil, err
		}
		return []byte(joinLines(lines) + "\n"), nil
	}
	return w.patch(store, string(previous))
}

// patchState records what the patch pass has already covered.
type patchState struct {
	// written holds paths whose binding has been emitted.
	written map[string]bool
	// existing holds section paths present in the previous text.
	existing map[string]bool
}

func (st *patchState) markWritten(path string) {
	if st.written == nil {
		st.written = make(map[string]bool)
	}
	st.written[path] = true
}

// frame is a section open during the patch pass.
type frame struct {
	path   string
	indent string
	// headerAt is the output index of the section header.
	headerAt int
}

// document renders the whole store from scratch.
func (w *Writer) document(store *Store, st *patchState) ([]string, error) {
	body, err := w.sectionLines(store, RootSection, w.indent, st, false)
	if err != nil {
		return nil, err
	}
	lines := make([]string, 0, len(body)+2)
	lines = append(lines, `("`+RootSection+`"`)
	lines = append(lines, body...)
	lines = append(lines, ")")
	return lines, nil
}

// sectionLines renders the unwritten bindings of section followed by its
// subsections missing from the previous text. lead requests a blank line
// before the first subsection even when no binding precedes it.
func (w *Writer) sectionLines(store *Store, section, indent string, st *patchState, lead bool) ([]string, error) {
	if err := checkShadowing(store, section); err != nil {
		return nil, err
	}
	var out []string
	for _, key := range store.Keys(section) {
		path := section + "." + key
		if st.written[path] {
			continue
		}
		st.markWritten(path)
		lines, err := w.renderBinding(indent, key, store.Get(path), store.IsRecursive(path))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		out = append(out, lines...)
	}
	for _, name := range store.Sections(section) {
		path := section + "." + name
		if st.existing[path] {
			continue
		}
		if err := checkName(name); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		body, err := w.sectionLines(store, path, indent+w.indent, st, false)
		if err != nil {
			return nil, err
		}
		if len(out) > 0 || lead {
			out = append(out, "")
		}
		out = append(out, indent+`("`+name+`"`)
		out = append(out, body...)
		out = append(out, indent+")")
	}
	return out, nil
}

// patch rewrites previous against store, line by line.
func (w *Writer) patch(store *Store, previous string) ([]byte, error) {
	lines, err := lex(w.parser.source, previous)
	if err != nil {
		return nil, err
	}
	old, err := w.parser.parseLines(lines)
	if err != nil {
		return nil, err
	}

	st := &patchState{
		written:  make(map[string]bool),
		existing: make(map[string]bool),
	}
	out := make([]string, 0, len(lines))
	var stack []frame
	sawRoot := false

	// closeFrame appends what is pending for the innermost section.
	closeFrame := func() error {
		top := stack[len(stack)-1]
		last := len(out) - 1
		lead := last != top.headerAt && strings.TrimSpace(out[last]) != ""
		pending, err := w.sectionLines(store, top.path, top.indent+w.indent, st, lead)
		if err != nil {
			return err
		}
		out = append(out, pending...)
		stack = stack[:len(stack)-1]
		return nil
	}

	for i := 0; i < len(lines); i++ {
		l := lines[i]
		if l.blank() {
			out = append(out, l.raw)
			continue
		}
		code := strings.TrimSpace(l.code)

		if code == ")" && len(stack) > 0 {
			if err := closeFrame(); err != nil {
				return nil, err
			}
			out = append(out, l.raw)
			continue
		}

		if strings.HasPrefix(code, "(") {
			name, closed, isHeader, err := parseSectionHeader(code)
			if isHeader && err == nil {
				path := RootSection
				if len(stack) > 0 {
					path = stack[len(stack)-1].path + "." + name
				} else {
					sawRoot = true
				}
				st.existing[path] = true
				stack = append(stack, frame{path: path, indent: l.indent(), headerAt: len(out)})
				if !closed {
					out = append(out, l.raw)
					continue
				}
				// A one-line section gets opened up when something lands in it.
				header := l.indent() + strings.TrimSpace(strings.TrimSuffix(code, ")"))
				out = append(out, header)
				before := len(out)
				if err := closeFrame(); err != nil {
					return nil, err
				}
				if len(out) == before {
					out[len(out)-1] = l.raw
				} else {
					out = append(out, l.indent()+")")
				}
				continue
			}
		}

		if len(stack) == 0 {
			out = append(out, l.raw)
			continue
		}

		b, err := w.parser.parseBinding(code)
		if err != nil {
			out = append(out, l.raw)
			continue
		}
		end := i
		if b.value == "{" {
			end = w.blockEnd(lines, i)
		}
		path := stack[len(stack)-1].path + "." + b.key

		switch {
		case store.Get(path) != nil:
			st.markWritten(path)
			cur := store.Get(path)
			prev := old.Get(path)
			if prev != nil && prev.Equal(cur) && old.IsRecursive(path) == store.IsRecursive(path) {
				for j := i; j <= end; j++ {
					out = append(out, lines[j].raw)
				}
				break
			}
			rendered, err := w.renderBinding(l.indent(), b.key, cur, store.IsRecursive(path))
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			if l.comment != "" && !l.inline {
				rendered[0] += commentGap(l) + l.comment
			}
			out = append(out, rendered...)
		case store.wasRemoved(path):
			// Dropped along with its list body.
		default:
			for j := i; j <= end; j++ {
				out = append(out, lines[j].raw)
			}
		}
		i = end
	}

	if !sawRoot {
		for len(out) > 0 && out[len(out)-1] == "" {
			out = out[:len(out)-1]
		}
		fresh, err := w.document(store, st)
		if err != nil {
			return nil, err
		}
		out = append(out, fresh...)
		out = append(out, "")
	}
	return []byte(joinLines(out)), nil
}

// blockEnd returns the index of the line closing the list opened at start.
func (w *Writer) blockEnd(lines []line, start int) int {
	depth := 1
	for j := start + 1; j < len(lines); j++ {
		if lines[j].blank() {
			continue
		}
		code := strings.TrimSpace(lines[j].code)
		switch {
		case code == "}":
			depth--
			if depth == 0 {
				return j
			}
		case w.opensBlock(code):
			depth++
		}
	}
	return len(lines) - 1
}

// opensBlock reports whether a list line opens a nested block.
func (w *Writer) opensBlock(code string) bool {
	if code == "{" {
		return true
	}
	if !w.parser.isKeyedItem(code) {
		return false
	}
	b, err := w.parser.parseBinding(code)
	return err == nil && b.value == "{"
}

// commentGap returns the whitespace that separated code from its trailing comment.
func commentGap(l line) string {
	idx := strings.LastIndex(l.raw, l.comment)
	if idx <= 0 {
		return " "
	}
	before := l.raw[:idx]
	gap := before[len(strings.TrimRight(before, " \t")):]
	if gap == "" {
		return " "
	}
	return gap
}

// renderBinding renders `'key' -> value`, spreading lists over several lines.
func (w *Writer) renderBinding(indent, key string, e Element, recursive bool) ([]string, error) {
	if err := checkName(key); err != nil {
		return nil, err
	}
	a := arrow
	if recursive {
		a = recursiveArrow
	}
	head := indent + "'" + key + "' " + a + " "

	switch v := e.(type) {
	case Scalar:
		s, err := renderScalar(v, '"')
		if err != nil {
			return nil, err
		}
		return []string{head + s}, nil
	case *List, *KeyedList:
		body, err := w.renderListBody(indent+w.indent, v)
		if err != nil {
			return nil, err
		}
		if len(body) == 0 {
			return []string{head + "{}"}, nil
		}
		lines := append([]string{head + "{"}, body...)
		return append(lines, indent+"}"), nil
	default:
		return nil, fmt.Errorf("%w: nil element for key %q", ErrUnencodable, key)
	}
}

// renderListBody renders the items of a simple or keyed list.
func (w *Writer) renderListBody(indent string, e Element) ([]string, error) {
	var out []string
	switch v := e.(type) {
	case *KeyedList:
		for _, key := range v.keys {
			lines, err := w.renderBinding(indent, key, v.entries[key], v.IsRecursive(key))
			if err != nil {
				return nil, err
			}
			out = append(out, lines...)
		}
	case *List:
		for _, item := range v.items {
			switch it := item.(type) {
			case Scalar:
				s, err := renderScalar(it, '\'')
				if err != nil {
					return nil, err
				}
				out = append(out, indent+s)
			case *List, *KeyedList:
				body, err := w.renderListBody(indent+w.indent, it)
				if err != nil {
					return nil, err
				}
				if len(body) == 0 {
					out = append(out, indent+"{}")
					continue
				}
				out = append(out, indent+"{")
				out = append(out, body...)
				out = append(out, indent+"}")
			default:
				return nil, fmt.Errorf("%w: nil list item", ErrUnencodable)
			}
		}
	}
	return out, nil
}

// renderScalar renders text quoted and numbers locale-free with '.'.
func renderScalar(s Scalar, quote byte) (string, error) {
	switch s.typ {
	case TypeText:
		return quoteText(s.text, quote)
	case TypeInteger:
		return strconv.FormatInt(s.i, 10), nil
	case TypeFloat, TypeDecimal:
		if math.IsNaN(s.f) || math.IsInf(s.f, 0) {
			return "", fmt.Errorf("%w: %v is not a finite number", ErrUnencodable, s.f)
		}
		return formatFloat(s.f), nil
	case TypeBool:
		return strconv.FormatBool(s.b), nil
	default:
		return "", fmt.Errorf("%w: empty scalar", ErrUnencodable)
	}
}

// checkShadowing rejects a section holding a binding and a subsection of the
// same name; such a file would not parse.
func checkShadowing(store *Store, section string) error {
	keys := store.Keys(section)
	if len(keys) == 0 {
		return nil
	}
	for _, name := range store.Sections(section) {
		for _, key := range keys {
			if key == name {
				return fmt.Errorf("%s.%s: %w: bound both as a key and as a section", section, name, ErrUnencodable)
			}
		}
	}
	return nil
}

// checkName rejects keys and section names the grammar cannot carry.
func checkName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrUnencodable)
	}
	if strings.ContainsAny(name, ".'\"\r\n") {
		return fmt.Errorf("%w: name %q contains '.', a quote or a line break", ErrUnencodable, name)
	}
	return nil
}
