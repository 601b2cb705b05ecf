package acf

import "strings"

const (
	blockOpen   = "*("
	blockClose  = ")*"
	lineComment = "*/"
)

// line is one raw source line after comment stripping.
type line struct {
	num int
	raw string
	// code is the line without comments, right-trimmed.
	code string
	// comment is the raw tail starting at the first comment that follows code.
	comment string
	// inline is set when code continues after a comment on the same line.
	inline bool
	// pure is set when the line held comments and nothing else.
	pure bool
}

// blank reports whether the line carries no code.
func (l line) blank() bool {
	return strings.TrimSpace(l.code) == ""
}

// indent returns the leading whitespace of the raw line.
func (l line) indent() string {
	return l.raw[:len(l.raw)-len(strings.TrimLeft(l.raw, " \t"))]
}

// lex splits text into lines and strips block and line comments. Comment
// tokens inside a quoted run are kept. An unterminated block comment is
// reported at its opening line.
func lex(source, text string) ([]line, error) {
	var (
		lines     []line
		code      strings.Builder
		c         = newCursor(text)
		num       = 1
		lineStart = 0
		// commentAt is the raw offset of the first comment following code, -1 if none.
		commentAt  = -1
		sawComment bool
		inline     bool
		quote      byte
		inBlock    bool
		blockLine  int
		blockRaw   string
	)

	flush := func() {
		raw := text[lineStart:c.pos]
		cleaned := strings.TrimRight(code.String(), " \t\r")
		l := line{
			num:    num,
			raw:    raw,
			code:   cleaned,
			inline: inline,
			pure:   sawComment && strings.TrimSpace(cleaned) == "",
		}
		if commentAt >= 0 && !l.pure {
			l.comment = strings.TrimRight(raw[commentAt:], "\r")
		}
		lines = append(lines, l)
		code.Reset()
		num++
		commentAt = -1
		sawComment = inBlock
		inline = false
		quote = 0
	}

	for !c.done() {
		ch := c.peek()

		if inBlock {
			if c.accept(blockClose) {
				inBlock = false
				continue
			}
			if ch == '\n' {
				flush()
				c.advance(1)
				lineStart = c.pos
				continue
			}
			c.advance(1)
			continue
		}

		if ch == '\n' {
			flush()
			c.advance(1)
			lineStart = c.pos
			continue
		}

		if quote != 0 {
			if ch == quote {
				quote = 0
			}
			code.WriteByte(ch)
			c.advance(1)
			continue
		}

		switch {
		case c.hasPrefix(blockOpen):
			if commentAt < 0 && strings.TrimSpace(code.String()) != "" {
				commentAt = c.pos - lineStart
			}
			inBlock = true
			blockLine = num
			blockRaw = lineAt(text, lineStart)
			sawComment = true
			c.advance(len(blockOpen))
		case c.hasPrefix(lineComment):
			if commentAt < 0 && strings.TrimSpace(code.String()) != "" {
				commentAt = c.pos - lineStart
			}
			sawComment = true
			if _, ok := c.until('\n'); !ok {
				c.advance(len(c.rest()))
			}
		default:
			if sawComment && ch != ' ' && ch != '\t' && ch != '\r' {
				inline = true
			}
			if (ch == '"' || ch == '\'') && opensToken(code.String()) {
				quote = ch
			}
			code.WriteByte(ch)
			c.advance(1)
		}
	}

	if inBlock {
		return nil, &FormatError{
			Source: source,
			Line:   blockLine,
			Text:   blockRaw,
			Err:    ErrUnterminatedComment,
		}
	}
	flush()
	return lines, nil
}

// opensToken reports whether a character following code starts a token.
// Quotes inside a bare word, as in don't, do not start a quoted run.
func opensToken(code string) bool {
	if code == "" {
		return true
	}
	switch code[len(code)-1] {
	case ' ', '\t', '>', '{', '(':
		return true
	}
	return false
}

// lineAt returns the raw line starting at offset start.
func lineAt(text string, start int) string {
	end := strings.IndexByte(text[start:], '\n')
	if end < 0 {
		return text[start:]
	}
	return strings.TrimRight(text[start:start+end], "\r")
}

// joinLines reassembles raw lines.
func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}
