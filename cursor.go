package acf

import "strings"

// cursor is a position over a string with saved checkpoints for backtracking.
type cursor struct {
	s   string
	pos int
}

func newCursor(s string) *cursor {
	return &cursor{s: s}
}

func (c *cursor) done() bool { return c.pos >= len(c.s) }

// peek returns the current byte, or 0 at the end.
func (c *cursor) peek() byte {
	if c.done() {
		return 0
	}
	return c.s[c.pos]
}

func (c *cursor) advance(n int) {
	c.pos += n
	if c.pos > len(c.s) {
		c.pos = len(c.s)
	}
}

// hasPrefix reports whether the remaining input starts with p.
func (c *cursor) hasPrefix(p string) bool {
	return strings.HasPrefix(c.s[c.pos:], p)
}

// accept consumes p if the remaining input starts with it.
func (c *cursor) accept(p string) bool {
	if !c.hasPrefix(p) {
		return false
	}
	c.pos += len(p)
	return true
}

// until consumes up to the next occurrence of b and returns the skipped text.
// The cursor stops on b. ok is false when b does not occur.
func (c *cursor) until(b byte) (string, bool) {
	idx := strings.IndexByte(c.s[c.pos:], b)
	if idx < 0 {
		return "", false
	}
	out := c.s[c.pos : c.pos+idx]
	c.pos += idx
	return out, true
}

// skipSpace consumes blanks and tabs.
func (c *cursor) skipSpace() {
	for !c.done() && (c.s[c.pos] == ' ' || c.s[c.pos] == '\t') {
		c.pos++
	}
}

// rest returns the unconsumed input.
func (c *cursor) rest() string { return c.s[c.pos:] }

// mark saves the position for a later reset.
func (c *cursor) mark() int { return c.pos }

func (c *cursor) reset(mark int) { c.pos = mark }
