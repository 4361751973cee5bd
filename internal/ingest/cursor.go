package ingest

// lineCursor walks statement lines with explicit position state. Parsing
// functions advance it by a declared number of consumed lines, which keeps
// look-ahead (multi-line transactions) testable and rules out the hidden
// index bugs of ad hoc loop counters. Every scan path must advance the
// cursor, including the no-match branch, so a malformed file degrades to
// zero records instead of looping.
type lineCursor struct {
	lines       []string
	index       int
	currentDate string // last date seen; continuation lines inherit it
}

func newLineCursor(text string) *lineCursor {
	return &lineCursor{lines: splitLines(text)}
}

// done reports whether the cursor is past the last line.
func (c *lineCursor) done() bool {
	return c.index >= len(c.lines)
}

// current returns the line under the cursor.
func (c *lineCursor) current() string {
	return c.lines[c.index]
}

// peek returns the line k positions ahead, or "" past the end.
func (c *lineCursor) peek(k int) string {
	if c.index+k >= len(c.lines) {
		return ""
	}
	return c.lines[c.index+k]
}

// advance moves the cursor forward by n lines (minimum 1).
func (c *lineCursor) advance(n int) {
	if n < 1 {
		n = 1
	}
	c.index += n
}

func splitLines(text string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			lines = append(lines, trimCR(text[start:i]))
			start = i + 1
		}
	}
	if start < len(text) {
		lines = append(lines, trimCR(text[start:]))
	}
	return lines
}

func trimCR(s string) string {
	if len(s) > 0 && s[len(s)-1] == '\r' {
		return s[:len(s)-1]
	}
	return s
}
