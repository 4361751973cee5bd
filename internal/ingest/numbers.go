package ingest

import (
	"regexp"
	"strconv"
	"strings"
)

// numberPattern matches a statement-formatted number with optional thousands
// separators, e.g. "24,147.89" or "0.01".
var numberPattern = regexp.MustCompile(`-?[\d,]+\.?\d*`)

// parenNumberPattern matches a parenthesized number, the statement convention
// for an outgoing value, e.g. "(1,690.79)".
var parenNumberPattern = regexp.MustCompile(`\(([\d,]+\.?\d*)\)`)

// trailingNumberPattern matches a number at the very end of a line.
var trailingNumberPattern = regexp.MustCompile(`([\d,]+\.?\d*)$`)

// parseNumber converts a statement-formatted numeric string to a float,
// stripping thousands separators and surrounding quotes. Returns 0 and false
// if the token is not a number.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"`)
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// extractTrailingAmount pulls the single monetary amount off a cash-event
// line. A parenthesized value anywhere on the line wins and is negative;
// otherwise the trailing number is taken as positive. Returns 0 when the line
// carries no amount.
func extractTrailingAmount(line string) float64 {
	if m := parenNumberPattern.FindStringSubmatch(line); m != nil {
		if v, ok := parseNumber(m[1]); ok {
			return -v
		}
	}
	if m := trailingNumberPattern.FindStringSubmatch(line); m != nil {
		if v, ok := parseNumber(m[1]); ok {
			return v
		}
	}
	return 0
}
