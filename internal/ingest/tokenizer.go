package ingest

import (
	"regexp"
	"strings"
)

// feeThreshold is the magnitude below which a numeric token may be read as a
// commission. Broker commissions on these statements are cents to tens of
// dollars; trade amounts are orders of magnitude larger. Known to misread
// fees at or above the threshold, see DESIGN.md.
const feeThreshold = 100.0

// Fields holds the numeric fields recovered from one trade line.
type Fields struct {
	Quantity         float64
	Price            float64
	Fee              float64
	Amount           float64
	RealizedGainLoss float64
}

// legacyPattern matches the older statement grammar: the share quantity
// wrapped in parentheses, immediately followed by the remaining numeric
// columns. More specific than the count-dispatch grammar, so it is tried
// first.
var legacyPattern = regexp.MustCompile(`\(([\d,]+\.?\d*)\)((?:\s+[\d,]+\.?\d*)+)`)

// gainTermSuffix strips the long/short-term tag some statements append to the
// realized gain column, e.g. "13,122.89,(LT)".
var gainTermSuffix = regexp.MustCompile(`,\((?:LT|ST)\)`)

// securityIDPattern matches the all-digit CUSIP column some detail rows carry,
// e.g. "037833100". A bare 8-9 digit integer with no separators is a security
// identifier, never a quantity or dollar figure.
var securityIDPattern = regexp.MustCompile(`^\d{8,9}$`)

// TokenizeNumeric extracts the numeric fields from a trade line fragment
// (date and category prefix already stripped). Two grammars are tried:
//
//  1. Legacy: "(qty) price [fee] amount [gain]": parenthesized quantity
//     first. Preferred when it matches.
//  2. Modern: dispatch on how many numeric tokens the line carries;
//     2: qty price; 3: qty price amount; 4: qty price amount gain;
//     5+: qty price fee amount gain (extras ignored).
//
// Returns false when no numeric token could be found at all; a lone trailing
// token degrades to amount-only rather than failing.
func TokenizeNumeric(fragment string) (Fields, bool) {
	fragment = gainTermSuffix.ReplaceAllString(fragment, "")

	if f, ok := tokenizeLegacy(fragment); ok {
		return f, true
	}
	return tokenizeByCount(fragment)
}

// tokenizeLegacy applies the parenthesized-quantity grammar.
func tokenizeLegacy(fragment string) (Fields, bool) {
	m := legacyPattern.FindStringSubmatch(fragment)
	if m == nil {
		return Fields{}, false
	}

	qty, ok := parseNumber(m[1])
	if !ok {
		return Fields{}, false
	}

	var rest []float64
	for _, tok := range strings.Fields(m[2]) {
		if v, ok := parseNumber(tok); ok {
			rest = append(rest, v)
		}
	}
	if len(rest) == 0 {
		return Fields{}, false
	}

	f := Fields{Quantity: qty, Price: rest[0]}
	assignTail(&f, rest[1:])
	return f, true
}

// assignTail distributes the tokens after price across fee, amount and
// realized gain/loss. A token counts as a fee only when it is fee-sized AND a
// larger later token exists to serve as the amount; otherwise fee stays zero
// and the tokens are amount then gain/loss.
func assignTail(f *Fields, tail []float64) {
	switch len(tail) {
	case 0:
	case 1:
		f.Amount = tail[0]
	default:
		if tail[0] < feeThreshold && tail[1] > tail[0] {
			f.Fee = tail[0]
			f.Amount = tail[1]
			if len(tail) > 2 {
				f.RealizedGainLoss = tail[2]
			}
		} else {
			f.Amount = tail[0]
			f.RealizedGainLoss = tail[1]
		}
	}
}

// tokenizeByCount applies the modern grammar: collect every numeric token on
// the line and dispatch on the count. Parenthesized tokens keep a negative
// raw value; the amount standardizer fixes signs downstream.
func tokenizeByCount(fragment string) (Fields, bool) {
	var tokens []float64
	for _, word := range strings.Fields(fragment) {
		trimmed := strings.TrimSuffix(strings.TrimPrefix(word, "("), ")")
		if securityIDPattern.MatchString(trimmed) {
			continue
		}
		v, ok := parseNumber(trimmed)
		if !ok {
			continue
		}
		if strings.HasPrefix(word, "(") && strings.HasSuffix(word, ")") {
			v = -v
		}
		tokens = append(tokens, v)
	}

	switch len(tokens) {
	case 0:
		return Fields{}, false
	case 1:
		// Ambiguous: fall back to the lone token as amount.
		return Fields{Amount: tokens[0]}, true
	case 2:
		return Fields{Quantity: tokens[0], Price: tokens[1]}, true
	case 3:
		return Fields{Quantity: tokens[0], Price: tokens[1], Amount: tokens[2]}, true
	case 4:
		return Fields{Quantity: tokens[0], Price: tokens[1], Amount: tokens[2], RealizedGainLoss: tokens[3]}, true
	default:
		return Fields{
			Quantity:         tokens[0],
			Price:            tokens[1],
			Fee:              tokens[2],
			Amount:           tokens[3],
			RealizedGainLoss: tokens[4],
		}, true
	}
}
