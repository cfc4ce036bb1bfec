// Package sizes normalizes scraped size hints into a closed vocabulary
// of tokens. Everything here is pure: the same (title, raw hint) input
// always produces the same output.
package sizes

import (
	"regexp"
	"sort"
	"strings"
)

// AdultLadder is the ordered closed vocabulary for adult sizes.
var AdultLadder = []string{"S", "M", "L", "XL", "XXL", "XXXL", "XXXXL"}

// ChildScale is the fixed age-band code scale used whenever a title
// indicates a kids product.
var ChildScale = []string{"16", "18", "20", "22", "24", "26", "28"}

// DefaultAdult is used when nothing else can be determined.
var DefaultAdult = []string{"S", "M", "L", "XL", "XXL"}

var (
	// S-2XL9 -> S-2XL, S-XXL3 -> S-XXL: digit residue left behind by
	// titles that append counts right after the size range.
	residueNumeric = regexp.MustCompile(`(?i)(S-\s*\dXL)\d*`)
	residueRepeat  = regexp.MustCompile(`(?i)(S-\s*X{1,4}L)\d+`)

	rangeExpr    = regexp.MustCompile(`(?i)S\s*-\s*(\dXL|X{1,4}L)`)
	numericRange = regexp.MustCompile(`^S-(\d)XL$`)
	repeatRange  = regexp.MustCompile(`^S-(X{1,4})L$`)

	tokenExpr = regexp.MustCompile(`\b(XXXXL|XXXL|XXL|XL|L|M|S)\b`)
)

// Normalize maps a product title and an optional raw size hint to the
// normalized token sequence. Kids titles always yield ChildScale; a
// compact range expression ("S-2XL", "S-XXXL") is expanded along the
// adult ladder; otherwise explicit tokens are collected and ladder
// sorted; the default adult set is the last resort.
func Normalize(title, raw string) []string {
	if strings.Contains(strings.ToLower(title), "kid") {
		return append([]string(nil), ChildScale...)
	}

	txt := strings.TrimSpace(raw)
	txt = residueRepeat.ReplaceAllString(txt, "$1")
	txt = residueNumeric.ReplaceAllString(txt, "$1")

	if m := rangeExpr.FindStringSubmatch(txt); m != nil {
		if expanded := expandRange("S-" + strings.ToUpper(m[1])); expanded != nil {
			return expanded
		}
	}

	if tokens := tokenExpr.FindAllString(strings.ToUpper(txt), -1); len(tokens) > 0 {
		return ladderSort(dedupe(tokens))
	}

	return append([]string(nil), DefaultAdult...)
}

// Render joins a normalized token sequence into the persisted form.
func Render(tokens []string) string {
	return strings.Join(tokens, ", ")
}

// expandRange expands "S-<N>XL" or "S-X...XL" into the explicit ladder
// prefix, truncated at XXXXL. Returns nil for anything it does not
// recognize.
func expandRange(token string) []string {
	if m := numericRange.FindStringSubmatch(token); m != nil {
		// S-2XL means up to XXL, S-4XL up to XXXXL.
		n := int(m[1][0] - '0')
		return ladderPrefix(4 + (n - 1))
	}
	if m := repeatRange.FindStringSubmatch(token); m != nil {
		xs := len(m[1])
		return ladderPrefix(4 + (xs - 1))
	}
	return nil
}

func ladderPrefix(n int) []string {
	if n < 1 {
		return nil
	}
	if n > len(AdultLadder) {
		n = len(AdultLadder)
	}
	return append([]string(nil), AdultLadder[:n]...)
}

func dedupe(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func ladderSort(tokens []string) []string {
	rank := make(map[string]int, len(AdultLadder))
	for i, t := range AdultLadder {
		rank[t] = i
	}
	sort.SliceStable(tokens, func(i, j int) bool {
		return rank[tokens[i]] < rank[tokens[j]]
	})
	return tokens
}
