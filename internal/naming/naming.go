// Package naming derives the filesystem-safe album folder name from the
// two raw title sources and keeps related URL/text helpers. All
// functions are pure.
package naming

import (
	"fmt"
	"regexp"
	"strings"
)

// MaxFolderLen bounds the sanitized folder name.
const MaxFolderLen = 120

// minCommonLen is the shortest common substring accepted as a canonical
// base during title reconciliation.
const minCommonLen = 6

var (
	seasonExpr = regexp.MustCompile(`\b(\d{2})/(\d{2})\b`)

	// Digit residue glued to a size range inside a title, e.g.
	// "Jersey S-XXL9" scraped from pages that append stock counts.
	sizeResidueRepeat  = regexp.MustCompile(`(?i)(S-\s*X{1,4}L)\d+\b`)
	sizeResidueNumeric = regexp.MustCompile(`(?i)(S-\s*\dXL)\d*\b`)

	albumIDExpr   = regexp.MustCompile(`/albums/(\d+)`)
	productIDExpr = regexp.MustCompile(`/product/([^/?#]+)/?`)
)

// Known decorative suffixes the gallery host appends to titles.
var siteSuffixes = []string{
	" | Yupoo",
	"| Yupoo",
	" | 又拍图片管家",
	"| 又拍图片管家",
	"- 相册 - Yupoo",
}

// CleanTitle strips the site-name suffix and normalizes season tokens
// ("25/26" -> "25-26").
func CleanTitle(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, suf := range siteSuffixes {
		if strings.HasSuffix(s, suf) {
			s = strings.TrimSpace(strings.TrimSuffix(s, suf))
		}
	}
	// Anything after a pipe is site decoration.
	if i := strings.Index(s, "|"); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	return seasonExpr.ReplaceAllString(s, "$1-$2")
}

// LongestCommonSubstring returns the longest common contiguous
// substring of a and b. When several candidates share the maximum
// length the first one found by scan order wins; callers must not
// depend on a different tie-break.
func LongestCommonSubstring(a, b string) string {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return ""
	}
	ar, br := []rune(a), []rune(b)
	dp := make([]int, len(br)+1)
	longest, end := 0, 0
	for i := 1; i <= len(ar); i++ {
		prev := 0
		for j := 1; j <= len(br); j++ {
			tmp := dp[j]
			if ar[i-1] == br[j-1] {
				dp[j] = prev + 1
				if dp[j] > longest {
					longest = dp[j]
					end = i
				}
			} else {
				dp[j] = 0
			}
			prev = tmp
		}
	}
	if longest == 0 {
		return ""
	}
	return string(ar[end-longest : end])
}

// FolderName reconciles the two title sources into the canonical,
// sanitized album folder name.
func FolderName(albumTitle, pageTitle string) string {
	a := CleanTitle(albumTitle)
	p := CleanTitle(pageTitle)

	var base string
	switch {
	case a == "" && p != "":
		base = p
	case p == "" && a != "":
		base = a
	case a == "" && p == "":
		return ""
	default:
		common := LongestCommonSubstring(a, p)
		if len([]rune(strings.TrimSpace(common))) >= minCommonLen {
			base = strings.TrimSpace(common)
		} else if len(a) <= len(p) {
			base = a
		} else {
			base = p
		}
	}
	return Sanitize(base)
}

// Sanitize makes a name safe for the filesystem: reserved characters
// replaced, size-range digit residue removed, trailing dots and spaces
// trimmed, length capped at MaxFolderLen on a whole-word boundary.
// Sanitizing an already sanitized name returns it unchanged.
func Sanitize(name string) string {
	name = sizeResidueRepeat.ReplaceAllString(name, "$1")
	name = sizeResidueNumeric.ReplaceAllString(name, "$1")

	var b strings.Builder
	for _, r := range name {
		switch r {
		case '<', '>', ':', '"', '/', '\\', '|', '?', '*':
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	name = b.String()
	name = strings.TrimRight(name, " .")

	if len([]rune(name)) > MaxFolderLen {
		runes := []rune(name)
		cut := string(runes[:MaxFolderLen])
		if i := strings.LastIndex(cut, " "); i > 0 {
			cut = cut[:i]
		}
		name = strings.TrimRight(cut, " .")
	}
	return name
}

// AlbumID derives a stable id from a product URL: the numeric album id
// for gallery URLs, the product slug for catalog URLs, the URL itself
// as a last resort.
func AlbumID(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	if m := albumIDExpr.FindStringSubmatch(rawURL); m != nil {
		return m[1]
	}
	if m := productIDExpr.FindStringSubmatch(rawURL); m != nil {
		return m[1]
	}
	return rawURL
}

// DisambiguateFolders rewrites duplicate folder names within one batch
// by appending a numeric suffix to every collision after the first.
func DisambiguateFolders(names []string) []string {
	seen := make(map[string]int, len(names))
	out := make([]string, len(names))
	for i, n := range names {
		seen[n]++
		if seen[n] == 1 {
			out[i] = n
			continue
		}
		candidate := fmt.Sprintf("%s (%d)", n, seen[n])
		for seen[candidate] > 0 {
			seen[n]++
			candidate = fmt.Sprintf("%s (%d)", n, seen[n])
		}
		seen[candidate]++
		out[i] = candidate
	}
	return out
}
