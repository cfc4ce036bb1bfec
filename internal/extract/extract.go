// Package extract fetches a single product page and produces the raw
// extraction bundle: title candidates, a size hint, and image-URL
// candidates. One strategy per platform; every fallback is an explicit
// ordered list of extractor functions tried until one yields a value.
package extract

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/kitvault/scraper/internal/fetch"
	"github.com/kitvault/scraper/internal/models"
)

// sizeHintExpr finds compact range expressions like "S-2XL" or
// "S-XXXL" in title text.
var sizeHintExpr = regexp.MustCompile(`(?i)\bS\s*-\s*(\dXL|X{1,4}L)\b`)

// resizeSuffixExpr matches thumbnail filenames carrying an explicit
// pixel-dimension suffix ("-600x400."), which are known-downscaled.
var resizeSuffixExpr = regexp.MustCompile(`-\d{2,4}x\d{2,4}\.`)

// Extractor turns one product URL into a bundle. Implementations never
// return an error: any network or parse failure yields an empty bundle.
type Extractor interface {
	Extract(ctx context.Context, productURL string) models.ExtractionBundle
}

// ForPlatform selects the strategy matching a classification.
func ForPlatform(cl models.Classification, client *fetch.Client, logger *slog.Logger) Extractor {
	if cl.Platform == models.PlatformGallery {
		return NewGallery(client, logger)
	}
	return NewCatalog(client, logger)
}

// titleFunc is one step of a title fallback chain.
type titleFunc func(doc *goquery.Document) string

func firstTitle(doc *goquery.Document, chain []titleFunc) string {
	for _, fn := range chain {
		if t := strings.TrimSpace(fn(doc)); t != "" {
			return t
		}
	}
	return ""
}

func ogTitle(doc *goquery.Document) string {
	c, _ := doc.Find(`meta[property="og:title"]`).First().Attr("content")
	return c
}

func namedMetaTitle(doc *goquery.Document) string {
	c, _ := doc.Find(`meta[name="title"]`).First().Attr("content")
	return c
}

func documentTitle(doc *goquery.Document) string {
	return doc.Find("title").First().Text()
}

func firstHeading(doc *goquery.Document) string {
	return doc.Find("h1").First().Text()
}

func dataTitleAttr(doc *goquery.Document) string {
	c, _ := doc.Find("[data-title]").First().Attr("data-title")
	return c
}

func selectorChain(selectors ...string) titleFunc {
	return func(doc *goquery.Document) string {
		for _, sel := range selectors {
			if t := strings.TrimSpace(doc.Find(sel).First().Text()); t != "" {
				return t
			}
		}
		return ""
	}
}

// sizeHint scans combined title text for a compact size range.
func sizeHint(text string) string {
	return sizeHintExpr.FindString(text)
}

// metaImages collects social/open-graph image candidates.
func metaImages(doc *goquery.Document) []string {
	var out []string
	doc.Find(`meta[property="og:image"], meta[name="twitter:image"]`).Each(func(_ int, s *goquery.Selection) {
		if c, ok := s.Attr("content"); ok {
			if c = strings.TrimSpace(c); c != "" {
				out = append(out, c)
			}
		}
	})
	return out
}

// filterImageCandidates drops inline data URIs and downscaled
// thumbnails.
func filterImageCandidates(urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if strings.HasPrefix(u, "data:image") {
			continue
		}
		if resizeSuffixExpr.MatchString(u) {
			continue
		}
		out = append(out, u)
	}
	return out
}

func dedupe(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
