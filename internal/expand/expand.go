// Package expand turns one listing URL (category, search or collection
// page) into the product URLs it contains, following pagination up to a
// per-platform page ceiling.
package expand

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/kitvault/scraper/internal/classifier"
	"github.com/kitvault/scraper/internal/fetch"
	"github.com/kitvault/scraper/internal/models"
)

const (
	maxPagesCatalog = 20
	// Gallery listings are smaller and more JS-dependent, so the bound
	// is tighter.
	maxPagesGallery = 10
)

// Selector sets are tried in priority order; storefront themes vary.
var catalogProductSelectors = []string{
	".products .product a[href]",
	"ul.products li.product a[href]",
	".woocommerce-LoopProduct-link",
	"a[href*='/product/']",
	"a[href*='/produtos/']",
	"a[href*='/item/']",
}

var catalogNextSelectors = []string{
	"a.next",
	"a.next.page-numbers",
	"a[rel='next']",
	".pagination-next a",
	".wp-pagenavi a.next",
	"[class*='next'] a",
	"a[aria-label*='Next']",
}

var galleryProductSelectors = []string{
	"a[href*='/albums/']",
	".album-item a",
	".showalbum__children a",
	"[data-album-id] a",
}

var galleryNextSelectors = []string{
	"a.next, a[rel='next']",
	".pagination .next",
	"[class*='next'] a",
}

var productIndicators = []string{"/product/", "/produtos/", "/item/", "/albums/"}

var ignoreIndicators = []string{
	"/category/", "/tag/", "/author/", "/page/", "/cart/", "/checkout/", "/account/", "/login/",
	".jpg", ".png", ".gif", ".pdf", ".zip", "javascript:", "mailto:", "tel:", "#",
}

type Expander struct {
	client *fetch.Client
	logger *slog.Logger
}

func New(client *fetch.Client, logger *slog.Logger) *Expander {
	if logger == nil {
		logger = slog.Default()
	}
	return &Expander{
		client: client,
		logger: logger.With("component", "expander"),
	}
}

// Expand paginates through a listing and returns the product URLs it
// links to, deduplicated, excluding the listing itself and anything
// still listing-shaped. A fetch error on a page stops expansion of this
// listing but is not fatal.
func (e *Expander) Expand(ctx context.Context, listingURL string, cl models.Classification) []string {
	productSelectors, nextSelectors := catalogProductSelectors, catalogNextSelectors
	maxPages := maxPagesCatalog
	if cl.Platform == models.PlatformGallery {
		productSelectors, nextSelectors = galleryProductSelectors, galleryNextSelectors
		maxPages = maxPagesGallery
	}

	found := make(map[string]struct{})
	var ordered []string
	visited := make(map[string]struct{})
	current := listingURL
	pages := 0

	e.logger.Info("starting listing expansion", "url", listingURL, "platform", cl.Platform)

	for current != "" && pages < maxPages {
		if _, ok := visited[current]; ok {
			break
		}
		visited[current] = struct{}{}
		pages++

		doc, err := e.client.Document(ctx, current)
		if err != nil {
			e.logger.Error("listing page fetch failed", "url", current, "page", pages, "error", err)
			break
		}

		for _, sel := range productSelectors {
			doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
				href, ok := s.Attr("href")
				if !ok {
					return
				}
				abs := resolve(current, href)
				if abs == "" || !isValidProductURL(abs) {
					return
				}
				if _, dup := found[abs]; !dup {
					found[abs] = struct{}{}
					ordered = append(ordered, abs)
				}
			})
		}

		next := nextPage(doc, current, nextSelectors)
		if next == "" || next == current {
			break
		}
		if _, ok := visited[next]; ok {
			break
		}
		current = next
	}

	out := make([]string, 0, len(ordered))
	for _, u := range ordered {
		if u == listingURL {
			continue
		}
		if classifier.Classify(u).IsListing() {
			continue
		}
		out = append(out, u)
	}

	if len(out) == 0 {
		e.logger.Warn("no products found in listing", "url", listingURL, "pages", pages)
	} else {
		e.logger.Info("listing expansion finished", "url", listingURL, "pages", pages, "products", len(out))
	}
	return out
}

func nextPage(doc *goquery.Document, base string, selectors []string) string {
	for _, sel := range selectors {
		if href, ok := doc.Find(sel).First().Attr("href"); ok && href != "" {
			return resolve(base, href)
		}
	}
	return ""
}

func resolve(base, href string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	h, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	return b.ResolveReference(h).String()
}

func isValidProductURL(href string) bool {
	if href == "" {
		return false
	}
	lower := strings.ToLower(href)
	hasProduct := false
	for _, ind := range productIndicators {
		if strings.Contains(lower, ind) {
			hasProduct = true
			break
		}
	}
	if !hasProduct {
		return false
	}
	for _, ind := range ignoreIndicators {
		if strings.Contains(lower, ind) {
			return false
		}
	}
	return true
}
