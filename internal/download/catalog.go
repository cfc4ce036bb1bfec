package download

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/kitvault/scraper/internal/fetch"
	"github.com/kitvault/scraper/internal/models"
)

const uploadPathMarker = "/wp-content/uploads/"

var (
	resizeWxH    = regexp.MustCompile(`(?i)-\d+x\d+(\.(?:jpg|jpeg|png|webp|gif|svg)\b)`)
	resizeScaled = regexp.MustCompile(`(?i)-scaled(\.(?:jpg|jpeg|png|webp)\b)`)
	srcsetWidth  = regexp.MustCompile(`(\d+)w`)
)

// lazyAttrs are the data attributes storefront themes use for
// lazy-loaded gallery images.
var lazyAttrs = []string{"data-large_image", "data-src", "data-full", "data-large_file"}

// CatalogEngine downloads product gallery images from server-rendered
// storefront pages over plain HTTP. The extraction scope is the
// product's own gallery container; that scoping is what keeps related
// products and footer imagery out of the result.
type CatalogEngine struct {
	core   *core
	client *fetch.Client
	logger *slog.Logger
}

func NewCatalogEngine(opts Options, client *fetch.Client, logger *slog.Logger) *CatalogEngine {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "catalog_downloader")
	return &CatalogEngine{
		core:   newCore(opts, logger),
		client: client,
		logger: logger,
	}
}

func (e *CatalogEngine) Acquire(ctx context.Context, record models.CanonicalProduct) error {
	dir, err := e.core.productDir(record)
	if err != nil {
		return err
	}

	urls, err := e.extractImageURLs(ctx, record.AlbumURL)
	if err != nil {
		return fmt.Errorf("extract gallery images: %w", err)
	}
	if len(urls) == 0 {
		e.logger.Warn("no gallery images found", "url", record.AlbumURL)
		return nil
	}
	e.logger.Info("gallery images resolved", "url", record.AlbumURL, "count", len(urls))

	var failed []pending
	seq := 1
	for _, u := range urls {
		if ctx.Err() != nil {
			e.logger.Warn("cancelled, abandoning remaining images", "url", record.AlbumURL)
			break
		}

		dest := filepath.Join(dir, fmt.Sprintf("wp-imagem-%03d%s", seq, extOf(u)))
		outcome, err := e.core.fetchImage(ctx, u, record.AlbumURL, dest)
		if err != nil {
			e.logger.Error("download failed", "url", u, "error", err)
			failed = append(failed, pending{url: u, dest: dest})
		} else if outcome.Success {
			e.logger.Info("image saved",
				"file", filepath.Base(dest), "bytes", outcome.ByteSize, "src", u)
		}
		// The sequence tracks source position, so a discarded image still
		// consumes its slot.
		seq++

		e.core.delay(ctx)
	}

	if len(failed) > 0 && ctx.Err() == nil {
		e.core.retrySweeps(ctx, failed, record.AlbumURL)
	}
	return nil
}

// extractImageURLs fetches the product page and collects gallery image
// URLs, scoped to the gallery container (or the product block minus
// related/upsell sections as a fallback).
func (e *CatalogEngine) extractImageURLs(ctx context.Context, pageURL string) ([]string, error) {
	doc, err := e.client.Document(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	scope := doc.Find("div.product, div[id^=product-].product").First()
	if scope.Length() == 0 {
		// No product block: strip related/upsell sections and scan what
		// remains.
		doc.Find(".related, .upsells, .cross-sells, section.related").Remove()
		scope = doc.Selection
	}

	if gallery := scope.Find(".woocommerce-product-gallery, div.images, figure.woocommerce-product-gallery__wrapper").First(); gallery.Length() > 0 {
		scope = gallery
	}

	return collectFromScope(scope), nil
}

func collectFromScope(scope *goquery.Selection) []string {
	seen := make(map[string]struct{})
	var urls []string

	add := func(raw string) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return
		}
		u := NormalizeUploadURL(raw)
		if !strings.Contains(u, uploadPathMarker) {
			return
		}
		if _, dup := seen[u]; dup {
			return
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}

	scope.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		add(href)
	})

	scope.Find("img").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok {
			add(src)
		}
		if srcset, ok := s.Attr("srcset"); ok {
			add(pickWidestFromSrcset(srcset))
		}
		for _, attr := range lazyAttrs {
			if v, ok := s.Attr(attr); ok {
				add(v)
			}
		}
	})

	scope.Find("source").Each(func(_ int, s *goquery.Selection) {
		if srcset, ok := s.Attr("srcset"); ok {
			add(pickWidestFromSrcset(srcset))
		}
	})

	return urls
}

// NormalizeUploadURL strips storefront resize suffixes ("-600x400",
// "-scaled") and the query string, so every size variant of one image
// maps to the same original.
func NormalizeUploadURL(raw string) string {
	raw = resizeWxH.ReplaceAllString(raw, "$1")
	raw = resizeScaled.ReplaceAllString(raw, "$1")
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		raw = raw[:i]
	}
	return raw
}

// pickWidestFromSrcset returns the srcset entry with the largest
// declared width.
func pickWidestFromSrcset(srcset string) string {
	best := ""
	bestW := -1
	for _, part := range strings.Split(srcset, ",") {
		fields := strings.Fields(strings.TrimSpace(part))
		if len(fields) == 0 {
			continue
		}
		w := 0
		if len(fields) > 1 {
			if m := srcsetWidth.FindStringSubmatch(fields[1]); m != nil {
				w, _ = strconv.Atoi(m[1])
			}
		}
		if w >= bestW {
			bestW = w
			best = fields[0]
		}
	}
	return best
}
