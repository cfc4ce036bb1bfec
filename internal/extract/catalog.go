package extract

import (
	"context"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/kitvault/scraper/internal/fetch"
	"github.com/kitvault/scraper/internal/models"
)

// Catalog extracts metadata from server-rendered storefront product
// pages over plain HTTP.
type Catalog struct {
	client *fetch.Client
	logger *slog.Logger
}

func NewCatalog(client *fetch.Client, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{
		client: client,
		logger: logger.With("component", "catalog_extractor"),
	}
}

var catalogImageSelectors = []string{
	".woocommerce-product-gallery__image img[src]",
	".wp-block-image img[src]",
	"img[src]",
}

func (c *Catalog) Extract(ctx context.Context, productURL string) models.ExtractionBundle {
	doc, err := c.client.Document(ctx, productURL)
	if err != nil {
		c.logger.Error("product page fetch failed", "url", productURL, "error", err)
		return models.ExtractionBundle{}
	}
	return c.fromDocument(doc)
}

func (c *Catalog) fromDocument(doc *goquery.Document) models.ExtractionBundle {
	albumTitle := firstTitle(doc, []titleFunc{
		firstHeading,
		ogTitle,
	})
	pageTitle := firstTitle(doc, []titleFunc{
		documentTitle,
		ogTitle,
		func(*goquery.Document) string { return albumTitle },
	})
	if albumTitle == "" {
		albumTitle = pageTitle
	}

	raw := sizeHint(doc.Find("body").Text())

	var images []string
	for _, sel := range catalogImageSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			src, ok := s.Attr("src")
			if !ok || src == "" {
				src, _ = s.Attr("data-src")
			}
			if src != "" {
				images = append(images, strings.TrimSpace(src))
			}
		})
	}
	images = append(images, metaImages(doc)...)
	images = dedupe(filterImageCandidates(images))

	return models.ExtractionBundle{
		AlbumTitle:      albumTitle,
		PageTitle:       pageTitle,
		RawSizes:        raw,
		ImageCandidates: images,
	}
}
