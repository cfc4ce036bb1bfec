// Package pipeline orchestrates one acquisition batch: classify the
// inputs, expand listings, extract metadata per product, reconcile and
// normalize, and persist the canonical records as one record set.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/kitvault/scraper/internal/classifier"
	"github.com/kitvault/scraper/internal/expand"
	"github.com/kitvault/scraper/internal/extract"
	"github.com/kitvault/scraper/internal/fetch"
	"github.com/kitvault/scraper/internal/models"
	"github.com/kitvault/scraper/internal/naming"
	"github.com/kitvault/scraper/internal/ratelimit"
	"github.com/kitvault/scraper/internal/records"
	"github.com/kitvault/scraper/internal/sizes"
)

// ErrEmptyInput is the only fatal orchestrator error; everything else
// degrades to partial success.
var ErrEmptyInput = errors.New("no input URLs")

type Orchestrator struct {
	client   *fetch.Client
	expander *expand.Expander
	store    *records.Store
	limiter  ratelimit.Limiter
	logger   *slog.Logger
}

func New(client *fetch.Client, expander *expand.Expander, store *records.Store, limiter ratelimit.Limiter, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		client:   client,
		expander: expander,
		store:    store,
		limiter:  limiter,
		logger:   logger.With("component", "pipeline"),
	}
}

// Process runs one batch. Per-URL failures are logged and counted, the
// batch itself only fails on empty input.
func (o *Orchestrator) Process(ctx context.Context, urls []string) (models.BatchResult, error) {
	result := models.BatchResult{StartedAt: time.Now()}
	if len(urls) == 0 {
		result.FinishedAt = time.Now()
		return result, ErrEmptyInput
	}

	productURLs := o.collectProductURLs(ctx, urls)
	result.TotalURLs = len(productURLs)
	o.logger.Info("batch starting", "inputs", len(urls), "products", len(productURLs))

	var folders []string
	for i, u := range productURLs {
		if err := ctx.Err(); err != nil {
			o.logger.Warn("batch cancelled", "processed", i, "remaining", len(productURLs)-i)
			break
		}
		if o.limiter != nil {
			if err := o.limiter.Wait(ctx); err != nil {
				break
			}
		}

		o.logger.Info("processing product", "index", i+1, "total", len(productURLs), "url", u)

		cl := classifier.Classify(u)
		bundle := extract.ForPlatform(cl, o.client, o.logger).Extract(ctx, u)
		if bundle.IsEmpty() {
			o.logger.Warn("extraction found nothing, skipping", "url", u)
			result.Failures++
			continue
		}
		if len(bundle.ImageCandidates) == 0 {
			o.logger.Warn("product has no image candidates", "url", u)
		}

		record := o.canonicalize(u, bundle)
		folders = append(folders, record.AlbumFolderName)
		result.Records = append(result.Records, record)
		result.Successes++
	}

	// Folder names must be unique within one batch.
	for i, name := range naming.DisambiguateFolders(folders) {
		result.Records[i].AlbumFolderName = name
	}

	if len(result.Records) > 0 {
		path, err := o.store.Save(result.Records)
		if err != nil {
			o.logger.Error("failed to persist record set", "error", err)
			result.Failures++
		} else {
			result.OutputPath = path
			o.logger.Info("record set written", "path", path, "records", len(result.Records))
		}
	}

	result.OK = true
	result.FinishedAt = time.Now()
	o.logger.Info("batch finished",
		"successes", result.Successes, "failures", result.Failures,
		"duration", result.FinishedAt.Sub(result.StartedAt))
	return result, nil
}

// collectProductURLs classifies every input, expands listings, and
// returns the flat deduplicated product URL list in input order. Failed
// or empty listings are dropped, never left unexpanded.
func (o *Orchestrator) collectProductURLs(ctx context.Context, urls []string) []string {
	seen := make(map[string]struct{})
	var out []string

	add := func(u string) {
		u = strings.TrimSpace(u)
		if u == "" {
			return
		}
		if _, dup := seen[u]; dup {
			return
		}
		if classifier.Classify(u).IsListing() {
			return
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}

	for _, raw := range urls {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		cl := classifier.Classify(raw)
		if cl.IsListing() {
			for _, p := range o.expander.Expand(ctx, raw, cl) {
				add(p)
			}
			continue
		}
		add(raw)
	}
	return out
}

// canonicalize builds the immutable canonical record for one extracted
// product.
func (o *Orchestrator) canonicalize(productURL string, b models.ExtractionBundle) models.CanonicalProduct {
	tokens := sizes.Normalize(b.AlbumTitle+" "+b.PageTitle, b.RawSizes)

	return models.CanonicalProduct{
		AlbumURL:        productURL,
		AlbumID:         naming.AlbumID(productURL),
		AlbumTitle:      b.AlbumTitle,
		PageTitle:       b.PageTitle,
		AlbumFolderName: naming.FolderName(b.AlbumTitle, b.PageTitle),
		Sizes:           sizes.Render(tokens),
		ImageURLs:       dedupeNormalized(b.ImageCandidates),
	}
}

// dedupeNormalized deduplicates image URLs comparing by normalized key
// (query/fragment and resize suffixes stripped) while preserving the
// first occurrence.
func dedupeNormalized(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		key := normalizeImageKey(u)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, u)
	}
	return out
}

var (
	resizeSuffix  = strings.NewReplacer("-scaled.", ".")
	resizeDimExpr = regexp.MustCompile(`-\d{2,4}x\d{2,4}\.`)
)

func normalizeImageKey(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.RawQuery = ""
	u.Fragment = ""
	key := u.String()
	key = resizeSuffix.Replace(key)
	key = resizeDimExpr.ReplaceAllString(key, ".")
	return key
}
