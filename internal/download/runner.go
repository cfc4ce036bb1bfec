package download

import (
	"context"
	"log/slog"

	"github.com/kitvault/scraper/internal/classifier"
	"github.com/kitvault/scraper/internal/fetch"
	"github.com/kitvault/scraper/internal/models"
)

// RunResult summarizes one download run over a record set.
type RunResult struct {
	TotalAlbums int  `json:"total_albums"`
	Failures    int  `json:"failures"`
	Cancelled   bool `json:"cancelled"`
}

// Runner routes each canonical record to the engine matching its
// platform and processes the whole record set sequentially.
type Runner struct {
	gallery Engine
	catalog Engine
	logger  *slog.Logger
}

func NewRunner(opts Options, client *fetch.Client, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		gallery: NewGalleryEngine(opts, logger),
		catalog: NewCatalogEngine(opts, client, logger),
		logger:  logger.With("component", "download_runner"),
	}
}

// NewRunnerWithEngines wires explicit engines; used by tests.
func NewRunnerWithEngines(gallery, catalog Engine, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{gallery: gallery, catalog: catalog, logger: logger.With("component", "download_runner")}
}

// Run processes every record, one at a time. A failed album is logged
// and counted, never fatal; cancellation stops further albums.
func (r *Runner) Run(ctx context.Context, recs []models.CanonicalProduct) RunResult {
	var result RunResult
	for _, rec := range recs {
		if ctx.Err() != nil {
			result.Cancelled = true
			r.logger.Warn("download run cancelled", "processed", result.TotalAlbums)
			break
		}

		engine := r.catalog
		if classifier.Classify(rec.AlbumURL).Platform == models.PlatformGallery {
			engine = r.gallery
		}

		r.logger.Info("processing album", "folder", rec.AlbumFolderName, "url", rec.AlbumURL)
		if err := engine.Acquire(ctx, rec); err != nil {
			result.Failures++
			r.logger.Error("album failed", "url", rec.AlbumURL, "error", err)
		}
		result.TotalAlbums++
	}
	if !result.Cancelled {
		r.logger.Info("download run finished", "albums", result.TotalAlbums, "failures", result.Failures)
	}
	return result
}
