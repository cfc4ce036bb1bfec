// Package download holds the two image acquisition engines and their
// shared core: sequential referer-aware downloads, a minimum-size
// discard rule, a fixed inter-image delay, and three retry sweeps for
// transiently failed images.
package download

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/kitvault/scraper/internal/models"
)

// retryPauses is the fixed sweep schedule for images that failed the
// main pass.
var retryPauses = []time.Duration{0, 3 * time.Second, 2 * time.Second}

// Options configures both engines.
type Options struct {
	UserAgent  string
	Timeout    time.Duration
	Delay      time.Duration // pause between consecutive image downloads
	RefererAll bool          // send the referer on every image, not only the first
	MinKB      int           // downloads below this many kilobytes are discarded
	OutRoot    string        // root of the per-product output tree
	Headless   bool
}

// Engine downloads every image of one canonical record into its
// per-product directory. Cancellation via ctx stops remaining work
// without corrupting files already written.
type Engine interface {
	Acquire(ctx context.Context, record models.CanonicalProduct) error
}

// core is the HTTP download machinery shared by both engines.
type core struct {
	http   *http.Client
	opts   Options
	logger *slog.Logger
}

func newCore(opts Options, logger *slog.Logger) *core {
	return &core{
		http:   &http.Client{Timeout: opts.Timeout},
		opts:   opts,
		logger: logger,
	}
}

// productDir creates (if needed) and returns the record's output
// directory.
func (c *core) productDir(record models.CanonicalProduct) (string, error) {
	name := record.AlbumFolderName
	if name == "" {
		name = record.AlbumID
	}
	name = strings.ReplaceAll(name, "/", "-")
	dir := filepath.Join(c.opts.OutRoot, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	return dir, nil
}

// fetchImage downloads one image to dest. A nil error with
// Success=false means the image was below the size threshold and has
// been deleted; a non-nil error marks a transient failure eligible for
// the retry sweeps.
func (c *core) fetchImage(ctx context.Context, imgURL, referer, dest string) (models.DownloadOutcome, error) {
	outcome := models.DownloadOutcome{
		SourceURL:       imgURL,
		DestinationPath: dest,
		RefererUsed:     referer,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imgURL, nil)
	if err != nil {
		return outcome, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	if referer != "" {
		req.Header.Set("Referer", referer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return outcome, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return outcome, fmt.Errorf("GET %s: unexpected status %d", imgURL, resp.StatusCode)
	}

	f, err := os.Create(dest)
	if err != nil {
		return outcome, fmt.Errorf("create %s: %w", dest, err)
	}
	written, err := io.Copy(f, resp.Body)
	closeErr := f.Close()
	if err != nil {
		os.Remove(dest)
		return outcome, fmt.Errorf("stream %s: %w", imgURL, err)
	}
	if closeErr != nil {
		os.Remove(dest)
		return outcome, fmt.Errorf("close %s: %w", dest, closeErr)
	}

	outcome.ByteSize = written
	// The threshold is kilobytes; a keep requires written/1024 >= MinKB.
	if c.opts.MinKB > 0 && written/1024 < int64(c.opts.MinKB) {
		os.Remove(dest)
		c.logger.Warn("image below size threshold, discarded",
			"url", imgURL, "bytes", written, "min_kb", c.opts.MinKB)
		return outcome, nil
	}

	outcome.Success = true
	return outcome, nil
}

// pending tracks an image that failed its main-pass download.
type pending struct {
	url  string
	dest string
}

// retrySweeps re-attempts every pending image across the fixed sweep
// schedule. Items failing every sweep are logged as permanent failures.
// Returns the number of images recovered.
func (c *core) retrySweeps(ctx context.Context, items []pending, referer string) int {
	recovered := 0
	for _, pause := range retryPauses {
		if len(items) == 0 {
			break
		}
		if pause > 0 {
			select {
			case <-ctx.Done():
				return recovered
			case <-time.After(pause):
			}
		}
		var still []pending
		for _, it := range items {
			if ctx.Err() != nil {
				return recovered
			}
			outcome, err := c.fetchImage(ctx, it.url, referer, it.dest)
			switch {
			case err != nil:
				c.logger.Error("retry failed", "url", it.url, "error", err)
				still = append(still, it)
			case !outcome.Success:
				// Too small: discard, no further retries.
			default:
				recovered++
				c.logger.Info("retry succeeded",
					"file", filepath.Base(it.dest), "bytes", outcome.ByteSize)
			}
		}
		items = still
	}
	for _, it := range items {
		c.logger.Error("image failed permanently", "url", it.url)
	}
	return recovered
}

// delay sleeps the configured inter-image pause, honoring cancellation.
func (c *core) delay(ctx context.Context) {
	if c.opts.Delay <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(c.opts.Delay):
	}
}

// referer returns the header value for the n-th image (1-based): the
// product page on the first image, and on every image when RefererAll
// is set.
func (c *core) referer(pageURL string, seq int) string {
	if seq == 1 || c.opts.RefererAll {
		return pageURL
	}
	return ""
}

// extOf extracts a usable file extension from an image URL.
func extOf(imgURL string) string {
	u, err := url.Parse(imgURL)
	if err != nil {
		return ".jpg"
	}
	ext := strings.ToLower(path.Ext(u.Path))
	if ext == "" || len(ext) > 6 {
		return ".jpg"
	}
	return ext
}
