package download

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/kitvault/scraper/internal/browser"
	"github.com/kitvault/scraper/internal/models"
)

const photoHost = "https://photo.yupoo.com"

// scrollRounds caps the lazy-load scroll loop.
const scrollRounds = 8

// GalleryEngine drives a real browser through the photo-album host:
// the album grid only exists after scripts run, and the high-resolution
// originals hide behind data attributes and per-photo pages.
type GalleryEngine struct {
	core        *core
	browserOpts *browser.Options
	logger      *slog.Logger
}

func NewGalleryEngine(opts Options, logger *slog.Logger) *GalleryEngine {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "gallery_downloader")
	return &GalleryEngine{
		core: newCore(opts, logger),
		browserOpts: &browser.Options{
			Headless:       opts.Headless,
			Timeout:        opts.Timeout,
			UserAgent:      opts.UserAgent,
			ViewportWidth:  1280,
			ViewportHeight: 1200,
		},
		logger: logger,
	}
}

// Acquire renders the album, resolves every original image URL, and
// downloads them sequentially. The browser session is exclusively owned
// by this album and always torn down, whatever the outcome.
func (e *GalleryEngine) Acquire(ctx context.Context, record models.CanonicalProduct) error {
	dir, err := e.core.productDir(record)
	if err != nil {
		return err
	}

	b, err := browser.New(e.browserOpts)
	if err != nil {
		return fmt.Errorf("start browser: %w", err)
	}
	defer b.Close()

	page, err := b.NewPage()
	if err != nil {
		return fmt.Errorf("open page: %w", err)
	}
	defer page.Close()

	if err := b.NavigateWithRetry(page, record.AlbumURL, 3); err != nil {
		return fmt.Errorf("open album: %w", err)
	}

	e.scrollUntilLoaded(page)
	originals := e.collectOriginals(page)

	if len(originals) == 0 {
		e.logger.Warn("no origin attributes found, falling back to photo pages", "url", record.AlbumURL)
		originals = e.collectFromPhotoPages(ctx, b, page, record.AlbumURL)
	}
	if len(originals) == 0 {
		e.logger.Warn("no original images resolved", "url", record.AlbumURL)
		return nil
	}
	e.logger.Info("original images resolved", "url", record.AlbumURL, "count", len(originals))

	var failed []pending
	seq := 1
	for _, u := range originals {
		if ctx.Err() != nil {
			e.logger.Warn("cancelled, abandoning remaining images", "url", record.AlbumURL)
			break
		}

		dest := filepath.Join(dir, fmt.Sprintf("imagem-%03d%s", seq, extOf(u)))
		outcome, err := e.core.fetchImage(ctx, u, e.core.referer(record.AlbumURL, seq), dest)
		if err != nil {
			e.logger.Error("download failed", "url", u, "error", err)
			failed = append(failed, pending{url: u, dest: dest})
		} else if outcome.Success {
			e.logger.Info("image saved",
				"file", filepath.Base(dest), "bytes", outcome.ByteSize)
		}
		seq++

		e.core.delay(ctx)
	}

	if len(failed) > 0 && ctx.Err() == nil {
		e.core.retrySweeps(ctx, failed, record.AlbumURL)
	}
	return nil
}

// scrollUntilLoaded scrolls to the bottom until the page height is
// stable across two consecutive checks or the round cap is hit,
// forcing lazy-loaded photos to materialize.
func (e *GalleryEngine) scrollUntilLoaded(page playwright.Page) {
	lastHeight := 0
	stable := 0
	for i := 0; i < scrollRounds; i++ {
		page.Evaluate(`window.scrollTo(0, document.body.scrollHeight);`)
		page.WaitForTimeout(800)

		h := 0
		if v, err := page.Evaluate(`document.body.scrollHeight || 0`); err == nil {
			if n, ok := v.(int); ok {
				h = n
			} else if f, ok := v.(float64); ok {
				h = int(f)
			}
		}
		if h == lastHeight {
			stable++
			if stable >= 2 {
				break
			}
		} else {
			stable = 0
		}
		lastHeight = h
	}
	page.WaitForSelector("[data-origin-src]", playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(float64(e.core.opts.Timeout.Milliseconds())),
	})
}

// collectOriginals harvests every data-origin-src attribute on the
// album page, normalizing protocol- and root-relative values.
func (e *GalleryEngine) collectOriginals(page playwright.Page) []string {
	locators, err := page.Locator("[data-origin-src]").All()
	if err != nil {
		return nil
	}

	seen := make(map[string]struct{})
	var out []string
	for _, loc := range locators {
		v, err := loc.GetAttribute("data-origin-src")
		if err != nil {
			continue
		}
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if strings.HasPrefix(v, "//") {
			v = "https:" + v
		} else if strings.HasPrefix(v, "/") {
			v = photoHost + v
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// collectFromPhotoPages is the fallback when the album grid exposes no
// origin attributes: visit each photo page and try, in order, the
// original-image anchor, a scripted scan of image data attributes and
// srcsets, and finally inline script text. Each page is independent; a
// failure is logged and the loop continues.
func (e *GalleryEngine) collectFromPhotoPages(ctx context.Context, b *browser.Browser, albumPage playwright.Page, albumURL string) []string {
	links := e.gatherPhotoLinks(albumPage)
	e.logger.Info("photo pages discovered", "count", len(links))

	seen := make(map[string]struct{})
	var out []string
	for _, link := range links {
		if ctx.Err() != nil {
			break
		}
		href, err := e.extractOriginalFromPhotoPage(b, albumPage, link)
		if err != nil {
			e.logger.Error("photo page failed", "url", link, "error", err)
			continue
		}
		if href == "" {
			continue
		}
		if _, dup := seen[href]; dup {
			continue
		}
		seen[href] = struct{}{}
		out = append(out, href)
	}
	return out
}

// gatherPhotoLinks lists per-photo page links from the album.
func (e *GalleryEngine) gatherPhotoLinks(page playwright.Page) []string {
	v, err := page.Evaluate(`Array.from(document.querySelectorAll('a'))
		.map(a => a.href)
		.filter(h => h && /\/\d+\?uid=/.test(h) && !/\/albums\//.test(h))`)
	if err != nil {
		return nil
	}

	raw, ok := v.([]interface{})
	if !ok {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, item := range raw {
		h, ok := item.(string)
		if !ok || h == "" {
			continue
		}
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out
}

// photoPageScanScript picks the widest photo-host candidate from image
// data attributes and srcsets.
const photoPageScanScript = `(() => {
	const pick = (srcset) => {
		if (!srcset) return null;
		const arr = srcset.split(',').map(s => s.trim());
		arr.sort((a, b) => {
			const wa = (a.match(/(\d+)w/) || [0, 0])[1] | 0;
			const wb = (b.match(/(\d+)w/) || [0, 0])[1] | 0;
			return wb - wa;
		});
		return (arr[0] || '').split(' ')[0];
	};
	for (const img of document.querySelectorAll('img')) {
		const cand = img.getAttribute('data-original') || img.getAttribute('data-raw')
			|| img.getAttribute('data-src') || img.getAttribute('src');
		if (cand && cand.includes('photo.yupoo.com')) return cand;
		const ss = pick(img.getAttribute('srcset'));
		if (ss && ss.includes('photo.yupoo.com')) return ss;
	}
	return null;
})()`

// photoPageScriptScan is the last resort: an embedded image URL inside
// inline script text.
const photoPageScriptScan = `(() => {
	let txt = '';
	for (const s of document.scripts) { txt += (s.textContent || '') + '\n'; }
	const m = txt.match(/https:\/\/photo\.yupoo\.com\/[^"'\s<>]+?\.(?:jpe?g|png|webp)/i);
	return m ? m[0] : null;
})()`

func (e *GalleryEngine) extractOriginalFromPhotoPage(b *browser.Browser, page playwright.Page, photoURL string) (string, error) {
	if err := b.NavigateWithRetry(page, photoURL, 1); err != nil {
		return "", err
	}

	// 1) direct original-image anchor
	if loc := page.Locator(`a[href*="photo.yupoo.com"]`).First(); loc != nil {
		if href, err := loc.GetAttribute("href"); err == nil && href != "" {
			return href, nil
		}
	}

	// 2) widest data-attribute / srcset candidate
	if v, err := page.Evaluate(photoPageScanScript); err == nil {
		if href, ok := v.(string); ok && href != "" {
			return href, nil
		}
	}

	// 3) inline script text
	if v, err := page.Evaluate(photoPageScriptScan); err == nil {
		if href, ok := v.(string); ok && href != "" {
			return href, nil
		}
	}

	return "", nil
}
