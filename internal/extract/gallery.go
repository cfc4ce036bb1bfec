package extract

import (
	"context"
	"log/slog"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/kitvault/scraper/internal/fetch"
	"github.com/kitvault/scraper/internal/models"
)

// photoHostSuffix is the only host high-resolution gallery photos live
// on; anything else (icon CDNs, site chrome) is discarded.
const photoHostSuffix = "photo.yupoo.com"

var sizeVariantFile = regexp.MustCompile(`(?i)\b(thumb|small|medium)\.(jpg|jpeg|png|webp)$`)

var sizeVariantDirs = []string{"/thumb/", "/small/", "/medium/"}

// Gallery extracts metadata from the JS-rendered photo-album host. The
// album page itself is still fetched over plain HTTP: titles and
// open-graph images are server-rendered even when the photo grid is
// not.
type Gallery struct {
	client *fetch.Client
	logger *slog.Logger
}

func NewGallery(client *fetch.Client, logger *slog.Logger) *Gallery {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gallery{
		client: client,
		logger: logger.With("component", "gallery_extractor"),
	}
}

func (g *Gallery) Extract(ctx context.Context, productURL string) models.ExtractionBundle {
	doc, err := g.client.Document(ctx, productURL)
	if err != nil {
		g.logger.Error("album page fetch failed", "url", productURL, "error", err)
		return models.ExtractionBundle{}
	}
	return g.fromDocument(doc)
}

func (g *Gallery) fromDocument(doc *goquery.Document) models.ExtractionBundle {
	rawTitle := firstTitle(doc, []titleFunc{
		documentTitle,
		ogTitle,
		namedMetaTitle,
		selectorChain(".album__title", ".showalbum__title", "h1.album-title", "h1", ".title", ".page-title"),
		firstHeading,
		dataTitleAttr,
	})

	albumTitle := stripGallerySuffix(rawTitle)
	pageTitle := stripGallerySuffix(strings.TrimSpace(doc.Find("title").First().Text()))
	if pageTitle == "" {
		pageTitle = albumTitle
	}
	if albumTitle == "" {
		albumTitle = pageTitle
	}

	raw := sizeHint(albumTitle + " " + pageTitle)

	images := filterImageCandidates(metaImages(doc))
	promoted := make([]string, 0, len(images))
	for _, u := range images {
		if n := NormalizePhotoURL(u); n != "" {
			promoted = append(promoted, n)
		}
	}

	return models.ExtractionBundle{
		AlbumTitle:      albumTitle,
		PageTitle:       pageTitle,
		RawSizes:        raw,
		ImageCandidates: dedupe(promoted),
	}
}

var gallerySuffixExprs = []*regexp.Regexp{
	regexp.MustCompile(`\s*\|\s*又拍图片管家\s*$`),
	regexp.MustCompile(`(?i)\s*\|\s*Yupoo\s*$`),
	regexp.MustCompile(`(?i)\s*-\s*相册\s*-\s*Yupoo\s*$`),
}

func stripGallerySuffix(s string) string {
	for _, re := range gallerySuffixExprs {
		s = re.ReplaceAllString(s, "")
	}
	return strings.TrimSpace(s)
}

// NormalizePhotoURL promotes a photo-host URL to its best available
// quality: https scheme forced, thumb/small/medium variants promoted to
// large, query and fragment stripped. Non-photo hosts return "".
func NormalizePhotoURL(raw string) string {
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if !strings.HasSuffix(strings.ToLower(u.Hostname()), photoHostSuffix) {
		return ""
	}

	p := u.Path
	for _, dir := range sizeVariantDirs {
		if idx := strings.Index(strings.ToLower(p), dir); idx >= 0 {
			p = p[:idx] + "/large/" + p[idx+len(dir):]
		}
	}
	base := path.Base(p)
	if promoted := sizeVariantFile.ReplaceAllString(base, "large.$2"); promoted != base {
		p = path.Join(path.Dir(p), promoted)
	}

	u.Scheme = "https"
	u.Path = p
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
