// Package classifier decides, from URL shape alone, which platform a
// source URL belongs to and whether it points at a product or a
// listing. It never touches the network.
package classifier

import (
	"net/url"
	"strings"

	"github.com/kitvault/scraper/internal/models"
)

const gallerySuffix = ".yupoo.com"

var catalogProductMarkers = []string{"/product/", "/produtos/", "/item/"}

var catalogListingMarkers = []string{"/category/", "/categories", "/collection", "/products/"}

// Classify maps a raw URL to its platform and entity kind. It is total:
// unparseable or unrecognized input yields unknown/unknown, never an
// error.
func Classify(rawURL string) models.Classification {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return models.Classification{Platform: models.PlatformUnknown, Entity: models.EntityUnknown}
	}

	host := strings.ToLower(u.Hostname())
	path := strings.ToLower(u.Path)
	query := u.Query()

	if strings.HasSuffix(host, gallerySuffix) {
		return classifyGallery(path)
	}
	return classifyCatalog(path, query)
}

func classifyGallery(path string) models.Classification {
	cl := models.Classification{Platform: models.PlatformGallery}
	if strings.Contains(path, "/albums/") {
		cl.Entity = models.EntityProduct
		return cl
	}
	// Album searches and collections are the common non-product gallery
	// URLs, so ambiguous paths default to listing.
	cl.Entity = models.EntityListing
	return cl
}

func classifyCatalog(path string, query url.Values) models.Classification {
	cl := models.Classification{Platform: models.PlatformCatalog}

	for _, marker := range catalogProductMarkers {
		if strings.Contains(path, marker) {
			cl.Entity = models.EntityProduct
			return cl
		}
	}

	if strings.HasSuffix(path, "/search") || strings.HasSuffix(path, "/search/") ||
		query.Has("s") || query.Has("post_type") {
		cl.Entity = models.EntityListing
		return cl
	}
	for _, marker := range catalogListingMarkers {
		if strings.Contains(path, marker) {
			cl.Entity = models.EntityListing
			return cl
		}
	}

	cl.Entity = models.EntityUnknown
	return cl
}
