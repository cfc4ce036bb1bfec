package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kitvault/scraper/internal/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		platform models.Platform
		entity   models.Entity
	}{
		{
			name:     "gallery album is a product",
			url:      "https://teamkits.x.yupoo.com/albums/123456?uid=1",
			platform: models.PlatformGallery,
			entity:   models.EntityProduct,
		},
		{
			name:     "gallery album search is a listing",
			url:      "https://teamkits.x.yupoo.com/search/album?q=jersey",
			platform: models.PlatformGallery,
			entity:   models.EntityListing,
		},
		{
			name:     "gallery root defaults to listing",
			url:      "https://teamkits.x.yupoo.com/",
			platform: models.PlatformGallery,
			entity:   models.EntityListing,
		},
		{
			name:     "catalog product path",
			url:      "https://shop.example.com/product/team-x-home-25-26/",
			platform: models.PlatformCatalog,
			entity:   models.EntityProduct,
		},
		{
			name:     "catalog category path",
			url:      "https://shop.example.com/category/jerseys",
			platform: models.PlatformCatalog,
			entity:   models.EntityListing,
		},
		{
			name:     "catalog search query",
			url:      "https://shop.example.com/?s=retro&post_type=product",
			platform: models.PlatformCatalog,
			entity:   models.EntityListing,
		},
		{
			name:     "catalog search path",
			url:      "https://shop.example.com/search/",
			platform: models.PlatformCatalog,
			entity:   models.EntityListing,
		},
		{
			name:     "catalog homepage is unknown entity",
			url:      "https://shop.example.com/about",
			platform: models.PlatformCatalog,
			entity:   models.EntityUnknown,
		},
		{
			name:     "garbage input",
			url:      "not a url at all",
			platform: models.PlatformUnknown,
			entity:   models.EntityUnknown,
		},
		{
			name:     "empty input",
			url:      "",
			platform: models.PlatformUnknown,
			entity:   models.EntityUnknown,
		},
		{
			name:     "scheme only",
			url:      "https://",
			platform: models.PlatformUnknown,
			entity:   models.EntityUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.url)
			assert.Equal(t, tt.platform, got.Platform)
			assert.Equal(t, tt.entity, got.Entity)
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	inputs := []string{
		"https://teamkits.x.yupoo.com/albums/99",
		"https://shop.example.com/product/x/",
		"::::",
		"",
	}
	for _, in := range inputs {
		first := Classify(in)
		for i := 0; i < 5; i++ {
			assert.Equal(t, first, Classify(in))
		}
	}
}
