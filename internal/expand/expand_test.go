package expand

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitvault/scraper/internal/fetch"
	"github.com/kitvault/scraper/internal/models"
)

func testExpander() *Expander {
	return New(fetch.NewClient(5*time.Second, ""), slog.New(slog.DiscardHandler))
}

func TestExpandPaginatedCategory(t *testing.T) {
	mux := http.NewServeMux()
	var srv *httptest.Server

	mux.HandleFunc("/category/jerseys", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body>
			<ul class="products">
				<li class="product"><a href="/product/kit-a/">A</a></li>
				<li class="product"><a href="/product/kit-b/">B</a></li>
			</ul>
			<a class="next" href="%s/category/jerseys/page/2">next</a>
		</body></html>`, srv.URL)
	})
	mux.HandleFunc("/category/jerseys/page/2", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<ul class="products">
				<li class="product"><a href="/product/kit-c/">C</a></li>
				<li class="product"><a href="/product/kit-a/">A again</a></li>
			</ul>
		</body></html>`)
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	got := testExpander().Expand(context.Background(), srv.URL+"/category/jerseys",
		models.Classification{Platform: models.PlatformCatalog, Entity: models.EntityListing})

	require.Len(t, got, 3)
	assert.Equal(t, srv.URL+"/product/kit-a/", got[0])
	assert.Equal(t, srv.URL+"/product/kit-b/", got[1])
	assert.Equal(t, srv.URL+"/product/kit-c/", got[2])
}

func TestExpandFiltersNonProductLinks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<a href="/product/kit-a/">ok</a>
			<a href="/product/photo.jpg">asset</a>
			<a href="/cart/">cart</a>
			<a href="javascript:void(0)">js</a>
			<a href="mailto:x@example.com">mail</a>
			<a href="/product/kit-b/#reviews">anchor</a>
		</body></html>`)
	}))
	defer srv.Close()

	got := testExpander().Expand(context.Background(), srv.URL+"/search/",
		models.Classification{Platform: models.PlatformCatalog, Entity: models.EntityListing})

	require.Len(t, got, 1)
	assert.Contains(t, got[0], "/product/kit-a/")
}

func TestExpandStopsAtPageCap(t *testing.T) {
	var pages atomic.Int32
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := pages.Add(1)
		// Every page links to a fresh next page, forever.
		fmt.Fprintf(w, `<html><body>
			<a href="/product/kit-%d/">p</a>
			<a class="next" href="%s/listing/%d">next</a>
		</body></html>`, n, srv.URL, n)
	}))
	defer srv.Close()

	got := testExpander().Expand(context.Background(), srv.URL+"/category/all",
		models.Classification{Platform: models.PlatformCatalog, Entity: models.EntityListing})

	assert.EqualValues(t, maxPagesCatalog, pages.Load())
	assert.Len(t, got, maxPagesCatalog)
}

func TestExpandNeverRevisits(t *testing.T) {
	var hits atomic.Int32
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		// The next link loops straight back to the entry page.
		fmt.Fprintf(w, `<html><body>
			<a href="/albums/1234">album</a>
			<a class="next" href="%s/listing">next</a>
		</body></html>`, srv.URL)
	}))
	defer srv.Close()

	testExpander().Expand(context.Background(), srv.URL+"/listing",
		models.Classification{Platform: models.PlatformGallery, Entity: models.EntityListing})

	assert.EqualValues(t, 1, hits.Load())
}

func TestExpandFetchErrorStopsListingOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	got := testExpander().Expand(context.Background(), srv.URL+"/category/x",
		models.Classification{Platform: models.PlatformCatalog, Entity: models.EntityListing})
	assert.Empty(t, got)
}

func TestIsValidProductURL(t *testing.T) {
	assert.True(t, isValidProductURL("https://shop.example.com/product/a/"))
	assert.True(t, isValidProductURL("https://x.yupoo.com/albums/1"))
	assert.False(t, isValidProductURL("https://shop.example.com/about"))
	assert.False(t, isValidProductURL("https://shop.example.com/product/a.jpg"))
	assert.False(t, isValidProductURL(""))
}
