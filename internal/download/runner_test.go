package download

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kitvault/scraper/internal/models"
)

type stubEngine struct {
	urls []string
	err  error
}

func (s *stubEngine) Acquire(_ context.Context, rec models.CanonicalProduct) error {
	s.urls = append(s.urls, rec.AlbumURL)
	return s.err
}

func TestRunnerRoutesByPlatform(t *testing.T) {
	gallery := &stubEngine{}
	catalog := &stubEngine{}
	r := NewRunnerWithEngines(gallery, catalog, discard())

	recs := []models.CanonicalProduct{
		{AlbumURL: "https://store.yupoo.com/albums/123?uid=1"},
		{AlbumURL: "https://shop.example.com/product/home-kit/"},
		{AlbumURL: "https://other.yupoo.com/albums/456?uid=1"},
	}
	res := r.Run(context.Background(), recs)

	assert.Equal(t, 3, res.TotalAlbums)
	assert.Zero(t, res.Failures)
	assert.False(t, res.Cancelled)
	assert.Equal(t, []string{
		"https://store.yupoo.com/albums/123?uid=1",
		"https://other.yupoo.com/albums/456?uid=1",
	}, gallery.urls)
	assert.Equal(t, []string{"https://shop.example.com/product/home-kit/"}, catalog.urls)
}

func TestRunnerCountsFailuresWithoutStopping(t *testing.T) {
	gallery := &stubEngine{err: errors.New("browser crashed")}
	catalog := &stubEngine{}
	r := NewRunnerWithEngines(gallery, catalog, discard())

	recs := []models.CanonicalProduct{
		{AlbumURL: "https://store.yupoo.com/albums/1?uid=1"},
		{AlbumURL: "https://shop.example.com/product/a/"},
	}
	res := r.Run(context.Background(), recs)

	assert.Equal(t, 2, res.TotalAlbums)
	assert.Equal(t, 1, res.Failures)
	assert.Len(t, catalog.urls, 1, "failure on one album must not skip the next")
}

func TestRunnerStopsOnCancellation(t *testing.T) {
	gallery := &stubEngine{}
	catalog := &stubEngine{}
	r := NewRunnerWithEngines(gallery, catalog, discard())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := r.Run(ctx, []models.CanonicalProduct{
		{AlbumURL: "https://shop.example.com/product/a/"},
	})

	assert.True(t, res.Cancelled)
	assert.Zero(t, res.TotalAlbums)
	assert.Empty(t, catalog.urls)
}
