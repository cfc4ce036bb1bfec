package models

import (
	"time"
)

// Platform identifies the source family a URL belongs to.
type Platform string

const (
	PlatformGallery Platform = "gallery"
	PlatformCatalog Platform = "catalog"
	PlatformUnknown Platform = "unknown"
)

// Entity identifies what kind of page a URL points at.
type Entity string

const (
	EntityProduct Entity = "product"
	EntityListing Entity = "listing"
	EntityUnknown Entity = "unknown"
)

// Classification is derived purely from the shape of a URL, never from
// the network.
type Classification struct {
	Platform Platform `json:"platform"`
	Entity   Entity   `json:"entity"`
}

func (c Classification) IsProduct() bool { return c.Entity == EntityProduct }
func (c Classification) IsListing() bool { return c.Entity == EntityListing }

// ExtractionBundle is the raw result of scraping one product page.
// Partial failure leaves fields empty; an all-empty bundle means the
// extraction found nothing usable.
type ExtractionBundle struct {
	AlbumTitle      string   `json:"album_title"`
	PageTitle       string   `json:"page_title"`
	RawSizes        string   `json:"raw_sizes,omitempty"`
	ImageCandidates []string `json:"image_candidates"`
}

func (b ExtractionBundle) IsEmpty() bool {
	return b.AlbumTitle == "" && b.PageTitle == "" && b.RawSizes == "" && len(b.ImageCandidates) == 0
}

// CanonicalProduct is the normalized, deduplicated record for one
// scraped product. Immutable once built; one batch of these is the
// hand-off artifact for the image and export stages.
type CanonicalProduct struct {
	AlbumURL        string   `json:"album_url"`
	AlbumID         string   `json:"album_id"`
	AlbumTitle      string   `json:"album_title"`
	PageTitle       string   `json:"page_title"`
	AlbumFolderName string   `json:"album_folder_name"`
	Sizes           string   `json:"sizes"`
	ImageURLs       []string `json:"image_urls"`
}

// BatchResult summarizes one orchestrator run.
type BatchResult struct {
	OK         bool               `json:"ok"`
	TotalURLs  int                `json:"total_urls"`
	Successes  int                `json:"successes"`
	Failures   int                `json:"failures"`
	Records    []CanonicalProduct `json:"records"`
	OutputPath string             `json:"output_path,omitempty"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
}

// DownloadOutcome is the per-image result of the acquisition engines.
// It is emitted to the log, not persisted.
type DownloadOutcome struct {
	SourceURL       string `json:"source_url"`
	DestinationPath string `json:"destination_path"`
	ByteSize        int64  `json:"byte_size"`
	RefererUsed     string `json:"referer_used"`
	Success         bool   `json:"success"`
}
