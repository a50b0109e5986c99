package domain

import "time"

// Listing is the primary owned resource: a property record with an
// optional cover image and extra images. CoverAsset holds the stored
// asset name, not a URL; empty means no cover.
type Listing struct {
	ID           int64
	OwnerID      int64
	Title        string
	Content      string
	Price        float64
	ExternalLink string
	CoverAsset   string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ListingImage links a listing to one stored asset beyond its cover.
// Images are never edited: they are added and later removed with their
// listing.
type ListingImage struct {
	ID        int64
	ListingID int64
	Asset     string
	CreatedAt time.Time
}
