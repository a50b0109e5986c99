package dto

import "time"

// CreateListingRequest is the JSON body for POST /listings when the client
// sends no files. Multipart creates carry the same fields as form values.
type CreateListingRequest struct {
	Title        string   `json:"title" binding:"required,min=1,max=200"`
	Content      string   `json:"content" binding:"required"`
	Price        *float64 `json:"price" binding:"required,gte=0"`
	ExternalLink string   `json:"external_link" binding:"omitempty,max=500"`
}

// UpdateListingRequest is the partial JSON body for PUT /listings/:id.
// nil = leave unchanged.
type UpdateListingRequest struct {
	Title        *string  `json:"title" binding:"omitempty,min=1,max=200"`
	Content      *string  `json:"content" binding:"omitempty"`
	Price        *float64 `json:"price" binding:"omitempty,gte=0"`
	ExternalLink *string  `json:"external_link" binding:"omitempty,max=500"`
}

// ListingResponse is the public shape of a listing. CoverURL and Images
// hold resolvable asset URLs, never storage names.
type ListingResponse struct {
	ID           int64     `json:"id"`
	OwnerID      int64     `json:"owner_id"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Price        float64   `json:"price"`
	ExternalLink string    `json:"external_link,omitempty"`
	CoverURL     string    `json:"cover_url,omitempty"`
	Images       []string  `json:"images,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ListListingsResponse is one page of the public feed.
type ListListingsResponse struct {
	Items       []ListingResponse `json:"items"`
	Total       int64             `json:"total"`
	Pages       int               `json:"pages"`
	CurrentPage int               `json:"currentPage"`
}

// UploadImagesResponse returns the URLs of freshly attached images.
type UploadImagesResponse struct {
	URLs []string `json:"urls"`
}
