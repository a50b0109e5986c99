package service

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"

	"github.com/AlvinLandedSpecialist/mydreamhouse-backend/internal/cache"
	dom "github.com/AlvinLandedSpecialist/mydreamhouse-backend/internal/domain"
	"github.com/AlvinLandedSpecialist/mydreamhouse-backend/internal/repo"
	"github.com/AlvinLandedSpecialist/mydreamhouse-backend/internal/storage"
	"github.com/AlvinLandedSpecialist/mydreamhouse-backend/internal/utils"

	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/singleflight"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrForbidden     = errors.New("not the owner of this listing")
	ErrMissingFields = errors.New("title, content and price are required")
	ErrInvalidPrice  = errors.New("price must be a non-negative number")
	ErrTooManyImages = errors.New("too many images in one upload")
	ErrNoImages      = errors.New("no images in upload")
)

// Upload is one incoming file: its client-supplied name (for the extension)
// and its content.
type Upload struct {
	Name string
	Data io.Reader
}

// CreateListingInput carries everything a create may supply. Cover and
// Images are optional.
type CreateListingInput struct {
	Title        string
	Content      string
	Price        float64
	ExternalLink string
	Cover        *Upload
	Images       []Upload
}

// UpdateListingInput is a partial update; nil fields are left untouched.
// A non-nil Cover replaces the existing cover asset.
type UpdateListingInput struct {
	Title        *string
	Content      *string
	Price        *float64
	ExternalLink *string
	Cover        *Upload
}

// ListingPage is one page of the public feed.
type ListingPage struct {
	Items []dom.Listing
	Total int64
}

// ListingService orchestrates ownership checks, repository writes and
// asset storage. The ordering rules are fixed: assets are saved before
// the row that references them is written, and a replaced asset is only
// deleted after the new reference is committed.
type ListingService struct {
	repo      repo.ListingRepo
	store     storage.Store
	cache     *cache.ListingCache
	sf        singleflight.Group
	maxImages int
}

// NewListingService creates a ListingService. If c is nil, caching is disabled.
func NewListingService(r repo.ListingRepo, store storage.Store, c *cache.ListingCache, maxImages int) *ListingService {
	return &ListingService{repo: r, store: store, cache: c, maxImages: maxImages}
}

// Create validates input, stores any uploaded assets and persists the
// listing with its image rows. The image cap is checked before a single
// byte is written.
func (s *ListingService) Create(ctx context.Context, ownerID int64, in CreateListingInput) (dom.Listing, []dom.ListingImage, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	if in.Title == "" || in.Content == "" {
		return dom.Listing{}, nil, ErrMissingFields
	}
	if in.Price < 0 {
		return dom.Listing{}, nil, ErrInvalidPrice
	}
	if len(in.Images) > s.maxImages {
		return dom.Listing{}, nil, ErrTooManyImages
	}

	var saved []string
	cleanup := func() {
		for _, name := range saved {
			if err := s.store.Delete(name); err != nil {
				log.Printf("listing create: cleanup of asset %s failed: %v", name, err)
			}
		}
	}

	coverName := ""
	if in.Cover != nil {
		name, err := s.store.Save(in.Cover.Data, in.Cover.Name)
		if err != nil {
			return dom.Listing{}, nil, err
		}
		saved = append(saved, name)
		coverName = name
	}
	imageNames := make([]string, 0, len(in.Images))
	for _, up := range in.Images {
		name, err := s.store.Save(up.Data, up.Name)
		if err != nil {
			cleanup()
			return dom.Listing{}, nil, err
		}
		saved = append(saved, name)
		imageNames = append(imageNames, name)
	}

	l, err := s.repo.Create(ctx, dom.Listing{
		OwnerID:      ownerID,
		Title:        in.Title,
		Content:      in.Content,
		Price:        in.Price,
		ExternalLink: strings.TrimSpace(in.ExternalLink),
		CoverAsset:   coverName,
	})
	if err != nil {
		cleanup()
		return dom.Listing{}, nil, err
	}

	var images []dom.ListingImage
	if len(imageNames) > 0 {
		images, err = s.repo.AddImages(ctx, l.ID, imageNames)
		if err != nil {
			// The listing row exists; only the unreferenced image assets
			// are rolled back.
			for _, name := range imageNames {
				if derr := s.store.Delete(name); derr != nil {
					log.Printf("listing create: cleanup of asset %s failed: %v", name, derr)
				}
			}
			return dom.Listing{}, nil, err
		}
	}

	s.invalidateFeed(ctx)
	return l, images, nil
}

// Get returns a listing with its extra images.
func (s *ListingService) Get(ctx context.Context, id int64) (dom.Listing, []dom.ListingImage, error) {
	l, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dom.Listing{}, nil, ErrNotFound
		}
		return dom.Listing{}, nil, err
	}
	images, err := s.repo.ImagesFor(ctx, id)
	if err != nil {
		return dom.Listing{}, nil, err
	}
	return l, images, nil
}

// List returns one page of the public feed, served from cache when possible.
func (s *ListingService) List(ctx context.Context, f repo.ListingFilter) (ListingPage, error) {
	if s.cache == nil {
		items, total, err := s.repo.List(ctx, f)
		return ListingPage{Items: items, Total: total}, err
	}

	key := cache.FeedKey(f.Page, f.PageSize, f.PriceMax)
	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		if p, err := s.cache.GetFeed(ctx, key); err == nil && p != nil {
			return ListingPage{Items: p.Items, Total: p.Total}, nil
		}
		items, total, err := s.repo.List(ctx, f)
		if err != nil {
			return nil, err
		}
		_ = s.cache.SetFeed(ctx, key, &cache.Page{Items: items, Total: total})
		return ListingPage{Items: items, Total: total}, nil
	})
	if err != nil {
		return ListingPage{}, err
	}
	return v.(ListingPage), nil
}

// Update applies a partial update after the ownership check. When the cover
// is replaced, the new asset is saved first, the row is committed, and only
// then is the old asset removed, so the record never points at a deleted file.
func (s *ListingService) Update(ctx context.Context, userID, id int64, in UpdateListingInput) (dom.Listing, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dom.Listing{}, ErrNotFound
		}
		return dom.Listing{}, err
	}
	if existing.OwnerID != userID {
		return dom.Listing{}, ErrForbidden
	}

	patch := repo.ListingPatch{
		Title:        trimmed(in.Title),
		Content:      trimmed(in.Content),
		Price:        in.Price,
		ExternalLink: in.ExternalLink,
	}
	if patch.Title != nil && *patch.Title == "" {
		return dom.Listing{}, ErrMissingFields
	}
	if patch.Content != nil && *patch.Content == "" {
		return dom.Listing{}, ErrMissingFields
	}
	if in.Price != nil && *in.Price < 0 {
		return dom.Listing{}, ErrInvalidPrice
	}

	newCover := ""
	if in.Cover != nil {
		name, err := s.store.Save(in.Cover.Data, in.Cover.Name)
		if err != nil {
			return dom.Listing{}, err
		}
		newCover = name
		patch.CoverAsset = &name
	}

	updated, err := s.repo.Update(ctx, id, userID, patch)
	if err != nil {
		if newCover != "" {
			if derr := s.store.Delete(newCover); derr != nil {
				log.Printf("listing update: cleanup of asset %s failed: %v", newCover, derr)
			}
		}
		if errors.Is(err, pgx.ErrNoRows) {
			// The listing was deleted between the fetch and the update.
			return dom.Listing{}, ErrNotFound
		}
		return dom.Listing{}, err
	}

	if newCover != "" && existing.CoverAsset != "" {
		if err := s.store.Delete(existing.CoverAsset); err != nil {
			log.Printf("listing update: delete of replaced cover %s failed: %v", existing.CoverAsset, err)
		}
	}

	s.invalidateFeed(ctx)
	return updated, nil
}

// Delete removes the listing and its image rows, then removes the backing
// assets. The record deletion is authoritative; asset removal is best
// effort and failures are only logged.
func (s *ListingService) Delete(ctx context.Context, userID, id int64) error {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if existing.OwnerID != userID {
		return ErrForbidden
	}

	images, err := s.repo.ImagesFor(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	for _, name := range repo.AssetNames(existing, images) {
		if err := s.store.Delete(name); err != nil {
			log.Printf("listing delete: asset %s not removed: %v", name, err)
		}
	}

	s.invalidateFeed(ctx)
	return nil
}

// AddImages stores up to maxImages new assets against a listing the caller
// owns. The cap is checked before anything is written; the rows are
// inserted all-or-nothing.
func (s *ListingService) AddImages(ctx context.Context, userID, id int64, files []Upload) ([]dom.ListingImage, error) {
	if len(files) == 0 {
		return nil, ErrNoImages
	}
	if len(files) > s.maxImages {
		return nil, ErrTooManyImages
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if existing.OwnerID != userID {
		return nil, ErrForbidden
	}

	names := make([]string, 0, len(files))
	cleanup := func() {
		for _, name := range names {
			if err := s.store.Delete(name); err != nil {
				log.Printf("add images: cleanup of asset %s failed: %v", name, err)
			}
		}
	}
	for _, up := range files {
		name, err := s.store.Save(up.Data, up.Name)
		if err != nil {
			cleanup()
			return nil, err
		}
		names = append(names, name)
	}

	images, err := s.repo.AddImages(ctx, id, names)
	if err != nil {
		cleanup()
		if utils.IsPGForeignKeyViolation(err) {
			// The listing was deleted between the fetch and the insert.
			return nil, ErrNotFound
		}
		return nil, err
	}

	s.invalidateFeed(ctx)
	return images, nil
}

// AssetURL exposes the store's name-to-URL mapping to handlers.
func (s *ListingService) AssetURL(name string) string {
	if name == "" {
		return ""
	}
	return s.store.URL(name)
}

func (s *ListingService) invalidateFeed(ctx context.Context) {
	if s.cache != nil {
		if err := s.cache.InvalidateFeed(ctx); err != nil {
			log.Printf("feed cache invalidation failed: %v", err)
		}
	}
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
