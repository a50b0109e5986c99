package repo

import (
	"context"
	"fmt"
	"strings"

	dom "github.com/AlvinLandedSpecialist/mydreamhouse-backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ListingFilter narrows and pages the public feed. PageSize 0 means
// no pagination; Page is 1-indexed.
type ListingFilter struct {
	PriceMax *float64
	Page     int
	PageSize int
}

// ListingPatch carries a partial update. Nil fields keep their stored value.
type ListingPatch struct {
	Title        *string
	Content      *string
	Price        *float64
	ExternalLink *string
	CoverAsset   *string
}

// ListingRepo provides listing and listing-image persistence.
type ListingRepo interface {
	Create(ctx context.Context, l dom.Listing) (dom.Listing, error)
	GetByID(ctx context.Context, id int64) (dom.Listing, error)
	List(ctx context.Context, f ListingFilter) ([]dom.Listing, int64, error)
	Update(ctx context.Context, id, ownerID int64, patch ListingPatch) (dom.Listing, error)
	Delete(ctx context.Context, id, ownerID int64) error
	ImagesFor(ctx context.Context, listingID int64) ([]dom.ListingImage, error)
	AddImages(ctx context.Context, listingID int64, assets []string) ([]dom.ListingImage, error)
}

// PGListingRepo implements ListingRepo with Postgres.
type PGListingRepo struct {
	db *pgxpool.Pool
}

func NewPGListingRepo(db *pgxpool.Pool) *PGListingRepo {
	return &PGListingRepo{db: db}
}

const listingCols = `id, owner_id, title, content, price, COALESCE(external_link, ''), COALESCE(cover_asset, ''), created_at, updated_at`

func scanListing(row pgx.Row) (dom.Listing, error) {
	var l dom.Listing
	err := row.Scan(&l.ID, &l.OwnerID, &l.Title, &l.Content, &l.Price,
		&l.ExternalLink, &l.CoverAsset, &l.CreatedAt, &l.UpdatedAt)
	return l, err
}

func (r *PGListingRepo) Create(ctx context.Context, l dom.Listing) (dom.Listing, error) {
	query := `
		INSERT INTO listings (owner_id, title, content, price, external_link, cover_asset)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''))
		RETURNING ` + listingCols
	return scanListing(r.db.QueryRow(ctx, query,
		l.OwnerID, l.Title, l.Content, l.Price, l.ExternalLink, l.CoverAsset))
}

func (r *PGListingRepo) GetByID(ctx context.Context, id int64) (dom.Listing, error) {
	query := `SELECT ` + listingCols + ` FROM listings WHERE id = $1`
	return scanListing(r.db.QueryRow(ctx, query, id))
}

// List returns one page of listings, newest first, plus the total count
// matching the filter. An out-of-range page yields an empty slice.
func (r *PGListingRepo) List(ctx context.Context, f ListingFilter) ([]dom.Listing, int64, error) {
	where := ""
	args := []any{}
	if f.PriceMax != nil {
		where = " WHERE price <= $1"
		args = append(args, *f.PriceMax)
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM listings`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + listingCols + ` FROM listings` + where + ` ORDER BY id DESC`
	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, f.PageSize, (page-1)*f.PageSize)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []dom.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, l)
	}
	return list, total, rows.Err()
}

// Update applies the patch in a single statement so two concurrent updates
// to the same listing never interleave field writes. No row comes back when
// the id is unknown or the owner does not match.
func (r *PGListingRepo) Update(ctx context.Context, id, ownerID int64, patch ListingPatch) (dom.Listing, error) {
	query := `
		UPDATE listings SET
			title = COALESCE($3, title),
			content = COALESCE($4, content),
			price = COALESCE($5, price),
			external_link = COALESCE($6, external_link),
			cover_asset = COALESCE($7, cover_asset),
			updated_at = NOW()
		WHERE id = $1 AND owner_id = $2
		RETURNING ` + listingCols
	return scanListing(r.db.QueryRow(ctx, query, id, ownerID,
		patch.Title, patch.Content, patch.Price, patch.ExternalLink, patch.CoverAsset))
}

// Delete removes the listing; listing_images rows go with it via
// ON DELETE CASCADE. Missing or foreign rows surface as pgx.ErrNoRows.
func (r *PGListingRepo) Delete(ctx context.Context, id, ownerID int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM listings WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PGListingRepo) ImagesFor(ctx context.Context, listingID int64) ([]dom.ListingImage, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, listing_id, asset, created_at FROM listing_images WHERE listing_id = $1 ORDER BY id`,
		listingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var images []dom.ListingImage
	for rows.Next() {
		var img dom.ListingImage
		if err := rows.Scan(&img.ID, &img.ListingID, &img.Asset, &img.CreatedAt); err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

// AddImages inserts all rows in one transaction: either every asset gets a
// row or none does.
func (r *PGListingRepo) AddImages(ctx context.Context, listingID int64, assets []string) ([]dom.ListingImage, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	images := make([]dom.ListingImage, 0, len(assets))
	for _, asset := range assets {
		var img dom.ListingImage
		err := tx.QueryRow(ctx,
			`INSERT INTO listing_images (listing_id, asset) VALUES ($1, $2)
			 RETURNING id, listing_id, asset, created_at`,
			listingID, asset,
		).Scan(&img.ID, &img.ListingID, &img.Asset, &img.CreatedAt)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return images, nil
}

// AssetNames flattens a listing's referenced assets: cover first, then the
// extra images. The service collects these before a delete.
func AssetNames(l dom.Listing, images []dom.ListingImage) []string {
	var names []string
	if strings.TrimSpace(l.CoverAsset) != "" {
		names = append(names, l.CoverAsset)
	}
	for _, img := range images {
		names = append(names, img.Asset)
	}
	return names
}
