package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	dom "github.com/AlvinLandedSpecialist/mydreamhouse-backend/internal/domain"
	"github.com/AlvinLandedSpecialist/mydreamhouse-backend/internal/repo"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeStore is an in-memory storage.Store that remembers what was saved
// and deleted, in order.
type fakeStore struct {
	seq     int
	files   map[string]string
	saved   []string
	deleted []string
	saveErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{files: map[string]string{}}
}

func (f *fakeStore) Save(src io.Reader, originalName string) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	f.seq++
	name := fmt.Sprintf("asset-%d%s", f.seq, strings.ToLower(filepath.Ext(originalName)))
	b, _ := io.ReadAll(src)
	f.files[name] = string(b)
	f.saved = append(f.saved, name)
	return name, nil
}

func (f *fakeStore) Delete(name string) error {
	delete(f.files, name)
	f.deleted = append(f.deleted, name)
	return nil
}

func (f *fakeStore) URL(name string) string { return "/assets/" + name }

func (f *fakeStore) has(name string) bool {
	_, ok := f.files[name]
	return ok
}

// fakeListingRepo is an in-memory repo.ListingRepo with the same row
// semantics as the Postgres one: pgx.ErrNoRows for unknown ids and for
// owner mismatches on update/delete.
type fakeListingRepo struct {
	nextID    int64
	listings  map[int64]dom.Listing
	images    map[int64][]dom.ListingImage
	imageSeq  int64
	createErr error
	imagesErr error
	updateErr error
}

func newFakeListingRepo() *fakeListingRepo {
	return &fakeListingRepo{listings: map[int64]dom.Listing{}, images: map[int64][]dom.ListingImage{}}
}

func (r *fakeListingRepo) Create(_ context.Context, l dom.Listing) (dom.Listing, error) {
	if r.createErr != nil {
		return dom.Listing{}, r.createErr
	}
	r.nextID++
	l.ID = r.nextID
	l.CreatedAt = time.Now()
	l.UpdatedAt = l.CreatedAt
	r.listings[l.ID] = l
	return l, nil
}

func (r *fakeListingRepo) GetByID(_ context.Context, id int64) (dom.Listing, error) {
	l, ok := r.listings[id]
	if !ok {
		return dom.Listing{}, pgx.ErrNoRows
	}
	return l, nil
}

func (r *fakeListingRepo) List(_ context.Context, f repo.ListingFilter) ([]dom.Listing, int64, error) {
	var all []dom.Listing
	for _, l := range r.listings {
		if f.PriceMax != nil && l.Price > *f.PriceMax {
			continue
		}
		all = append(all, l)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })

	total := int64(len(all))
	if f.PageSize <= 0 {
		return all, total, nil
	}
	page := f.Page
	if page < 1 {
		page = 1
	}
	start := (page - 1) * f.PageSize
	if start >= len(all) {
		return nil, total, nil
	}
	end := start + f.PageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (r *fakeListingRepo) Update(_ context.Context, id, ownerID int64, patch repo.ListingPatch) (dom.Listing, error) {
	if r.updateErr != nil {
		return dom.Listing{}, r.updateErr
	}
	l, ok := r.listings[id]
	if !ok || l.OwnerID != ownerID {
		return dom.Listing{}, pgx.ErrNoRows
	}
	if patch.Title != nil {
		l.Title = *patch.Title
	}
	if patch.Content != nil {
		l.Content = *patch.Content
	}
	if patch.Price != nil {
		l.Price = *patch.Price
	}
	if patch.ExternalLink != nil {
		l.ExternalLink = *patch.ExternalLink
	}
	if patch.CoverAsset != nil {
		l.CoverAsset = *patch.CoverAsset
	}
	l.UpdatedAt = time.Now()
	r.listings[id] = l
	return l, nil
}

func (r *fakeListingRepo) Delete(_ context.Context, id, ownerID int64) error {
	l, ok := r.listings[id]
	if !ok || l.OwnerID != ownerID {
		return pgx.ErrNoRows
	}
	delete(r.listings, id)
	delete(r.images, id)
	return nil
}

func (r *fakeListingRepo) ImagesFor(_ context.Context, listingID int64) ([]dom.ListingImage, error) {
	return r.images[listingID], nil
}

func (r *fakeListingRepo) AddImages(_ context.Context, listingID int64, assets []string) ([]dom.ListingImage, error) {
	if r.imagesErr != nil {
		return nil, r.imagesErr
	}
	var added []dom.ListingImage
	for _, asset := range assets {
		r.imageSeq++
		img := dom.ListingImage{ID: r.imageSeq, ListingID: listingID, Asset: asset, CreatedAt: time.Now()}
		r.images[listingID] = append(r.images[listingID], img)
		added = append(added, img)
	}
	return added, nil
}

// fakeUserRepo is an in-memory repo.UserRepo.
type fakeUserRepo struct {
	nextID int64
	users  map[string]dom.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]dom.User{}}
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (dom.User, error) {
	u, ok := r.users[username]
	if !ok {
		return dom.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (r *fakeUserRepo) Create(_ context.Context, username, passwordHash string) (dom.User, error) {
	if _, ok := r.users[username]; ok {
		// Same error shape the Postgres repo surfaces.
		return dom.User{}, &pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"}
	}
	r.nextID++
	u := dom.User{ID: r.nextID, Username: username, PasswordHash: passwordHash, CreatedAt: time.Now()}
	r.users[username] = u
	return u, nil
}
