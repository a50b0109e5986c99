package handlers

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/AlvinLandedSpecialist/mydreamhouse-backend/internal/auth"
	dom "github.com/AlvinLandedSpecialist/mydreamhouse-backend/internal/domain"
	"github.com/AlvinLandedSpecialist/mydreamhouse-backend/internal/repo"
	"github.com/AlvinLandedSpecialist/mydreamhouse-backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var testSecret = []byte("handler-test-secret")

// memStore is an in-memory storage.Store.
type memStore struct {
	seq   int
	files map[string]string
}

func newMemStore() *memStore { return &memStore{files: map[string]string{}} }

func (s *memStore) Save(src io.Reader, originalName string) (string, error) {
	s.seq++
	name := fmt.Sprintf("file-%d", s.seq)
	b, _ := io.ReadAll(src)
	s.files[name] = string(b)
	return name, nil
}

func (s *memStore) Delete(name string) error {
	delete(s.files, name)
	return nil
}

func (s *memStore) URL(name string) string { return "/assets/" + name }

// memListingRepo is an in-memory repo.ListingRepo matching the Postgres
// row semantics.
type memListingRepo struct {
	nextID   int64
	imageSeq int64
	listings map[int64]dom.Listing
	images   map[int64][]dom.ListingImage
}

func newMemListingRepo() *memListingRepo {
	return &memListingRepo{listings: map[int64]dom.Listing{}, images: map[int64][]dom.ListingImage{}}
}

func (r *memListingRepo) Create(_ context.Context, l dom.Listing) (dom.Listing, error) {
	r.nextID++
	l.ID = r.nextID
	l.CreatedAt = time.Now()
	l.UpdatedAt = l.CreatedAt
	r.listings[l.ID] = l
	return l, nil
}

func (r *memListingRepo) GetByID(_ context.Context, id int64) (dom.Listing, error) {
	l, ok := r.listings[id]
	if !ok {
		return dom.Listing{}, pgx.ErrNoRows
	}
	return l, nil
}

func (r *memListingRepo) List(_ context.Context, f repo.ListingFilter) ([]dom.Listing, int64, error) {
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

func (r *memListingRepo) Update(_ context.Context, id, ownerID int64, patch repo.ListingPatch) (dom.Listing, error) {
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

func (r *memListingRepo) Delete(_ context.Context, id, ownerID int64) error {
	l, ok := r.listings[id]
	if !ok || l.OwnerID != ownerID {
		return pgx.ErrNoRows
	}
	delete(r.listings, id)
	delete(r.images, id)
	return nil
}

func (r *memListingRepo) ImagesFor(_ context.Context, listingID int64) ([]dom.ListingImage, error) {
	return r.images[listingID], nil
}

func (r *memListingRepo) AddImages(_ context.Context, listingID int64, assets []string) ([]dom.ListingImage, error) {
	var added []dom.ListingImage
	for _, asset := range assets {
		r.imageSeq++
		img := dom.ListingImage{ID: r.imageSeq, ListingID: listingID, Asset: asset, CreatedAt: time.Now()}
		r.images[listingID] = append(r.images[listingID], img)
		added = append(added, img)
	}
	return added, nil
}

// memUserRepo is an in-memory repo.UserRepo.
type memUserRepo struct {
	nextID int64
	users  map[string]dom.User
}

func newMemUserRepo() *memUserRepo { return &memUserRepo{users: map[string]dom.User{}} }

func (r *memUserRepo) GetByUsername(_ context.Context, username string) (dom.User, error) {
	u, ok := r.users[username]
	if !ok {
		return dom.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (r *memUserRepo) Create(_ context.Context, username, passwordHash string) (dom.User, error) {
	if _, ok := r.users[username]; ok {
		return dom.User{}, &pgconn.PgError{Code: "23505"}
	}
	r.nextID++
	u := dom.User{ID: r.nextID, Username: username, PasswordHash: passwordHash, CreatedAt: time.Now()}
	r.users[username] = u
	return u, nil
}

// testEnv wires the real handlers and services over in-memory fakes, with
// the same routes the app registers.
type testEnv struct {
	router     *gin.Engine
	listings   *memListingRepo
	users      *memUserRepo
	store      *memStore
	listingSvc *service.ListingService
	userSvc    *service.UserService
}

func newTestEnv() *testEnv {
	gin.SetMode(gin.TestMode)

	env := &testEnv{
		listings: newMemListingRepo(),
		users:    newMemUserRepo(),
		store:    newMemStore(),
	}
	env.userSvc = service.NewUserService(env.users, testSecret, time.Hour)
	env.listingSvc = service.NewListingService(env.listings, env.store, nil, 6)

	authHandler := NewAuthHandler(env.userSvc)
	listingHandler := NewListingHandler(env.listingSvc)

	r := gin.New()
	r.POST("/register", authHandler.Register)
	r.POST("/login", authHandler.Login)
	r.GET("/listings", listingHandler.List)
	r.GET("/listings/:id", listingHandler.GetByID)

	protected := r.Group("", auth.RequireToken(testSecret))
	protected.POST("/listings", listingHandler.Create)
	protected.PUT("/listings/:id", listingHandler.Update)
	protected.DELETE("/listings/:id", listingHandler.Delete)
	protected.POST("/listings/:id/images", listingHandler.UploadImages)

	env.router = r
	return env
}

// tokenFor issues a valid bearer token for the given user id.
func (e *testEnv) tokenFor(userID int64) string {
	tok, err := auth.IssueToken(userID, testSecret, time.Hour)
	if err != nil {
		panic(err)
	}
	return tok
}
