package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/AlvinLandedSpecialist/mydreamhouse-backend/internal/auth"
	dom "github.com/AlvinLandedSpecialist/mydreamhouse-backend/internal/domain"
	"github.com/AlvinLandedSpecialist/mydreamhouse-backend/internal/dto"
	"github.com/AlvinLandedSpecialist/mydreamhouse-backend/internal/repo"
	"github.com/AlvinLandedSpecialist/mydreamhouse-backend/internal/service"

	"github.com/gin-gonic/gin"
)

const defaultPageSize = 10

// ListingHandler handles the listing CRUD and image uploads.
type ListingHandler struct {
	svc *service.ListingService
}

func NewListingHandler(svc *service.ListingService) *ListingHandler {
	return &ListingHandler{svc: svc}
}

// Create godoc
// @Summary      Create a listing
// @Tags         listings
// @Accept       json,mpfd
// @Produce      json
// @Router       /listings [post]
func (h *ListingHandler) Create(c *gin.Context) {
	userID := auth.UserIDFromContext(c)

	var in service.CreateListingInput
	var closers []multipart.File

	if c.ContentType() == "multipart/form-data" {
		form, err := c.MultipartForm()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
			return
		}
		in.Title = formValue(form, "title")
		in.Content = formValue(form, "content")
		in.ExternalLink = formValue(form, "external_link")

		price, ok := parsePrice(c, formValue(form, "price"))
		if !ok {
			return
		}
		in.Price = price

		cover, images, files, err := openUploads(form)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload"})
			return
		}
		closers = files
		in.Cover = cover
		in.Images = images
	} else {
		var req dto.CreateListingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		in.Title = req.Title
		in.Content = req.Content
		in.Price = *req.Price
		in.ExternalLink = req.ExternalLink
	}
	defer closeAll(closers)

	l, images, err := h.svc.Create(c.Request.Context(), userID, in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.toResponse(l, images))
}

// List godoc
// @Summary      Browse listings (public)
// @Tags         listings
// @Produce      json
// @Param        page      query  int     false  "1-indexed page"
// @Param        pageSize  query  int     false  "items per page"
// @Param        priceMax  query  number  false  "upper price bound"
// @Router       /listings [get]
func (h *ListingHandler) List(c *gin.Context) {
	f, ok := parseListQuery(c)
	if !ok {
		return
	}

	page, err := h.svc.List(c.Request.Context(), f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list"})
		return
	}

	items := make([]dto.ListingResponse, len(page.Items))
	for i := range page.Items {
		items[i] = h.toResponse(page.Items[i], nil)
	}

	pages := 1
	currentPage := 1
	if f.PageSize > 0 {
		pages = int((page.Total + int64(f.PageSize) - 1) / int64(f.PageSize))
		currentPage = f.Page
	}
	c.JSON(http.StatusOK, dto.ListListingsResponse{
		Items:       items,
		Total:       page.Total,
		Pages:       pages,
		CurrentPage: currentPage,
	})
}

// GetByID godoc
// @Summary      Get a listing with its images (public)
// @Tags         listings
// @Produce      json
// @Param        id  path  int  true  "Listing ID"
// @Router       /listings/{id} [get]
func (h *ListingHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	l, images, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.toResponse(l, images))
}

// Update godoc
// @Summary      Partially update an owned listing
// @Tags         listings
// @Accept       json,mpfd
// @Produce      json
// @Param        id  path  int  true  "Listing ID"
// @Router       /listings/{id} [put]
func (h *ListingHandler) Update(c *gin.Context) {
	userID := auth.UserIDFromContext(c)
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var in service.UpdateListingInput
	var closers []multipart.File

	if c.ContentType() == "multipart/form-data" {
		form, err := c.MultipartForm()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
			return
		}
		in.Title = formValuePtr(form, "title")
		in.Content = formValuePtr(form, "content")
		in.ExternalLink = formValuePtr(form, "external_link")
		if raw := formValuePtr(form, "price"); raw != nil {
			price, ok := parsePrice(c, *raw)
			if !ok {
				return
			}
			in.Price = &price
		}
		if fhs := form.File["cover"]; len(fhs) > 0 {
			f, err := fhs[0].Open()
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload"})
				return
			}
			closers = append(closers, f)
			in.Cover = &service.Upload{Name: fhs[0].Filename, Data: f}
		}
	} else {
		var req dto.UpdateListingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		in.Title = req.Title
		in.Content = req.Content
		in.Price = req.Price
		in.ExternalLink = req.ExternalLink
	}
	defer closeAll(closers)

	l, err := h.svc.Update(c.Request.Context(), userID, id, in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.toResponse(l, nil))
}

// Delete godoc
// @Summary      Delete an owned listing and its images
// @Tags         listings
// @Produce      json
// @Param        id  path  int  true  "Listing ID"
// @Router       /listings/{id} [delete]
func (h *ListingHandler) Delete(c *gin.Context) {
	userID := auth.UserIDFromContext(c)
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), userID, id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "listing deleted"})
}

// UploadImages godoc
// @Summary      Attach images to an owned listing
// @Tags         listings
// @Accept       mpfd
// @Produce      json
// @Param        id  path  int  true  "Listing ID"
// @Router       /listings/{id}/images [post]
func (h *ListingHandler) UploadImages(c *gin.Context) {
	userID := auth.UserIDFromContext(c)
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
		return
	}

	var uploads []service.Upload
	var closers []multipart.File
	for _, fh := range form.File["images"] {
		f, err := fh.Open()
		if err != nil {
			closeAll(closers)
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload"})
			return
		}
		closers = append(closers, f)
		uploads = append(uploads, service.Upload{Name: fh.Filename, Data: f})
	}
	defer closeAll(closers)

	images, err := h.svc.AddImages(c.Request.Context(), userID, id, uploads)
	if err != nil {
		h.respondError(c, err)
		return
	}

	urls := make([]string, len(images))
	for i := range images {
		urls[i] = h.svc.AssetURL(images[i].Asset)
	}
	c.JSON(http.StatusCreated, dto.UploadImagesResponse{URLs: urls})
}

func (h *ListingHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "you are not authorized to edit this listing"})
	case errors.Is(err, service.ErrMissingFields),
		errors.Is(err, service.ErrInvalidPrice),
		errors.Is(err, service.ErrTooManyImages),
		errors.Is(err, service.ErrNoImages):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (h *ListingHandler) toResponse(l dom.Listing, images []dom.ListingImage) dto.ListingResponse {
	resp := dto.ListingResponse{
		ID:           l.ID,
		OwnerID:      l.OwnerID,
		Title:        l.Title,
		Content:      l.Content,
		Price:        l.Price,
		ExternalLink: l.ExternalLink,
		CoverURL:     h.svc.AssetURL(l.CoverAsset),
		CreatedAt:    l.CreatedAt,
		UpdatedAt:    l.UpdatedAt,
	}
	for _, img := range images {
		resp.Images = append(resp.Images, h.svc.AssetURL(img.Asset))
	}
	return resp
}

func parseID(c *gin.Context, name string) (int64, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// parsePrice rejects malformed and negative prices up front instead of
// coercing them.
func parsePrice(c *gin.Context, raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil || price < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "price must be a non-negative number"})
		return 0, false
	}
	return price, true
}

func parseListQuery(c *gin.Context) (repo.ListingFilter, bool) {
	var f repo.ListingFilter

	if raw := c.Query("priceMax"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "priceMax must be a non-negative number"})
			return f, false
		}
		f.PriceMax = &v
	}

	rawPage := c.Query("page")
	rawSize := c.Query("pageSize")
	if rawPage == "" && rawSize == "" {
		return f, true
	}

	f.Page = 1
	if rawPage != "" {
		v, err := strconv.Atoi(rawPage)
		if err != nil || v < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "page must be a positive integer"})
			return f, false
		}
		f.Page = v
	}
	f.PageSize = defaultPageSize
	if rawSize != "" {
		v, err := strconv.Atoi(rawSize)
		if err != nil || v < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "pageSize must be a positive integer"})
			return f, false
		}
		f.PageSize = v
	}
	return f, true
}

func formValue(form *multipart.Form, key string) string {
	if vs := form.Value[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

func formValuePtr(form *multipart.Form, key string) *string {
	if vs, ok := form.Value[key]; ok && len(vs) > 0 {
		return &vs[0]
	}
	return nil
}

func openUploads(form *multipart.Form) (*service.Upload, []service.Upload, []multipart.File, error) {
	var closers []multipart.File

	var cover *service.Upload
	if fhs := form.File["cover"]; len(fhs) > 0 {
		f, err := fhs[0].Open()
		if err != nil {
			closeAll(closers)
			return nil, nil, nil, err
		}
		closers = append(closers, f)
		cover = &service.Upload{Name: fhs[0].Filename, Data: f}
	}

	var images []service.Upload
	for _, fh := range form.File["images"] {
		f, err := fh.Open()
		if err != nil {
			closeAll(closers)
			return nil, nil, nil, err
		}
		closers = append(closers, f)
		images = append(images, service.Upload{Name: fh.Filename, Data: f})
	}
	return cover, images, closers, nil
}

func closeAll(files []multipart.File) {
	for _, f := range files {
		_ = f.Close()
	}
}
