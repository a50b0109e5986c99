package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/AlvinLandedSpecialist/mydreamhouse-backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAssetRouter(t *testing.T) (*gin.Engine, *storage.DiskStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store, err := storage.NewDiskStore(t.TempDir(), "/assets")
	require.NoError(t, err)
	r := gin.New()
	r.GET("/assets/:name", ServeAsset(store))
	return r, store
}

func TestServeAsset(t *testing.T) {
	r, store := newAssetRouter(t)

	name, err := store.Save(strings.NewReader("png-bytes"), "house.png")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/assets/"+name, nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "png-bytes", w.Body.String())
}

func TestServeAsset_Missing(t *testing.T) {
	r, _ := newAssetRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/assets/no-such-file.png", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServeAsset_TraversalName(t *testing.T) {
	r, _ := newAssetRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/assets/..%2Fconfig.go", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServeAsset_DeletedAssetNoLongerResolvable(t *testing.T) {
	r, store := newAssetRouter(t)

	name, err := store.Save(strings.NewReader("old-cover"), "old.jpg")
	require.NoError(t, err)
	require.NoError(t, store.Delete(name))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/assets/"+name, nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
