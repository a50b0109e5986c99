package handlers

import (
	"net/http"
	"path/filepath"

	"github.com/AlvinLandedSpecialist/mydreamhouse-backend/internal/storage"

	"github.com/gin-gonic/gin"
)

// ServeAsset streams a stored asset by name. Unknown names and anything
// that could escape the storage root get a 404.
func ServeAsset(store *storage.DiskStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")
		if !storage.ValidName(name) || !store.Exists(name) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.File(filepath.Join(store.Root(), name))
	}
}
