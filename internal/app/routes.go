package app

import (
	"github.com/AlvinLandedSpecialist/mydreamhouse-backend/internal/auth"
	"github.com/AlvinLandedSpecialist/mydreamhouse-backend/internal/cache"
	"github.com/AlvinLandedSpecialist/mydreamhouse-backend/internal/config"
	"github.com/AlvinLandedSpecialist/mydreamhouse-backend/internal/handlers"
	"github.com/AlvinLandedSpecialist/mydreamhouse-backend/internal/repo"
	"github.com/AlvinLandedSpecialist/mydreamhouse-backend/internal/service"
	"github.com/AlvinLandedSpecialist/mydreamhouse-backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Setup registers all routes on the given engine.
func Setup(r *gin.Engine, cfg config.Config, db *pgxpool.Pool, rdb *redis.Client, store *storage.DiskStore) {
	r.GET("/", rootHandler(cfg))
	r.GET("/health", healthHandler(cfg))
	r.GET("/version", versionHandler(cfg))

	r.GET(cfg.Storage.BaseURL+"/:name", handlers.ServeAsset(store))

	secret := []byte(cfg.Auth.JWTSecret)

	userRepo := repo.NewPGUserRepo(db)
	userSvc := service.NewUserService(userRepo, secret, cfg.Auth.TokenTTL.Duration())
	authHandler := handlers.NewAuthHandler(userSvc)
	r.POST("/register", authHandler.Register)
	r.POST("/login", authHandler.Login)

	listingRepo := repo.NewPGListingRepo(db)
	feedCache := cache.NewListingCache(rdb, cfg.Redis.DefaultTTL.Duration())
	listingSvc := service.NewListingService(listingRepo, store, feedCache, cfg.Storage.MaxImagesPerUpload)
	listingHandler := handlers.NewListingHandler(listingSvc)

	r.GET("/listings", listingHandler.List)
	r.GET("/listings/:id", listingHandler.GetByID)

	protected := r.Group("", auth.RequireToken(secret))
	protected.POST("/listings", listingHandler.Create)
	protected.PUT("/listings/:id", listingHandler.Update)
	protected.DELETE("/listings/:id", listingHandler.Delete)
	protected.POST("/listings/:id/images", listingHandler.UploadImages)
}

func rootHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(200, gin.H{
			"service": "Dreamhouse API",
			"version": cfg.App.Version,
			"env":     cfg.App.Env,
			"health":  "/health",
			"assets":  cfg.Storage.BaseURL,
		})
	}
}

func healthHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true, "env": cfg.App.Env})
	}
}

func versionHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(200, gin.H{"version": cfg.App.Version})
	}
}
