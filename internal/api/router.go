package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/timmy/personashop/internal/api/handler"
	"github.com/timmy/personashop/internal/api/middleware"
	"github.com/timmy/personashop/internal/logger"
	"github.com/timmy/personashop/internal/service"
)

// Services are the dependencies the HTTP layer exposes.
type Services struct {
	Profiles        *service.ProfileService
	Products        *service.ProductService
	Recommendations *service.RecommendationService
	Wishlist        *service.WishlistService
}

// RouterConfig holds transport settings.
type RouterConfig struct {
	Mode string
	CORS middleware.CORSConfig
	// Verifier authenticates bearer tokens. Nil falls back to the
	// X-User-ID header, for local development only.
	Verifier middleware.TokenVerifier
	DB       handler.Pinger
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(svc Services, cfg RouterConfig, log *logger.Logger) *gin.Engine {
	// Set Gin mode
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	if log == nil {
		log = logger.GetDefault()
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(cfg.CORS))

	healthHandler := handler.NewHealthHandler(cfg.DB)
	templateHandler := handler.NewTemplateHandler()
	profileHandler := handler.NewProfileHandler(svc.Profiles)
	productHandler := handler.NewProductHandler(svc.Products)
	recommendationHandler := handler.NewRecommendationHandler(svc.Recommendations)
	wishlistHandler := handler.NewWishlistHandler(svc.Wishlist)

	r.GET("/health", healthHandler.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	{
		// Public
		v1.GET("/templates", templateHandler.List)
		v1.GET("/templates/:category", templateHandler.Category)
		v1.GET("/templates/:category/:preset", templateHandler.Preset)

		authed := v1.Group("")
		if cfg.Verifier != nil {
			authed.Use(middleware.Auth(cfg.Verifier))
		} else {
			authed.Use(middleware.HeaderIdentity())
		}

		// Profiles
		authed.POST("/profiles", profileHandler.Create)
		authed.GET("/profiles", profileHandler.List)
		authed.GET("/profiles/:id", profileHandler.Get)
		authed.PUT("/profiles/:id", profileHandler.Update)
		authed.DELETE("/profiles/:id", profileHandler.Delete)

		// Catalog
		authed.GET("/products", productHandler.List)
		authed.GET("/products/search", productHandler.Search)
		authed.GET("/products/:id", productHandler.Get)
		authed.GET("/products/:id/key-features", productHandler.KeyFeatures)

		// Recommendations
		authed.POST("/recommendations", recommendationHandler.Generate)
		authed.POST("/recommendations/compare", recommendationHandler.Compare)

		// Wishlist
		authed.GET("/wishlist", wishlistHandler.List)
		authed.POST("/wishlist", wishlistHandler.Add)
		authed.DELETE("/wishlist/:id", wishlistHandler.Remove)
		authed.DELETE("/wishlist/product/:product_id", wishlistHandler.RemoveProduct)
	}

	return r
}
