package routes

import (
	"net/http"
	"time"

	"carequeue/internal/audit"
	"carequeue/internal/campaigns"
	"carequeue/internal/capacity"
	"carequeue/internal/offers"
	"carequeue/internal/priority"
	"carequeue/internal/ranking"
	"carequeue/internal/shared/config"
	"carequeue/internal/shared/database"
	"carequeue/internal/shared/middleware"
	"carequeue/internal/waitlist"

	"github.com/gin-gonic/gin"
)

// Router holds all route dependencies
type Router struct {
	config   *config.Config
	db       *database.DB
	services *Services
	auth     gin.HandlerFunc
}

// NewRouter creates a new router instance
func NewRouter(cfg *config.Config, db *database.DB, services *Services) *Router {
	return &Router{
		config:   cfg,
		db:       db,
		services: services,
		auth:     middleware.JWTAuthWithConfig(cfg),
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	r.setupHealthRoutes(engine)

	api := engine.Group(r.config.GetAPIBasePath())
	{
		waitlist.SetupWaitlistRoutes(api, waitlist.NewController(r.services.Waitlist), r.auth)
		priority.SetupRuleRoutes(api, priority.NewController(r.services.Priority), r.auth)
		ranking.SetupRankingRoutes(api, ranking.NewController(r.services.Ranking), r.auth)
		capacity.SetupCapacityRoutes(api, capacity.NewController(r.services.Capacity), r.auth)
		offers.SetupOfferRoutes(api, offers.NewController(r.services.Offers), r.auth)
		campaigns.SetupCampaignRoutes(api, campaigns.NewController(r.services.Campaigns, r.services.Offers), r.auth)
		audit.SetupAuditRoutes(api, audit.NewController(r.services.Recorder), r.auth)
	}
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "carequeue",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "carequeue",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "operational",
			"api_version": r.config.APIVersion,
			"timestamp":   time.Now(),
		})
	})
}
