package offers

import (
	"carequeue/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupOfferRoutes(rg *gin.RouterGroup, controller *Controller, auth gin.HandlerFunc) {
	provider := rg.Group("/provider")
	provider.Use(auth, middleware.RequireRoles(middleware.RoleProvider, middleware.RoleAdmin))
	{
		provider.GET("/waitlist/candidates", controller.ListCandidates)
		provider.POST("/offers", controller.CreateOffer)
	}

	offers := rg.Group("/offers")
	offers.Use(auth)
	{
		offers.GET("/:offer_id", controller.GetOffer)
	}

	admin := rg.Group("/admin/offers")
	admin.Use(auth, middleware.RequireRoles(middleware.RoleAdmin))
	{
		admin.POST("/cleanup", controller.CleanupExpired)
		admin.POST("/reminders", controller.SendReminders)
	}
}
