package campaigns

import (
	"carequeue/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupCampaignRoutes(rg *gin.RouterGroup, controller *Controller, auth gin.HandlerFunc) {
	campaigns := rg.Group("/provider/campaigns")
	campaigns.Use(auth, middleware.RequireRoles(middleware.RoleProvider, middleware.RoleAdmin))
	{
		campaigns.POST("", controller.CreateCampaign)
		campaigns.GET("", controller.ListCampaigns)
		campaigns.GET("/:campaign_id", controller.GetCampaign)
		campaigns.POST("/:campaign_id/execute", controller.ExecuteCampaign)
		campaigns.POST("/:campaign_id/cancel", controller.CancelCampaign)
	}

	offers := rg.Group("/offers")
	offers.Use(auth, middleware.RequireRoles(middleware.RoleParent, middleware.RoleProvider, middleware.RoleAdmin))
	{
		offers.POST("/:offer_id/respond", controller.RespondToOffer)
	}
}
