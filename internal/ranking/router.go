package ranking

import (
	"carequeue/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupRankingRoutes(rg *gin.RouterGroup, controller *Controller, auth gin.HandlerFunc) {
	provider := rg.Group("/provider/waitlist")
	provider.Use(auth, middleware.RequireRoles(middleware.RoleProvider, middleware.RoleAdmin))
	{
		provider.POST("/recalculate", controller.Recalculate)
	}
}
