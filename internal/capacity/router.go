package capacity

import (
	"carequeue/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupCapacityRoutes(rg *gin.RouterGroup, controller *Controller, auth gin.HandlerFunc) {
	provider := rg.Group("/provider/capacity")
	provider.Use(auth, middleware.RequireRoles(middleware.RoleProvider, middleware.RoleAdmin))
	{
		provider.GET("", controller.CheckCapacity)
		provider.PUT("", controller.SetCapacity)
	}
}
