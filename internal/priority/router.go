package priority

import (
	"carequeue/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupRuleRoutes registers the provider-facing priority rule routes.
func SetupRuleRoutes(rg *gin.RouterGroup, controller *Controller, auth gin.HandlerFunc) {
	rules := rg.Group("/provider/priority-rules")
	rules.Use(auth, middleware.RequireRoles(middleware.RoleProvider, middleware.RoleAdmin))
	{
		rules.POST("", controller.CreateRule)
		rules.GET("", controller.ListRules)
		rules.PUT("/:rule_id", controller.UpdateRule)
		rules.POST("/preview", controller.PreviewEntry)
	}
}
