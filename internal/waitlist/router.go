package waitlist

import (
	"carequeue/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupWaitlistRoutes registers the family-facing entry routes and the provider's entry views.
func SetupWaitlistRoutes(rg *gin.RouterGroup, controller *Controller, auth gin.HandlerFunc) {
	waitlist := rg.Group("/waitlist")
	waitlist.Use(auth)
	{
		waitlist.POST("", middleware.RequireRoles(middleware.RoleParent), controller.JoinWaitlist)
		waitlist.GET("/mine", middleware.RequireRoles(middleware.RoleParent), controller.MyEntries)

		entries := waitlist.Group("/entries/:entry_id")
		entries.Use(middleware.RequireRoles(middleware.RoleParent, middleware.RoleProvider, middleware.RoleAdmin))
		{
			entries.GET("", controller.GetEntryStatus)
			entries.POST("/pause", controller.PauseEntry)
			entries.POST("/resume", controller.ResumeEntry)
			entries.POST("/withdraw", controller.WithdrawEntry)
		}
	}

	provider := rg.Group("/provider/waitlist")
	provider.Use(auth, middleware.RequireRoles(middleware.RoleProvider, middleware.RoleAdmin))
	{
		provider.GET("", controller.ListEntries)
		provider.PATCH("/entries/:entry_id", controller.UpdateEntry)
	}
}
