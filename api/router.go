package api

import (
	"github.com/gin-gonic/gin"

	"github.com/SlpAus/multiworld-tracker-backend/internal/auth"
	"github.com/SlpAus/multiworld-tracker-backend/internal/dashboard"
	"github.com/SlpAus/multiworld-tracker-backend/internal/game"
	"github.com/SlpAus/multiworld-tracker-backend/internal/hint"
	"github.com/SlpAus/multiworld-tracker-backend/internal/ratelimit"
	"github.com/SlpAus/multiworld-tracker-backend/internal/refresh"
	"github.com/SlpAus/multiworld-tracker-backend/internal/tracker"
	"github.com/SlpAus/multiworld-tracker-backend/internal/user"
)

// SetupRoutes 注册项目的所有API路由
func SetupRoutes(router *gin.Engine) {
	api := router.Group("/api")
	api.Use(user.LoadUserMiddleware())
	{
		// 登录相关的路由
		authRoutes := api.Group("/auth")
		{
			authRoutes.GET("/discord", auth.BeginDiscordLogin)
			authRoutes.GET("/discord/complete", auth.CompleteDiscordLogin)
		}

		// 房间相关的路由，变更接口都挂IP频率限制
		limited := ratelimit.MutationLimiter()
		trackerRoutes := api.Group("/tracker")
		{
			trackerRoutes.POST("", limited, refresh.CreateTrackerHandler)
			trackerRoutes.GET("/:tracker_id", refresh.GetTrackerHandler)
			trackerRoutes.PUT("/:tracker_id", limited, tracker.UpdateSettingsHandler)
			trackerRoutes.PUT("/:tracker_id/game/:game_id", limited, game.UpdateGameHandler)
			trackerRoutes.PUT("/:tracker_id/hint/:hint_id", limited, hint.UpdateClassificationHandler)
		}

		// 用户自助路由，全部要求登录
		userRoutes := api.Group("/user/self", user.RequireUserMiddleware())
		{
			userRoutes.GET("", user.GetSelf)
			userRoutes.GET("/settings", user.GetSettings)
			userRoutes.PUT("/settings", limited, user.PutSettings)
			userRoutes.GET("/api_key", user.GetAPIKey)
			userRoutes.POST("/api_key", limited, user.ResetAPIKeyHandler)
			userRoutes.DELETE("/api_key", limited, user.ClearAPIKeyHandler)
		}

		// 仪表盘路由，全部要求登录
		dashboardRoutes := api.Group("/dashboard", user.RequireUserMiddleware())
		{
			dashboardRoutes.GET("/tracker", dashboard.ListTrackersHandler)
			dashboardRoutes.GET("/tracker/:tracker_id/override", dashboard.GetOverrideHandler)
			dashboardRoutes.PUT("/tracker/:tracker_id/override", limited, dashboard.PutOverrideHandler)
			dashboardRoutes.DELETE("/tracker/:tracker_id/override", limited, dashboard.DeleteOverrideHandler)
		}
	}
}
