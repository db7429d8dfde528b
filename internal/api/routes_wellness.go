package api

import (
	"github.com/gin-gonic/gin"

	"github.com/welltrack/welltrack-api/internal/handlers"
)

func registerWellnessRoutes(api *gin.RouterGroup, handler *handlers.WellnessHandler) {
	hydration := api.Group("/hydration")
	{
		hydration.GET("", handler.ListHydration)
		hydration.POST("", handler.CreateHydration)
		hydration.GET("/:id", handler.GetHydration)
		hydration.PUT("/:id", handler.UpdateHydration)
		hydration.DELETE("/:id", handler.DeleteHydration)
	}

	steps := api.Group("/steps")
	{
		steps.GET("", handler.ListSteps)
		steps.POST("", handler.CreateSteps)
		steps.GET("/:id", handler.GetSteps)
		steps.PUT("/:id", handler.UpdateSteps)
		steps.DELETE("/:id", handler.DeleteSteps)
	}

	sleep := api.Group("/sleep")
	{
		sleep.GET("", handler.ListSleep)
		sleep.POST("", handler.CreateSleep)
		sleep.GET("/:id", handler.GetSleep)
		sleep.PUT("/:id", handler.UpdateSleep)
		sleep.DELETE("/:id", handler.DeleteSleep)
	}

	mood := api.Group("/mood")
	{
		mood.GET("", handler.ListMood)
		mood.POST("", handler.CreateMood)
		mood.GET("/:id", handler.GetMood)
		mood.PUT("/:id", handler.UpdateMood)
		mood.DELETE("/:id", handler.DeleteMood)
	}
}
