package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tooltable/internal/handlers"
)

func registerIconRoutes(api *gin.RouterGroup, svc *Services) error {
	handler, err := handlers.NewIconHandler(svc.Icons)
	if err != nil {
		return err
	}

	icons := api.Group("/icons")
	{
		icons.GET("", handler.List)
		icons.POST("", handler.Upload)
		icons.PUT("/:filename", handler.Rename)
		icons.DELETE("/:filename", handler.Delete)
	}
	return nil
}
