package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tooltable/internal/handlers"
)

func registerAuthLinkRoutes(api *gin.RouterGroup, svc *Services) error {
	handler, err := handlers.NewAuthLinkHandler(svc.AuthLinks)
	if err != nil {
		return err
	}

	links := api.Group("/auth-links")
	{
		links.GET("", handler.ListGrouped)
		links.GET("/all", handler.ListAll)
		links.GET("/regions/list", handler.Regions)
		links.GET("/:id", handler.Get)
		links.POST("", handler.Create)
		links.PUT("/:id", handler.Update)
		links.DELETE("/:id", handler.Delete)
	}
	return nil
}
