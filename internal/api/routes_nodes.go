package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tooltable/internal/handlers"
)

func registerNodeRoutes(api *gin.RouterGroup, svc *Services) error {
	handler, err := handlers.NewNodeHandler(svc.Nodes)
	if err != nil {
		return err
	}

	nodes := api.Group("/nodes")
	{
		nodes.GET("", handler.ListRoots)
		nodes.GET("/tree", handler.Tree)
		nodes.GET("/code/:code", handler.GetByCode)
		nodes.PUT("/reorder", handler.Reorder)
		nodes.GET("/:id", handler.Get)
		nodes.GET("/:id/children", handler.Children)
		nodes.POST("", handler.Create)
		nodes.PUT("/:id", handler.Update)
		nodes.PUT("/:id/move", handler.Move)
		nodes.DELETE("/:id", handler.Delete)
	}
	return nil
}
