package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tooltable/internal/handlers"
)

func registerSearchRoutes(api *gin.RouterGroup, svc *Services) error {
	handler, err := handlers.NewSearchHandler(svc.Search)
	if err != nil {
		return err
	}
	api.GET("/search", handler.Search)
	return nil
}
