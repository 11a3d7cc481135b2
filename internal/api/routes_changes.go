package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tooltable/internal/handlers"
)

func registerChangeRoutes(api *gin.RouterGroup, svc *Services) error {
	handler, err := handlers.NewChangeLogHandler(svc.Changes)
	if err != nil {
		return err
	}
	api.GET("/changes", handler.List)
	return nil
}
