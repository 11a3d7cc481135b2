package api

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"

	"github.com/charlesng35/tooltable/internal/handlers"
)

func registerStaticRoutes(r *gin.Engine, fs afero.Fs) error {
	handler, err := handlers.NewStaticHandler(fs)
	if err != nil {
		return err
	}

	r.GET("/", handler.Index)
	r.GET("/resource/*filepath", handler.Dir("resource"))
	r.GET("/fonts/*filepath", handler.Dir("fonts"))

	// top-level .css and .js files; everything else falls through to a JSON 404
	r.NoRoute(handler.RootAsset)
	return nil
}
