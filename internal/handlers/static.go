package handlers

import (
	"errors"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"

	appErrors "github.com/charlesng35/tooltable/pkg/errors"
	"github.com/charlesng35/tooltable/pkg/response"
)

// StaticHandler serves the portal pages and assets from a filesystem rooted
// at the static directory.
type StaticHandler struct {
	fs afero.Fs
}

// NewStaticHandler constructs a StaticHandler.
func NewStaticHandler(fs afero.Fs) (*StaticHandler, error) {
	if fs == nil {
		return nil, errors.New("static handler: filesystem is required")
	}
	return &StaticHandler{fs: fs}, nil
}

// Index serves index.html.
func (h *StaticHandler) Index(c *gin.Context) {
	h.serve(c, "index.html")
}

// Dir returns a handler serving files below dir, e.g. /resource/*filepath.
func (h *StaticHandler) Dir(dir string) gin.HandlerFunc {
	prefix := "/" + strings.Trim(dir, "/") + "/"
	return func(c *gin.Context) {
		rel := c.Param("filepath")
		name := path.Clean(prefix + rel)
		if strings.Contains(rel, "..") || !strings.HasPrefix(name, prefix) {
			response.Error(c, appErrors.NewNotFound("File not found"))
			return
		}
		h.serve(c, name)
	}
}

// RootAsset serves top-level .css and .js files; anything else is a 404.
func (h *StaticHandler) RootAsset(c *gin.Context) {
	name := strings.TrimPrefix(c.Request.URL.Path, "/")
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		response.Error(c, appErrors.NewNotFound("route "+c.Request.URL.Path+" not found"))
		return
	}
	if strings.Contains(name, "/") || !isRootAsset(name) {
		response.Error(c, appErrors.NewNotFound("route "+c.Request.URL.Path+" not found"))
		return
	}
	h.serve(c, name)
}

func isRootAsset(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	return (ext == ".css" || ext == ".js") && len(name) > len(ext)
}

func (h *StaticHandler) serve(c *gin.Context, name string) {
	clean := path.Clean("/" + name)
	if strings.Contains(name, "..") {
		response.Error(c, appErrors.NewNotFound("File not found"))
		return
	}

	info, err := h.fs.Stat(clean)
	if err != nil || info.IsDir() {
		response.Error(c, appErrors.NewNotFound("File not found"))
		return
	}

	file, err := h.fs.Open(clean)
	if err != nil {
		response.Error(c, appErrors.NewNotFound("File not found"))
		return
	}
	defer file.Close()

	http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), file)
}
