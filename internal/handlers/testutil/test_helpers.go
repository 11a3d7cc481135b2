package testutil

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/tooltable/internal/api"
	"github.com/charlesng35/tooltable/internal/app"
	sharedtestutil "github.com/charlesng35/tooltable/internal/database/testutil"
	"github.com/charlesng35/tooltable/internal/monitoring"
	"github.com/charlesng35/tooltable/internal/monitoring/checks"
	"github.com/charlesng35/tooltable/pkg/response"
)

// Env encapsulates a fully-wired API instance backed by an in-memory database
// and in-memory filesystems for handler tests.
type Env struct {
	T        *testing.T
	DB       *gorm.DB
	Router   *gin.Engine
	Services *api.Services
	IconFS   afero.Fs
	StaticFS afero.Fs
}

// NewEnv provisions a fresh handler test environment with migrations applied.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithAutoMigrate())

	cfg := &app.Config{
		Server: app.ServerConfig{
			Port: 8000,
			CORS: app.CORSConfig{AllowedOrigins: []string{"*"}},
		},
		Icons:  app.IconConfig{MaxBytes: 1 << 10},
		Search: app.SearchConfig{DefaultLimit: 50, MaxLimit: 200},
		Nodes:  app.NodeConfig{CodeRetries: 5},
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
			Health:     app.HealthConfig{Enabled: true},
		},
	}

	iconFS := afero.NewMemMapFs()
	staticFS := afero.NewMemMapFs()

	svc, err := api.NewServices(db, cfg, iconFS)
	require.NoError(t, err)

	mon, err := monitoring.NewModule(monitoring.Options{Gatherer: prometheus.NewRegistry()})
	require.NoError(t, err)
	mon.Health().RegisterReadiness(checks.Database(db, time.Second))
	mon.Health().RegisterReadiness(checks.IconStore(iconFS))

	router, err := api.NewRouter(cfg, api.Dependencies{
		Services:   svc,
		Monitoring: mon,
		StaticFS:   staticFS,
	})
	require.NoError(t, err)

	return &Env{
		T:        t,
		DB:       db,
		Router:   router,
		Services: svc,
		IconFS:   iconFS,
		StaticFS: staticFS,
	}
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router. body is JSON
// encoded unless it is a string, which is sent verbatim.
func (e *Env) Request(method, path string, body any) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf *bytes.Buffer
	switch v := body.(type) {
	case nil:
		buf = bytes.NewBuffer(nil)
	case string:
		buf = bytes.NewBufferString(v)
	default:
		data, err := json.Marshal(v)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

// Upload posts a single multipart file under field.
func (e *Env) Upload(path, field, filename string, content []byte) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(e.T, err)
	_, err = part.Write(content)
	require.NoError(e.T, err)
	require.NoError(e.T, writer.Close())

	req, err := http.NewRequest(http.MethodPost, path, &buf)
	require.NoError(e.T, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

// MustSucceed asserts the status code and a successful envelope, decoding data into dest when non-nil.
func MustSucceed[T any](t *testing.T, w *httptest.ResponseRecorder, status int, dest *T) APIResponse {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	resp := DecodeResponse(t, w)
	require.True(t, resp.Success, w.Body.String())
	if dest != nil {
		DecodeInto(t, resp.Data, dest)
	}
	return resp
}

// MustFail asserts the status code and the error code of a failed envelope.
func MustFail(t *testing.T, w *httptest.ResponseRecorder, status int, code string) APIResponse {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	resp := DecodeResponse(t, w)
	require.False(t, resp.Success, w.Body.String())
	require.NotNil(t, resp.Error)
	require.Equal(t, code, resp.Error.Code)
	return resp
}
