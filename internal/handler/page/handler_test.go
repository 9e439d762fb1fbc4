package page

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/z-chatkit/backend/internal/model/ui"
)

func setupRouter(t *testing.T, cfg ui.Config) *chi.Mux {
	t.Helper()
	h, err := New(ui.NewMemoryStore(cfg), Options{
		ScriptURL:          "https://cdn.platform.openai.com/deployments/chatkit/chatkit.js",
		SessionEndpoint:    "/api/create-session",
		WorkflowConfigured: true,
	})
	require.NoError(t, err)

	r := chi.NewRouter()
	h.RegisterRoutes(r)
	r.Route("/api", h.RegisterAPIRoutes)
	return r
}

func TestIndexRendersWidgetHost(t *testing.T) {
	cfg := ui.Default()
	cfg.Greeting = "Hi </script><script>alert(1)</script>"
	r := setupRouter(t, cfg)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `src="https://cdn.platform.openai.com/deployments/chatkit/chatkit.js"`)
	assert.Contains(t, body, `/static/chatkit-panel.js`)
	assert.Contains(t, body, `"sessionEndpoint":"/api/create-session"`)
	assert.Contains(t, body, `"workflowConfigured":true`)
	assert.NotContains(t, body, "<script>alert(1)</script>")
	assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
}

func TestIndexBootstrapIsValidJSON(t *testing.T) {
	r := setupRouter(t, ui.Default())

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	body := rr.Body.String()
	start := strings.Index(body, `id="chatkit-bootstrap">`)
	require.NotEqual(t, -1, start)
	rest := body[start+len(`id="chatkit-bootstrap">`):]
	end := strings.Index(rest, "</script>")
	require.NotEqual(t, -1, end)

	var boot Bootstrap
	require.NoError(t, json.Unmarshal([]byte(rest[:end]), &boot))
	assert.Equal(t, "How can I help you today?", boot.UI.Greeting)
	assert.Equal(t, "#f1f5f9", boot.Themes["dark"].Color.Accent.Primary)
	assert.Equal(t, "#0f172a", boot.Themes["light"].Color.Accent.Primary)
}

func TestStaticAssetsServed(t *testing.T) {
	r := setupRouter(t, ui.Default())

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/static/chatkit-panel.js", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "openai-chatkit")
}

func TestIndexHasHiddenLoadingIndicator(t *testing.T) {
	r := setupRouter(t, ui.Default())

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `id="chatkit-loading" role="status" aria-live="polite" hidden`)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/static/chatkit-panel.js", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	script := rr.Body.String()
	assert.Contains(t, script, `getElementById("chatkit-loading")`)
	assert.Contains(t, script, "setLoading(true)")
	assert.Contains(t, script, "setLoading(false)")
}

func TestPanelScriptTracksRetryPerError(t *testing.T) {
	r := setupRouter(t, ui.Default())

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/static/chatkit-panel.js", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	script := rr.Body.String()
	assert.Contains(t, script, "errors.script ? errors.scriptRetryable : errors.sessionRetryable")
	assert.Contains(t, script, "err.retryable = false")
	assert.NotContains(t, script, "state.errors.retryable")
}

func TestUIConfigEndpoint(t *testing.T) {
	r := setupRouter(t, ui.Default())

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/ui-config?scheme=dark", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Config ui.Config `json:"config"`
		Theme  ui.Theme  `json:"theme"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "Ask anything...", body.Config.PlaceholderInput)
	assert.Equal(t, ui.Dark, body.Theme.ColorScheme)
	assert.Equal(t, -1, body.Theme.Color.Grayscale.Shade)
}

func TestUIConfigRejectsUnknownScheme(t *testing.T) {
	r := setupRouter(t, ui.Default())

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/ui-config?scheme=sepia", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
