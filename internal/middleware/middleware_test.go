package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zhouzirui/z-chatkit/backend/internal/config"
)

func testSecurityConfig() config.SecurityConfig {
	return config.SecurityConfig{
		WidgetOrigin:      "https://cdn.platform.openai.com",
		APIOrigin:         "https://api.openai.com",
		AnalyticsOrigin:   "https://analytics.example",
		FeatureFlagOrigin: "https://flags.example",
	}
}

func TestContentSecurityPolicyAllowlist(t *testing.T) {
	policy := ContentSecurityPolicy(testSecurityConfig())

	assert.Contains(t, policy, "default-src 'self'")
	assert.Contains(t, policy, "script-src 'self' https://cdn.platform.openai.com https://analytics.example;")
	assert.Contains(t, policy, "connect-src 'self' https://cdn.platform.openai.com https://api.openai.com https://analytics.example https://flags.example;")
	assert.Contains(t, policy, "object-src 'none'")
	assert.NotContains(t, policy, "  ")
}

func TestContentSecurityPolicySkipsEmptyAndDuplicateSources(t *testing.T) {
	cfg := testSecurityConfig()
	cfg.AnalyticsOrigin = ""
	cfg.APIOrigin = cfg.WidgetOrigin

	policy := ContentSecurityPolicy(cfg)
	assert.Contains(t, policy, "connect-src 'self' https://cdn.platform.openai.com https://flags.example;")
	assert.Equal(t, 1, strings.Count(policy, "script-src 'self' https://cdn.platform.openai.com;"))
}

func TestSecurityHeadersAppliedToEveryResponse(t *testing.T) {
	h := SecurityHeaders(testSecurityConfig())(http.NotFoundHandler())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/missing", nil))

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Content-Security-Policy"))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
}
