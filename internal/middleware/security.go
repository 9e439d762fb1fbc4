package middleware

import (
	"net/http"
	"strings"

	"github.com/zhouzirui/z-chatkit/backend/internal/config"
)

// ContentSecurityPolicy 根据配置的来源生成静态 CSP 策略。
// 除本站外只放行组件 CDN、ChatKit API、统计与功能开关服务。
func ContentSecurityPolicy(cfg config.SecurityConfig) string {
	join := func(sources ...string) string {
		out := make([]string, 0, len(sources))
		seen := make(map[string]bool, len(sources))
		for _, s := range sources {
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
		return strings.Join(out, " ")
	}

	directives := []string{
		"default-src 'self'",
		"script-src " + join("'self'", cfg.WidgetOrigin, cfg.AnalyticsOrigin),
		"style-src " + join("'self'", "'unsafe-inline'", cfg.WidgetOrigin),
		"connect-src " + join("'self'", cfg.WidgetOrigin, cfg.APIOrigin, cfg.AnalyticsOrigin, cfg.FeatureFlagOrigin),
		"frame-src " + join("'self'", cfg.WidgetOrigin),
		"img-src 'self' data: blob: https:",
		"font-src " + join("'self'", "data:", cfg.WidgetOrigin),
		"object-src 'none'",
		"base-uri 'self'",
		"frame-ancestors 'none'",
	}
	return strings.Join(directives, "; ")
}

// SecurityHeaders 为所有响应添加 CSP 及相关安全头
func SecurityHeaders(cfg config.SecurityConfig) func(http.Handler) http.Handler {
	policy := ContentSecurityPolicy(cfg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Content-Security-Policy", policy)
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			next.ServeHTTP(w, r)
		})
	}
}
