package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultAPIBase 是 ChatKit 远端 API 的默认地址。
	DefaultAPIBase = "https://api.openai.com"
	// DefaultScriptURL 是 CDN 上的 ChatKit web component 脚本。
	DefaultScriptURL = "https://cdn.platform.openai.com/deployments/chatkit/chatkit.js"

	defaultAnalyticsOrigin   = "https://browser-intake-datadoghq.com"
	defaultFeatureFlagOrigin = "https://featuregates.org"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server   ServerConfig
	ChatKit  ChatKitConfig
	Cookie   CookieConfig
	Security SecurityConfig
	UI       UIConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	chatkit, err := loadChatKitConfig()
	if err != nil {
		return nil, err
	}

	security, err := loadSecurityConfig(chatkit.ScriptURL, chatkit.APIBase)
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:   server,
		ChatKit:  chatkit,
		Cookie:   loadCookieConfig(),
		Security: security,
		UI:       UIConfig{Path: strings.TrimSpace(os.Getenv("CHATKIT_UI_CONFIG"))},
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	addr, err := ParseAddr(os.Getenv("PORT"))
	if err != nil {
		return ServerConfig{}, err
	}
	return ServerConfig{Addr: addr}, nil
}

// ParseAddr normalises a PORT style value into a listen address.
func ParseAddr(raw string) (string, error) {
	port := strings.TrimSpace(raw)
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return port, nil
	}

	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid PORT value: %q", port)
	}

	return ":" + port, nil
}

// ChatKitConfig 描述远端会话 API 的凭证与地址。
type ChatKitConfig struct {
	APIKey     string
	WorkflowID string
	APIBase    string
	ScriptURL  string
	Timeout    time.Duration
}

// Configured 表示是否提供了创建会话所需的密钥。
func (c ChatKitConfig) Configured() bool {
	return c.APIKey != ""
}

// SessionsURL 返回会话创建端点。
func (c ChatKitConfig) SessionsURL() string {
	return strings.TrimRight(c.APIBase, "/") + "/v1/chatkit/sessions"
}

func loadChatKitConfig() (ChatKitConfig, error) {
	timeout, err := parseOptionalIntEnv("CHATKIT_UPSTREAM_TIMEOUT")
	if err != nil {
		return ChatKitConfig{}, err
	}
	var upstreamTimeout time.Duration
	if timeout != nil {
		if *timeout < 0 {
			return ChatKitConfig{}, fmt.Errorf("invalid CHATKIT_UPSTREAM_TIMEOUT value %d: must not be negative", *timeout)
		}
		upstreamTimeout = time.Duration(*timeout) * time.Second
	}

	apiBase := getEnvOrDefault("CHATKIT_API_BASE", DefaultAPIBase)
	if _, err := parseOrigin(apiBase); err != nil {
		return ChatKitConfig{}, fmt.Errorf("invalid CHATKIT_API_BASE value %q: %w", apiBase, err)
	}

	scriptURL := getEnvOrDefault("CHATKIT_SCRIPT_URL", DefaultScriptURL)
	if _, err := parseOrigin(scriptURL); err != nil {
		return ChatKitConfig{}, fmt.Errorf("invalid CHATKIT_SCRIPT_URL value %q: %w", scriptURL, err)
	}

	workflowID := strings.TrimSpace(os.Getenv("CHATKIT_WORKFLOW_ID"))
	if workflowID == "" {
		workflowID = strings.TrimSpace(os.Getenv("NEXT_PUBLIC_CHATKIT_WORKFLOW_ID"))
	}

	return ChatKitConfig{
		APIKey:     strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		WorkflowID: workflowID,
		APIBase:    apiBase,
		ScriptURL:  scriptURL,
		Timeout:    upstreamTimeout,
	}, nil
}

// CookieConfig 控制匿名用户 cookie 的属性。
type CookieConfig struct {
	Secure bool
}

func loadCookieConfig() CookieConfig {
	env := strings.ToLower(getEnvOrDefault("APP_ENV", "development"))
	return CookieConfig{Secure: env == "production"}
}

// SecurityConfig 描述 CSP 白名单与 CORS 设置。
type SecurityConfig struct {
	WidgetOrigin      string
	APIOrigin         string
	AnalyticsOrigin   string
	FeatureFlagOrigin string
	AllowedOrigins    []string
}

func loadSecurityConfig(scriptURL, apiBase string) (SecurityConfig, error) {
	widgetOrigin, err := parseOrigin(scriptURL)
	if err != nil {
		return SecurityConfig{}, err
	}
	apiOrigin, err := parseOrigin(apiBase)
	if err != nil {
		return SecurityConfig{}, err
	}

	analytics := getEnvOrDefault("CSP_ANALYTICS_ORIGIN", defaultAnalyticsOrigin)
	flags := getEnvOrDefault("CSP_FEATURE_FLAG_ORIGIN", defaultFeatureFlagOrigin)

	return SecurityConfig{
		WidgetOrigin:      widgetOrigin,
		APIOrigin:         apiOrigin,
		AnalyticsOrigin:   analytics,
		FeatureFlagOrigin: flags,
		AllowedOrigins:    normalizeOrigins(parseListEnv("CORS_ALLOWED_ORIGINS")),
	}, nil
}

// UIConfig 指向界面配置文件，为空时使用内置默认值。
type UIConfig struct {
	Path string
}

func parseOrigin(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("absolute URL required")
	}
	return u.Scheme + "://" + u.Host, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// normalizeOrigins 去掉来源末尾的斜杠，浏览器发送的 Origin 不带斜杠
func normalizeOrigins(origins []string) []string {
	for i, o := range origins {
		origins[i] = strings.TrimRight(o, "/")
	}
	return origins
}

func parseListEnv(key string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
