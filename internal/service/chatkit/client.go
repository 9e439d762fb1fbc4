package chatkit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/zhouzirui/z-chatkit/backend/internal/config"
	"github.com/zhouzirui/z-chatkit/backend/internal/model/session"
)

const (
	// BetaHeader 标记 beta 会话 API 的请求头
	BetaHeader = "OpenAI-Beta"
	// BetaValue BetaHeader 的取值
	BetaValue = "chatkit_beta=v1"

	maxResponseBytes = 1 << 20
)

// HTTPClient 客户端所需的 *http.Client 子集
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client 调用远端 ChatKit API 创建会话
type Client struct {
	cfg        config.ChatKitConfig
	httpClient HTTPClient
}

// Option 客户端配置项
type Option func(*Client)

// WithHTTPClient 替换出站请求使用的 HTTP 客户端
func WithHTTPClient(hc HTTPClient) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient 创建 ChatKit API 客户端
func NewClient(cfg config.ChatKitConfig, opts ...Option) *Client {
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured 报告是否配置了密钥
func (c *Client) Configured() bool {
	return strings.TrimSpace(c.cfg.APIKey) != ""
}

// CreateSession 发起一次 POST 创建会话。
// 非 2xx 响应与网络错误均以 *UpstreamError 返回。
func (c *Client) CreateSession(ctx context.Context, req session.UpstreamRequest) (*session.UpstreamSession, error) {
	apiKey, endpoint, err := resolveCredentials(c.cfg)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode session request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build session request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	httpReq.Header.Set(BetaHeader, BetaValue)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		log.Printf("[chatkit] session request failed: %v", err)
		return nil, &UpstreamError{
			Status:  http.StatusBadGateway,
			Message: "Failed to reach ChatKit API",
			Err:     err,
		}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &UpstreamError{
			Status:  http.StatusBadGateway,
			Message: "Failed to read ChatKit API response",
			Err:     err,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newUpstreamError(resp, raw)
	}

	var created session.UpstreamSession
	if err := json.Unmarshal(raw, &created); err != nil {
		return nil, &UpstreamError{
			Status:  http.StatusBadGateway,
			Message: "Invalid response from ChatKit API",
			Err:     err,
		}
	}
	if created.ClientSecret == "" {
		return nil, &UpstreamError{
			Status:  http.StatusBadGateway,
			Message: "Missing client secret in response",
			Details: validJSON(raw),
		}
	}

	return &created, nil
}
