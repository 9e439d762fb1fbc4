// Package client 以浏览器页面相同的方式通过 HTTP 调用会话代理，并在调用间保留身份 cookie。
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/zhouzirui/z-chatkit/backend/internal/model/session"
)

const (
	defaultTimeout  = 15 * time.Second
	sessionPath     = "/api/create-session"
	maxResponseBody = 1 << 20
)

// Error 会话代理返回的非 2xx 响应
type Error struct {
	Status  int
	Message string
	Details json.RawMessage
}

func (e *Error) Error() string {
	return fmt.Sprintf("broker returned %d: %s", e.Status, e.Message)
}

// Client 会话代理的HTTP客户端
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option 客户端配置项
type Option func(*Client)

// WithHTTPClient replaces the underlying client. Its Jar is kept as given.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New 创建指向 baseURL 的客户端，并使用独立的 cookie jar
func New(baseURL string, opts ...Option) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout, Jar: jar},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// CreateSession 向会话代理申请会话凭证
func (c *Client) CreateSession(ctx context.Context, req session.CreateRequest) (*session.CreateResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+sessionPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call broker: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var payload session.ErrorResponse
		_ = json.Unmarshal(raw, &payload)
		msg := payload.Error
		if msg == "" {
			msg = "Failed to create session: " + http.StatusText(resp.StatusCode)
		}
		return nil, &Error{Status: resp.StatusCode, Message: msg, Details: payload.Details}
	}

	var out session.CreateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if out.ClientSecret == "" {
		return nil, &Error{Status: resp.StatusCode, Message: "Missing client secret in response"}
	}
	return &out, nil
}

// Cookies 返回 jar 中保存的会话代理 cookie
func (c *Client) Cookies() []*http.Cookie {
	if c.httpClient.Jar == nil {
		return nil
	}
	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return nil
	}
	return c.httpClient.Jar.Cookies(req.URL)
}
