package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/z-chatkit/backend/internal/config"
	"github.com/zhouzirui/z-chatkit/backend/internal/metrics"
	"github.com/zhouzirui/z-chatkit/backend/internal/model/session"
	"github.com/zhouzirui/z-chatkit/backend/internal/service/chatkit"
	sessionService "github.com/zhouzirui/z-chatkit/backend/internal/service/session"
	"github.com/zhouzirui/z-chatkit/backend/pkg/utils"
)

const (
	// CookieName 是匿名用户标识 cookie 的名称。
	CookieName = "chatkit_session_id"
	// CookieMaxAge 是匿名用户标识的有效期。
	CookieMaxAge = 30 * 24 * time.Hour

	maxBodyBytes = 64 << 10
)

// Broker 抽象会话创建逻辑，便于测试与替换实现
type Broker interface {
	Create(ctx context.Context, req session.CreateRequest, userID string) (*session.UpstreamSession, error)
}

// Handler 会话代理的HTTP处理器
type Handler struct {
	broker       Broker
	secureCookie bool
	metrics      *metrics.Broker
}

// New 创建会话处理器
func New(broker Broker, cookie config.CookieConfig, m *metrics.Broker) *Handler {
	return &Handler{
		broker:       broker,
		secureCookie: cookie.Secure,
		metrics:      m,
	}
}

// RegisterRoutes 注册会话相关的路由。所有方法都进入处理器，以便返回统一的 405 响应。
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.HandleFunc("/create-session", h.handleCreateSession)
}

// handleCreateSession 创建会话并下发匿名用户 cookie
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		utils.RespondError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}

	payload, err := decodeBody(r)
	if errors.Is(err, errBodyTooLarge) {
		utils.RespondError(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return
	}

	var existing string
	if cookie, err := r.Cookie(CookieName); err == nil {
		existing = cookie.Value
	}
	userID, generated := sessionService.ResolveUserID(existing)

	created, err := h.broker.Create(r.Context(), payload, userID)
	if err != nil {
		h.respondBrokerError(w, err)
		return
	}

	if generated {
		h.metrics.IdentityIssued()
	}
	h.setIdentityCookie(w, userID)

	utils.RespondJSON(w, http.StatusOK, session.CreateResponse{
		ClientSecret: created.ClientSecret,
		ExpiresAfter: created.ExpiresAfter,
	})
}

var errBodyTooLarge = errors.New("request body exceeds limit")

// decodeBody 解析可选的请求体，缺失或格式错误时按空对象处理。
// 超过 maxBodyBytes 的请求体返回 errBodyTooLarge，不做截断解析。
func decodeBody(r *http.Request) (session.CreateRequest, error) {
	var payload session.CreateRequest
	if r.Body == nil {
		return payload, nil
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		log.Printf("[session] failed to read request body: %v", err)
		return payload, nil
	}
	if len(raw) > maxBodyBytes {
		log.Printf("[session] rejecting request body over %d bytes", maxBodyBytes)
		return payload, errBodyTooLarge
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return payload, nil
	}

	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Printf("[session] ignoring unparsable request body: %v", err)
		return session.CreateRequest{}, nil
	}
	return payload, nil
}

func (h *Handler) respondBrokerError(w http.ResponseWriter, err error) {
	var upstream *chatkit.UpstreamError

	switch {
	case errors.Is(err, chatkit.ErrMissingAPIKey):
		log.Printf("[session] configuration error: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "Missing OPENAI_API_KEY environment variable")
	case errors.Is(err, sessionService.ErrMissingWorkflow):
		utils.RespondError(w, http.StatusBadRequest, "Missing workflow id")
	case errors.Is(err, sessionService.ErrPlaceholderWorkflow):
		utils.RespondError(w, http.StatusBadRequest, "Workflow id is a placeholder; set CHATKIT_WORKFLOW_ID to a real workflow")
	case errors.As(err, &upstream):
		log.Printf("[session] upstream error status=%d: %s", upstream.Status, upstream.Message)
		utils.RespondErrorDetails(w, upstreamStatus(upstream.Status), upstream.Message, upstream.Details)
	default:
		log.Printf("[session] unexpected error: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "Unexpected error")
	}
}

func upstreamStatus(status int) int {
	if status < 400 || status > 599 {
		return http.StatusBadGateway
	}
	return status
}

// setIdentityCookie 写入（或刷新）匿名用户标识 cookie
func (h *Handler) setIdentityCookie(w http.ResponseWriter, userID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    userID,
		Path:     "/",
		MaxAge:   int(CookieMaxAge / time.Second),
		Expires:  time.Now().Add(CookieMaxAge),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
