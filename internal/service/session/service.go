package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/zhouzirui/z-chatkit/backend/internal/metrics"
	"github.com/zhouzirui/z-chatkit/backend/internal/model/session"
	"github.com/zhouzirui/z-chatkit/backend/internal/service/chatkit"
)

var (
	ErrMissingWorkflow     = errors.New("missing workflow id")
	ErrPlaceholderWorkflow = errors.New("workflow id is a placeholder")
)

// placeholderPrefixes 环境变量模板中的示例工作流 ID 前缀
var placeholderPrefixes = []string{"wf_replace", "wf_placeholder", "wf_your"}

// Upstream 调用远端 API 创建会话
type Upstream interface {
	Configured() bool
	CreateSession(ctx context.Context, req session.UpstreamRequest) (*session.UpstreamSession, error)
}

// Service 会话代理服务，不保存请求间状态
type Service struct {
	upstream        Upstream
	defaultWorkflow string
	metrics         *metrics.Broker
}

// NewService 创建会话代理服务，m 可为 nil
func NewService(upstream Upstream, defaultWorkflow string, m *metrics.Broker) *Service {
	return &Service{
		upstream:        upstream,
		defaultWorkflow: strings.TrimSpace(defaultWorkflow),
		metrics:         m,
	}
}

// Configured 报告是否同时具备密钥与可用的默认工作流
func (s *Service) Configured() bool {
	if s.upstream == nil || !s.upstream.Configured() {
		return false
	}
	_, err := ResolveWorkflow(session.CreateRequest{}, s.defaultWorkflow)
	return err == nil
}

// Create 校验请求并发起唯一一次远端调用。
// 先检查配置，缺少密钥时不会产生网络请求。
func (s *Service) Create(ctx context.Context, req session.CreateRequest, userID string) (*session.UpstreamSession, error) {
	if s.upstream == nil || !s.upstream.Configured() {
		s.metrics.Observe(metrics.OutcomeConfigError)
		return nil, chatkit.ErrMissingAPIKey
	}

	workflowID, err := ResolveWorkflow(req, s.defaultWorkflow)
	if err != nil {
		s.metrics.Observe(metrics.OutcomeValidationError)
		return nil, err
	}

	created, err := s.upstream.CreateSession(ctx, session.UpstreamRequest{
		Workflow: session.WorkflowRef{ID: workflowID},
		User:     userID,
		Configuration: session.UpstreamConfiguration{
			FileUpload: session.Toggle{Enabled: req.FileUploadEnabled()},
		},
	})
	if err != nil {
		switch {
		case errors.Is(err, chatkit.ErrMissingAPIKey):
			s.metrics.Observe(metrics.OutcomeConfigError)
		default:
			s.metrics.Observe(metrics.OutcomeUpstreamError)
		}
		return nil, fmt.Errorf("create session for workflow %s: %w", workflowID, err)
	}

	s.metrics.Observe(metrics.OutcomeCreated)
	log.Printf("[session] created session workflow=%s user=%s", workflowID, shortID(userID))
	return created, nil
}

// ResolveWorkflow 优先使用请求中的工作流 ID，否则回退到默认值
func ResolveWorkflow(req session.CreateRequest, defaultWorkflow string) (string, error) {
	id := req.RequestedWorkflow()
	if id == "" {
		id = strings.TrimSpace(defaultWorkflow)
	}
	if id == "" {
		return "", ErrMissingWorkflow
	}
	if IsPlaceholderWorkflow(id) {
		return "", fmt.Errorf("%w: %s", ErrPlaceholderWorkflow, id)
	}
	return id, nil
}

// IsPlaceholderWorkflow 判断是否为示例占位工作流
func IsPlaceholderWorkflow(id string) bool {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, prefix := range placeholderPrefixes {
		if strings.HasPrefix(id, prefix) {
			return true
		}
	}
	return false
}

// ResolveUserID 复用 cookie 中的匿名用户标识，缺失或格式错误时生成新的随机标识
func ResolveUserID(raw string) (id string, generated bool) {
	value := strings.TrimSpace(raw)
	// 只复用标准 36 位格式，保证转发值与 cookie 完全一致
	if parsed, err := uuid.Parse(value); err == nil && parsed != uuid.Nil && len(value) == 36 {
		return value, false
	}
	return uuid.NewString(), true
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
