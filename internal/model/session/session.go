package session

import (
	"encoding/json"
	"strings"
)

// CreateRequest 浏览器创建会话时可选的请求体
type CreateRequest struct {
	WorkflowID    string         `json:"workflowId,omitempty"`
	Workflow      *WorkflowRef   `json:"workflow,omitempty"`
	Configuration *Configuration `json:"chatkit_configuration,omitempty"`
}

// WorkflowRef 托管工作流标识
type WorkflowRef struct {
	ID string `json:"id"`
}

// Configuration 转发给远端 API 的功能开关
type Configuration struct {
	FileUpload *Toggle `json:"file_upload,omitempty"`
}

// Toggle 开关
type Toggle struct {
	Enabled bool `json:"enabled"`
}

// RequestedWorkflow returns the workflow id supplied by the caller, preferring
// the nested form. Empty when the caller supplied none.
func (r CreateRequest) RequestedWorkflow() string {
	if r.Workflow != nil {
		if id := strings.TrimSpace(r.Workflow.ID); id != "" {
			return id
		}
	}
	return strings.TrimSpace(r.WorkflowID)
}

// FileUploadEnabled 返回附件上传开关，缺省为 false
func (r CreateRequest) FileUploadEnabled() bool {
	return r.Configuration != nil && r.Configuration.FileUpload != nil && r.Configuration.FileUpload.Enabled
}

// CreateResponse 成功时返回给浏览器，ClientSecret 为组件使用的不透明凭证
type CreateResponse struct {
	ClientSecret string          `json:"client_secret"`
	ExpiresAfter json.RawMessage `json:"expires_after"`
}

// ErrorResponse 失败时返回给浏览器
type ErrorResponse struct {
	Error   string          `json:"error"`
	Details json.RawMessage `json:"details,omitempty"`
}
