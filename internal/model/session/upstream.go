package session

import "encoding/json"

// UpstreamRequest 发送到远端会话接口的请求体
type UpstreamRequest struct {
	Workflow      WorkflowRef           `json:"workflow"`
	User          string                `json:"user"`
	Configuration UpstreamConfiguration `json:"chatkit_configuration"`
}

// UpstreamConfiguration 始终显式携带附件上传开关
type UpstreamConfiguration struct {
	FileUpload Toggle `json:"file_upload"`
}

// UpstreamSession 远端会话对象中代理读取的字段
type UpstreamSession struct {
	ClientSecret string          `json:"client_secret"`
	ExpiresAfter json.RawMessage `json:"expires_after,omitempty"`
}
