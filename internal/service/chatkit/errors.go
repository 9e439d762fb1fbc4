package chatkit

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// UpstreamError 远端会话创建失败（含网络不可达），Status 为回传给调用方的状态码
type UpstreamError struct {
	Status  int
	Message string
	Details json.RawMessage
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("chatkit upstream %d: %s: %v", e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("chatkit upstream %d: %s", e.Status, e.Message)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func newUpstreamError(resp *http.Response, raw []byte) *UpstreamError {
	details := validJSON(raw)

	var payload any
	if details != nil {
		_ = json.Unmarshal(details, &payload)
	}

	message := ExtractErrorMessage(payload)
	if message == "" {
		message = "Failed to create session: " + statusText(resp)
	}

	return &UpstreamError{
		Status:  resp.StatusCode,
		Message: message,
		Details: details,
	}
}

// ExtractErrorMessage 从错误负载中提取最具体的可读信息。
// 查找顺序：error, error.message, details, details.error,
// details.error.message, message；都没有时返回空字符串。
func ExtractErrorMessage(payload any) string {
	obj, ok := payload.(map[string]any)
	if !ok {
		return ""
	}

	if msg := messageFrom(obj["error"]); msg != "" {
		return msg
	}

	switch details := obj["details"].(type) {
	case string:
		if details != "" {
			return details
		}
	case map[string]any:
		if msg := messageFrom(details["error"]); msg != "" {
			return msg
		}
	}

	if msg, ok := obj["message"].(string); ok {
		return msg
	}
	return ""
}

// messageFrom 接受字符串或带 "message" 字段的对象
func messageFrom(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case map[string]any:
		if msg, ok := val["message"].(string); ok {
			return msg
		}
	}
	return ""
}

func validJSON(raw []byte) json.RawMessage {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || !json.Valid([]byte(trimmed)) {
		return nil
	}
	return json.RawMessage(trimmed)
}

func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}
