package utils

import (
	"encoding/json"
	"log"
	"net/http"
)

// RespondJSON 发送JSON响应
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// RespondError 发送错误响应
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, map[string]string{"error": message})
}

// RespondErrorDetails 发送带上游详情的错误响应，details 为空时省略。
func RespondErrorDetails(w http.ResponseWriter, status int, message string, details json.RawMessage) {
	if len(details) == 0 {
		RespondError(w, status, message)
		return
	}
	RespondJSON(w, status, map[string]any{"error": message, "details": details})
}
