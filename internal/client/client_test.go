package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/z-chatkit/backend/internal/model/session"
)

func TestCreateSessionKeepsCookie(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, sessionPath, r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		if c, err := r.Cookie("chatkit_session_id"); err == nil {
			seen = append(seen, c.Value)
		} else {
			seen = append(seen, "")
		}
		http.SetCookie(w, &http.Cookie{Name: "chatkit_session_id", Value: "user-1", Path: "/"})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"client_secret":"ek_1","expires_after":600}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL + "/")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		resp, err := c.CreateSession(context.Background(), session.CreateRequest{})
		require.NoError(t, err)
		assert.Equal(t, "ek_1", resp.ClientSecret)
		assert.JSONEq(t, "600", string(resp.ExpiresAfter))
	}

	assert.Equal(t, []string{"", "user-1"}, seen)
	require.Len(t, c.Cookies(), 1)
}

func TestCreateSessionForwardsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req session.CreateRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "wf_123", req.RequestedWorkflow())
		assert.True(t, req.FileUploadEnabled())
		_, _ = w.Write([]byte(`{"client_secret":"ek_2"}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)
	_, err = c.CreateSession(context.Background(), session.CreateRequest{
		WorkflowID:    "wf_123",
		Configuration: &session.Configuration{FileUpload: &session.Toggle{Enabled: true}},
	})
	require.NoError(t, err)
}

func TestCreateSessionErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Missing workflow id"}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)
	_, err = c.CreateSession(context.Background(), session.CreateRequest{})

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Missing workflow id", apiErr.Message)
}

func TestCreateSessionNonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)
	_, err = c.CreateSession(context.Background(), session.CreateRequest{})

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Failed to create session: Bad Gateway", apiErr.Message)
}

func TestCreateSessionMissingSecret(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)
	_, err = c.CreateSession(context.Background(), session.CreateRequest{})

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Missing client secret in response", apiErr.Message)
}
