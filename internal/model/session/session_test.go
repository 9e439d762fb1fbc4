package session

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestedWorkflowPrefersNestedID(t *testing.T) {
	var req CreateRequest
	require.NoError(t, json.Unmarshal([]byte(`{"workflowId":"wf_flat","workflow":{"id":" wf_nested "}}`), &req))
	assert.Equal(t, "wf_nested", req.RequestedWorkflow())

	require.NoError(t, json.Unmarshal([]byte(`{"workflowId":"wf_flat","workflow":{"id":""}}`), &req))
	assert.Equal(t, "wf_flat", req.RequestedWorkflow())

	assert.Empty(t, CreateRequest{}.RequestedWorkflow())
}

func TestFileUploadEnabled(t *testing.T) {
	var req CreateRequest
	assert.False(t, req.FileUploadEnabled())

	require.NoError(t, json.Unmarshal([]byte(`{"chatkit_configuration":{"file_upload":{"enabled":true}}}`), &req))
	assert.True(t, req.FileUploadEnabled())
}
