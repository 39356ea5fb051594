package mcp

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gwerrors "github.com/Aman-CERP/elasticmcp/internal/errors"
)

func TestMapError_NilError(t *testing.T) {
	assert.Nil(t, MapError(nil))
}

func TestMapError_GatewayErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"document not found", gwerrors.NotFoundError("Document 'x' not found", nil), ErrCodeDocumentNotFound},
		{"timeout", gwerrors.New(gwerrors.ErrCodeNetworkTimeout, "Search failed: timed out", nil), ErrCodeTimeout},
		{"unreachable", gwerrors.NetworkError("Search failed: connection refused", nil), ErrCodeEngineUnavailable},
		{"engine status", gwerrors.EngineError("Search failed: 400", nil), ErrCodeEngineError},
		{"empty query", gwerrors.New(gwerrors.ErrCodeQueryEmpty, "Search failed: query must not be empty", nil), ErrCodeInvalidParams},
		{"invalid input", gwerrors.ValidationError("size must be >= 0", nil), ErrCodeInvalidParams},
		{"unsupported mode", gwerrors.New(gwerrors.ErrCodeUnsupportedMode, "unsupported search mode", nil), ErrCodeInvalidParams},
		{"unsupported method", gwerrors.New(gwerrors.ErrCodeUnsupportedMethod, "unsupported HTTP method", nil), ErrCodeInternalError},
		{"malformed", gwerrors.New(gwerrors.ErrCodeMalformedResponse, "Count failed: missing count", nil), ErrCodeInternalError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// Given: a gateway error wrapped once more
			err := fmt.Errorf("call: %w", tc.err)

			// When: mapping it
			got := MapError(err)

			// Then: the code follows the gateway code and the message is kept
			require.NotNil(t, got)
			assert.Equal(t, tc.wantCode, got.Code)
			ge, _ := gwerrors.As(tc.err)
			assert.Equal(t, ge.Message, got.Message)
		})
	}
}

func TestMapError_AppendsSuggestion(t *testing.T) {
	err := gwerrors.New(gwerrors.ErrCodeUnsupportedMethod, "unsupported HTTP method \"DELETE\"", nil).
		WithSuggestion("Use GET, POST or PUT")

	got := MapError(err)

	assert.Equal(t, "unsupported HTTP method \"DELETE\" Use GET, POST or PUT", got.Message)
}

func TestMapError_ContextErrors(t *testing.T) {
	assert.Equal(t, ErrCodeTimeout, MapError(context.DeadlineExceeded).Code)
	assert.Equal(t, "Request was canceled.", MapError(context.Canceled).Message)
}

func TestMapError_UnknownIsInternal(t *testing.T) {
	got := MapError(errors.New("boom"))

	assert.Equal(t, ErrCodeInternalError, got.Code)
	assert.Equal(t, "Internal server error.", got.Message)
}

func TestMapError_PassesMCPErrorThrough(t *testing.T) {
	orig := NewInvalidParamsError("bad uri")

	assert.Same(t, orig, MapError(fmt.Errorf("wrap: %w", orig)))
}

func TestMCPError_Error(t *testing.T) {
	err := &MCPError{Code: ErrCodeDocumentNotFound, Message: "gone"}

	assert.Equal(t, "MCP error -32004: gone", err.Error())
}

func TestErrorResult(t *testing.T) {
	res := errorResult(NewInvalidParamsError("query must not be empty"))

	assert.True(t, res.IsError)
	require.Len(t, res.Content, 1)
}
