// Package mcp exposes the gateway operations as Model Context Protocol tools
// and resources.
package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	gwerrors "github.com/Aman-CERP/elasticmcp/internal/errors"
)

// Custom MCP error codes.
const (
	// ErrCodeEngineError indicates Elasticsearch answered with an error status.
	ErrCodeEngineError = -32001

	// ErrCodeEngineUnavailable indicates Elasticsearch could not be reached.
	ErrCodeEngineUnavailable = -32002

	// ErrCodeTimeout indicates the request timed out or was canceled.
	ErrCodeTimeout = -32003

	// ErrCodeDocumentNotFound indicates the requested document does not exist.
	ErrCodeDocumentNotFound = -32004

	// Standard JSON-RPC error codes.
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// MCPError represents an MCP protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts gateway errors to MCP errors. The gateway message, which
// already names the failed operation, is kept as is.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var mcpErr *MCPError
	if errors.As(err, &mcpErr) {
		return mcpErr
	}
	if ge, ok := gwerrors.As(err); ok {
		return mapGatewayError(ge)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request timed out."}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request was canceled."}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: "Internal server error."}
	}
}

// NewInvalidParamsError creates an error for invalid parameters with a custom message.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{
		Code:    ErrCodeInvalidParams,
		Message: msg,
	}
}

// errorResult packs err into a tool result flagged as an error, so the
// calling agent sees the message instead of a protocol failure.
func errorResult(err *MCPError) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
		IsError: true,
	}
}

func mapGatewayError(ge *gwerrors.GatewayError) *MCPError {
	message := ge.Message
	if ge.Suggestion != "" {
		message = fmt.Sprintf("%s %s", ge.Message, ge.Suggestion)
	}

	switch ge.Code {
	case gwerrors.ErrCodeDocumentNotFound:
		return &MCPError{Code: ErrCodeDocumentNotFound, Message: message}
	case gwerrors.ErrCodeNetworkTimeout:
		return &MCPError{Code: ErrCodeTimeout, Message: message}
	case gwerrors.ErrCodeNetworkUnavailable:
		return &MCPError{Code: ErrCodeEngineUnavailable, Message: message}
	case gwerrors.ErrCodeEngineError:
		return &MCPError{Code: ErrCodeEngineError, Message: message}
	case gwerrors.ErrCodeUnsupportedMode:
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	}

	switch ge.Category {
	case gwerrors.CategoryValidation:
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	default: // config, internal and unknown
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	}
}
