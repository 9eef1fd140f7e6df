// Package mcp implements the Model Context Protocol (MCP) server exposing
// list/search/uninstall/update to an AI host.
package mcp

import (
	"context"
	"errors"
	"fmt"

	liberrors "github.com/libragen/libragen/internal/errors"
)

// JSON-RPC and domain-specific error codes surfaced to MCP clients.
const (
	ErrCodePackNotFound    = -32001
	ErrCodeModelLoadFailed = -32002
	ErrCodeTimeout         = -32003
	ErrCodeHashMismatch    = -32004
	ErrCodeAlreadyExists   = -32005

	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// Sentinel errors for internal use.
var (
	ErrToolNotFound     = errors.New("tool not found")
	ErrInvalidParams    = errors.New("invalid parameters")
	ErrResourceNotFound = errors.New("resource not found")
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

// MapError converts internal errors to MCP errors, mapping a
// *liberrors.Error's Kind to the closest domain-specific code.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var le *liberrors.Error
	if errors.As(err, &le) {
		return mapLibError(le)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request timed out."}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request was canceled."}
	case errors.Is(err, ErrToolNotFound):
		return &MCPError{Code: ErrCodeMethodNotFound, Message: "Tool not found."}
	case errors.Is(err, ErrInvalidParams):
		return &MCPError{Code: ErrCodeInvalidParams, Message: "Invalid parameters."}
	case errors.Is(err, ErrResourceNotFound):
		return &MCPError{Code: ErrCodeMethodNotFound, Message: "Resource not found."}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: "Internal server error."}
	}
}

func mapLibError(le *liberrors.Error) *MCPError {
	message := le.Message
	if le.Suggestion != "" {
		message = fmt.Sprintf("%s %s", le.Message, le.Suggestion)
	}

	switch le.Kind {
	case liberrors.NotFound:
		return &MCPError{Code: ErrCodePackNotFound, Message: message}
	case liberrors.AlreadyExists:
		return &MCPError{Code: ErrCodeAlreadyExists, Message: message}
	case liberrors.ModelLoad:
		return &MCPError{Code: ErrCodeModelLoadFailed, Message: message}
	case liberrors.HashMismatch, liberrors.IntegrityFailure:
		return &MCPError{Code: ErrCodeHashMismatch, Message: message}
	case liberrors.Transport:
		return &MCPError{Code: ErrCodeTimeout, Message: message}
	case liberrors.Canceled:
		return &MCPError{Code: ErrCodeTimeout, Message: message}
	case liberrors.InvalidFormat, liberrors.SchemaVersionTooNew, liberrors.MigrationRequired:
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	}
}

// NewInvalidParamsError creates an error for invalid parameters with a custom message.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

// NewMethodNotFoundError creates an error for unknown methods/tools.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{Code: ErrCodeMethodNotFound, Message: fmt.Sprintf("Tool %q not found.", name)}
}
