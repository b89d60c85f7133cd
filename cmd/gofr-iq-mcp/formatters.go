package main

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/parrisma/gofr-iq/internal/models"
)

// envelope is the uniform tool response: a single JSON content block with a
// status, optional data, and on failure a stable error code plus recovery hint
type envelope struct {
	Status           string      `json:"status"`
	Message          string      `json:"message,omitempty"`
	Data             interface{} `json:"data,omitempty"`
	ErrorCode        string      `json:"error_code,omitempty"`
	RecoveryStrategy string      `json:"recovery_strategy,omitempty"`
}

func toResult(env envelope) *mcp.CallToolResult {
	payload, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		payload = []byte(fmt.Sprintf(`{"status":"error","error_code":"INTERNAL_ERROR","message":%q}`, err.Error()))
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(string(payload))},
	}
}

func successResult(message string, data interface{}) *mcp.CallToolResult {
	return toResult(envelope{Status: "success", Message: message, Data: data})
}

func errorResult(err error) *mcp.CallToolResult {
	code := models.CodeForError(err)
	return toResult(envelope{
		Status:           "error",
		Message:          err.Error(),
		ErrorCode:        string(code),
		RecoveryStrategy: models.RecoveryHint(code),
	})
}

func validationError(message string) *mcp.CallToolResult {
	return toResult(envelope{
		Status:           "error",
		Message:          message,
		ErrorCode:        string(models.CodeValidationError),
		RecoveryStrategy: "Correct the listed parameter and retry",
	})
}
