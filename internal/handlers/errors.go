package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error codes
const (
	CodeInvalidRequest  = "INVALID_REQUEST"
	CodePayloadTooLarge = "PAYLOAD_TOO_LARGE"
	CodeInternalError   = "INTERNAL_ERROR"
)

// ErrorInfo represents error details
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorBody is the JSON body of every error response.
type ErrorBody struct {
	Error     ErrorInfo `json:"error"`
	RequestID string    `json:"request_id,omitempty"`
}

// ErrorResponse represents a structured error response
type ErrorResponse struct {
	StatusCode int
	Code       string
	Message    string
}

// MapServiceError maps classification errors to HTTP error responses.
// Every classifier failure, including a decode failure or a backend
// refusing an empty label list, maps to INTERNAL_ERROR.
func MapServiceError(err error) ErrorResponse {
	return ErrorResponse{
		StatusCode: http.StatusInternalServerError,
		Code:       CodeInternalError,
		Message:    "internal server error",
	}
}

// HandleInvalidRequest handles a generic invalid request error.
func HandleInvalidRequest(c *gin.Context, message string) {
	respondError(c, http.StatusBadRequest, CodeInvalidRequest, message)
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorBody{
		Error: ErrorInfo{
			Code:    code,
			Message: message,
		},
		RequestID: c.GetString("request_id"),
	})
}
