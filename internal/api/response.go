package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response helpers for consistent API responses.
// Following ISP - single responsibility for response formatting.

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// SuccessResponse represents a standardized success response with data.
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// RespondSuccess sends a success response with optional data.
func RespondSuccess(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Data:    data,
		Message: message,
	})
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, errorType string, message string) {
	c.JSON(status, ErrorResponse{
		Error:   errorType,
		Message: message,
		Code:    status,
	})
}

// RespondBadRequest sends a 400 Bad Request error.
func RespondBadRequest(c *gin.Context, message string) {
	RespondError(c, http.StatusBadRequest, "bad_request", message)
}

// RespondNotFound sends a 404 Not Found error.
func RespondNotFound(c *gin.Context, message string) {
	if message == "" {
		message = "Resource not found"
	}
	RespondError(c, http.StatusNotFound, "not_found", message)
}

// RespondInternalError sends a 500 Internal Server Error.
func RespondInternalError(c *gin.Context, message string) {
	if message == "" {
		message = "An internal error occurred"
	}
	RespondError(c, http.StatusInternalServerError, "internal_error", message)
}
