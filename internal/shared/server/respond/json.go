package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Envelope is the single response shape used by every JSON endpoint.
type Envelope struct {
	Success    bool         `json:"success"`
	Data       any          `json:"data,omitempty"`
	Message    string       `json:"message,omitempty"`
	Errors     []FieldError `json:"errors,omitempty"`
	Pagination any          `json:"pagination,omitempty"`
}

// FieldError is one itemized validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// JSON writes a successful envelope with the given status.
func JSON(c *gin.Context, status int, data any) {
	c.JSON(status, Envelope{Success: true, Data: data})
}

// OK writes a 200 OK envelope.
func OK(c *gin.Context, data any) {
	JSON(c, http.StatusOK, data)
}

// Created writes a 201 envelope with a human-readable message.
func Created(c *gin.Context, message string, data any) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Message: message, Data: data})
}

// Message writes a 200 envelope carrying only a confirmation message.
func Message(c *gin.Context, message string) {
	c.JSON(http.StatusOK, Envelope{Success: true, Message: message})
}

// OKMessage writes a 200 envelope with both a message and data.
func OKMessage(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, Envelope{Success: true, Message: message, Data: data})
}

// Paged writes a 200 envelope for a list with pagination beside the data.
func Paged(c *gin.Context, data any, pagination any) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data, Pagination: pagination})
}
