// Package response writes the JSON bodies every endpoint returns: the entity keyed by
// name on success, {"error": "..."} on failure.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error is the failure body.
type Error struct {
	Error string `json:"error"`
}

// OK sends a 200 JSON response with data.
func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// Created sends a 201 JSON response with data.
func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// Fail sends status with an error message.
func Fail(c *gin.Context, status int, msg string) {
	c.JSON(status, Error{Error: msg})
}

// BadRequest sends 400 with error message.
func BadRequest(c *gin.Context, msg string) {
	Fail(c, http.StatusBadRequest, msg)
}

// Unauthorized sends 401.
func Unauthorized(c *gin.Context, msg string) {
	Fail(c, http.StatusUnauthorized, msg)
}

// Forbidden sends 403.
func Forbidden(c *gin.Context, msg string) {
	Fail(c, http.StatusForbidden, msg)
}

// NotFound sends 404.
func NotFound(c *gin.Context, msg string) {
	Fail(c, http.StatusNotFound, msg)
}

// Conflict sends 409.
func Conflict(c *gin.Context, msg string) {
	Fail(c, http.StatusConflict, msg)
}

// TooManyRequests sends 429.
func TooManyRequests(c *gin.Context, msg string) {
	Fail(c, http.StatusTooManyRequests, msg)
}

// Internal sends 500. The message must not carry internal error text.
func Internal(c *gin.Context, msg string) {
	Fail(c, http.StatusInternalServerError, msg)
}
