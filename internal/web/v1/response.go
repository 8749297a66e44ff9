package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the envelope returned by every user endpoint.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Details string `json:"details,omitempty"`
	Message string `json:"message,omitempty"`
	Total   *int   `json:"total,omitempty"`
	Path    string `json:"path,omitempty"`
}

func respondError(c *gin.Context, status int, msg string) {
	c.JSON(status, Response{Success: false, Error: msg})
}

// respondFailure reports a backend failure; the underlying error is always
// attached as details.
func respondFailure(c *gin.Context, msg string, err error) {
	c.JSON(http.StatusInternalServerError, Response{Success: false, Error: msg, Details: err.Error()})
}
