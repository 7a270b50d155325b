package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Body is the uniform JSON envelope returned by every API endpoint.
type Body struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success writes a 200 envelope with the given payload.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Body{Code: 0, Message: "ok", Data: data})
}

// Fail writes a 200 envelope carrying a business error message.
func Fail(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Body{Code: 1, Message: message, Data: data})
}

// Errorf writes a non-200 status with an error message.
func Errorf(c *gin.Context, status int, message string) {
	c.JSON(status, Body{Code: 1, Message: message})
}
