package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/jadwal-sholat/pkg/errors"
)

// Envelope represents the common response contract.
type Envelope struct {
	Data  interface{}            `json:"data,omitempty"`
	Error *appErrors.Error       `json:"error,omitempty"`
	Meta  map[string]interface{} `json:"meta,omitempty"`
}

// JSON sends an uncacheable success response.
func JSON(c *gin.Context, status int, data interface{}, meta ...map[string]interface{}) {
	Cached(c, status, "no-store", data, meta...)
}

// Cached sends a success response with the given Cache-Control directive.
func Cached(c *gin.Context, status int, cacheControl string, data interface{}, meta ...map[string]interface{}) {
	c.Header("Cache-Control", cacheControl)
	if cacheControl == "no-store" {
		c.Header("Pragma", "no-cache")
	}
	envelope := Envelope{Data: data}
	if len(meta) > 0 && meta[0] != nil {
		envelope.Meta = meta[0]
	}
	c.JSON(status, envelope)
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data)
}

// Error sends an error response converting the error to the common structure.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	if appErr.Status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(appErr.Status, Envelope{Error: appErr})
}
