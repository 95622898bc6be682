package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// DecompressRequest unwraps gzip encoded request bodies before binding.
func DecompressRequest() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !strings.Contains(c.GetHeader("Content-Encoding"), "gzip") {
			c.Next()
			return
		}

		compressed := c.Request.Body
		zr, err := gzip.NewReader(compressed)
		if err != nil {
			c.AbortWithStatus(http.StatusBadRequest)
			return
		}
		defer zr.Close()
		defer compressed.Close()

		c.Request.Body = io.NopCloser(zr)
		c.Request.Header.Del("Content-Encoding")
		// length of the inflated body is unknown
		c.Request.ContentLength = -1
		c.Next()
	}
}
