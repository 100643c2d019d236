package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestBodyLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("allows request within limit", func(t *testing.T) {
		router := gin.New()
		router.Use(BodyLimit(1024))
		router.PUT("/rates", func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})

		body := bytes.NewReader([]byte(`{"rate":"0.18"}`))
		req := httptest.NewRequest("PUT", "/rates", body)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("rejects oversized declared body", func(t *testing.T) {
		router := gin.New()
		router.Use(BodyLimit(100))
		router.POST("/rates/bulk", func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})

		body := bytes.NewReader([]byte(strings.Repeat("x", 200)))
		req := httptest.NewRequest("POST", "/rates/bulk", body)
		req.ContentLength = 200
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_REQUEST_TOO_LARGE")
		assert.Contains(t, w.Body.String(), `"success":false`)
	})

	t.Run("allows bodyless GET requests", func(t *testing.T) {
		router := gin.New()
		router.Use(BodyLimit(10))
		router.GET("/rates/matrix", func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})

		req := httptest.NewRequest("GET", "/rates/matrix", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("enforces the cap on streaming bodies", func(t *testing.T) {
		router := gin.New()
		router.Use(BodyLimit(50))
		router.POST("/rates/bulk", func(c *gin.Context) {
			buf := make([]byte, 200)
			if _, err := c.Request.Body.Read(buf); err != nil {
				c.String(http.StatusBadRequest, "body too large")
				return
			}
			c.String(http.StatusOK, "ok")
		})

		// No Content-Length, the cap has to come from MaxBytesReader
		body := strings.NewReader(strings.Repeat("x", 100))
		req := httptest.NewRequest("POST", "/rates/bulk", body)
		req.ContentLength = -1
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
