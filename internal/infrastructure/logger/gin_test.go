package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func accessLog(t *testing.T, recorded *observer.ObservedLogs) *observer.LoggedEntry {
	t.Helper()
	for _, entry := range recorded.All() {
		if entry.Message == "http request" {
			e := entry
			return &e
		}
	}
	return nil
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	core, recorded := observer.New(zapcore.InfoLevel)
	zapLogger := zap.New(core)

	router := gin.New()
	router.Use(GinMiddleware(zapLogger))
	router.GET("/rates", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rate": "0.18"})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/rates", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	entry := accessLog(t, recorded)
	require.NotNil(t, entry)
	assert.Equal(t, zapcore.InfoLevel, entry.Level)
}

func TestGinMiddleware_SkipPaths(t *testing.T) {
	gin.SetMode(gin.TestMode)

	core, recorded := observer.New(zapcore.InfoLevel)
	zapLogger := zap.New(core)

	router := gin.New()
	router.Use(GinMiddleware(zapLogger, "/health"))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/rates", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rate": "0.18"})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	assert.Nil(t, accessLog(t, recorded), "health probes should not produce access logs")

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/rates", nil)
	router.ServeHTTP(w, req)

	assert.NotNil(t, accessLog(t, recorded))
}

func TestGinMiddleware_WithRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	core, recorded := observer.New(zapcore.InfoLevel)
	zapLogger := zap.New(core)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("request_id", "test-req-123")
		c.Next()
	})
	router.Use(GinMiddleware(zapLogger))
	router.GET("/rates", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rate": "0.18"})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/rates", nil)
	router.ServeHTTP(w, req)

	entry := accessLog(t, recorded)
	require.NotNil(t, entry)

	hasRequestID := false
	for _, field := range entry.Context {
		if field.Key == "request_id" {
			hasRequestID = true
			assert.Equal(t, "test-req-123", field.String)
		}
	}
	assert.True(t, hasRequestID, "request_id should be in log fields")
}

func TestGinMiddleware_StatusLevels(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		status   int
		expected zapcore.Level
	}{
		{name: "2xx logs info", status: http.StatusOK, expected: zapcore.InfoLevel},
		{name: "4xx logs warn", status: http.StatusNotFound, expected: zapcore.WarnLevel},
		{name: "5xx logs error", status: http.StatusInternalServerError, expected: zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, recorded := observer.New(zapcore.InfoLevel)
			zapLogger := zap.New(core)

			router := gin.New()
			router.Use(GinMiddleware(zapLogger))
			router.GET("/rates", func(c *gin.Context) {
				c.Status(tt.status)
			})

			w := httptest.NewRecorder()
			req, _ := http.NewRequest("GET", "/rates", nil)
			router.ServeHTTP(w, req)

			entry := accessLog(t, recorded)
			require.NotNil(t, entry)
			assert.Equal(t, tt.expected, entry.Level)
		})
	}
}

func TestGinMiddleware_WithQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	core, recorded := observer.New(zapcore.InfoLevel)
	zapLogger := zap.New(core)

	router := gin.New()
	router.Use(GinMiddleware(zapLogger))
	router.GET("/resolve", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rate": "0.18"})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/resolve?country=IN&classification=6109", nil)
	router.ServeHTTP(w, req)

	entry := accessLog(t, recorded)
	require.NotNil(t, entry)

	hasQuery := false
	for _, field := range entry.Context {
		if field.Key == "query" {
			hasQuery = true
			assert.Contains(t, field.String, "country=IN")
		}
	}
	assert.True(t, hasQuery, "query should be in log fields")
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	core, recorded := observer.New(zapcore.ErrorLevel)
	zapLogger := zap.New(core)

	router := gin.New()
	router.Use(Recovery(zapLogger))
	router.GET("/panic", func(c *gin.Context) {
		panic("test panic")
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/panic", nil)

	assert.NotPanics(t, func() {
		router.ServeHTTP(w, req)
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	logs := recorded.All()
	require.NotEmpty(t, logs)
	assert.Contains(t, logs[0].Message, "panic recovered")
}

func TestGetGinLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)

	core, _ := observer.New(zapcore.InfoLevel)
	zapLogger := zap.New(core)

	var retrievedLogger *zap.Logger

	router := gin.New()
	router.Use(GinMiddleware(zapLogger))
	router.GET("/rates", func(c *gin.Context) {
		retrievedLogger = GetGinLogger(c)
		c.JSON(http.StatusOK, gin.H{"rate": "0.18"})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/rates", nil)
	router.ServeHTTP(w, req)

	assert.NotNil(t, retrievedLogger)
}

func TestGetGinLogger_NotSet(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var retrievedLogger *zap.Logger

	router := gin.New()
	router.GET("/rates", func(c *gin.Context) {
		retrievedLogger = GetGinLogger(c)
		c.JSON(http.StatusOK, gin.H{"rate": "0.18"})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/rates", nil)
	router.ServeHTTP(w, req)

	require.NotNil(t, retrievedLogger)
	assert.NotPanics(t, func() {
		retrievedLogger.Info("noop")
	})
}

func TestGinMiddleware_LogsCorrectFields(t *testing.T) {
	gin.SetMode(gin.TestMode)

	core, recorded := observer.New(zapcore.InfoLevel)
	zapLogger := zap.New(core)

	router := gin.New()
	router.Use(GinMiddleware(zapLogger))
	router.POST("/rates/bulk", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"updated": 2})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/rates/bulk", nil)
	router.ServeHTTP(w, req)

	entry := accessLog(t, recorded)
	require.NotNil(t, entry)

	fieldMap := make(map[string]any)
	for _, field := range entry.Context {
		fieldMap[field.Key] = field
	}

	assert.Contains(t, fieldMap, "status")
	assert.Contains(t, fieldMap, "latency")
	assert.Contains(t, fieldMap, "client_ip")
	assert.Contains(t, fieldMap, "body_size")
	assert.Contains(t, fieldMap, "method")
	assert.Contains(t, fieldMap, "path")
}
