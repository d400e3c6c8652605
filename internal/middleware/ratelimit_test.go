package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/nratax/nratax-api/internal/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
	logger.InitLogger("test")
}

func limitedRouter(rl *RateLimiter) *gin.Engine {
	router := gin.New()
	router.Use(rl.Middleware())
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func limitedRequest(router *gin.Engine, path, clientIP string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", path, nil)
	req.Header.Set("X-Forwarded-For", clientIP)
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimiter(t *testing.T) {
	t.Run("allows requests within rate limit", func(t *testing.T) {
		router := limitedRouter(NewRateLimiter(10, 20))

		for i := 0; i < 10; i++ {
			w := limitedRequest(router, "/test", "192.168.1.1")
			assert.Equal(t, http.StatusOK, w.Code)
			assert.NotEmpty(t, w.Header().Get("X-RateLimit-Limit"))
			assert.NotEmpty(t, w.Header().Get("X-RateLimit-Remaining"))
		}
	})

	t.Run("blocks requests exceeding rate limit", func(t *testing.T) {
		router := limitedRouter(NewRateLimiter(1, 2))

		var lastCode int
		for i := 0; i < 3; i++ {
			w := limitedRequest(router, "/test", "192.168.1.2")
			lastCode = w.Code
		}

		assert.Equal(t, http.StatusTooManyRequests, lastCode)
	})

	t.Run("different clients have separate limits", func(t *testing.T) {
		router := limitedRouter(NewRateLimiter(1, 1))

		assert.Equal(t, http.StatusOK, limitedRequest(router, "/test", "192.168.1.3").Code)
		assert.Equal(t, http.StatusOK, limitedRequest(router, "/test", "192.168.1.4").Code)
		assert.Equal(t, http.StatusTooManyRequests, limitedRequest(router, "/test", "192.168.1.3").Code)
	})

	t.Run("health endpoint is never limited", func(t *testing.T) {
		router := limitedRouter(NewRateLimiter(1, 1))

		for i := 0; i < 5; i++ {
			assert.Equal(t, http.StatusOK, limitedRequest(router, "/health", "192.168.1.5").Code)
		}
	})

	t.Run("api key identifies the client", func(t *testing.T) {
		router := limitedRouter(NewRateLimiter(1, 1))

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/test", nil)
		req.Header.Set("X-API-Key", "nrtx_live_abcdef123456")
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)

		w2 := httptest.NewRecorder()
		req2, _ := http.NewRequest("GET", "/test", nil)
		req2.Header.Set("X-API-Key", "nrtx_live_abcdef123456")
		router.ServeHTTP(w2, req2)
		assert.Equal(t, http.StatusTooManyRequests, w2.Code)
	})
}
