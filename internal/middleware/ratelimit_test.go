package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func doRequest(r *gin.Engine, remoteAddr, forwardedFor string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = remoteAddr
	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimit_BurstExhaustion(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(1, 3))
	r.GET("/ping", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for i := 0; i < 3; i++ {
		w := doRequest(r, "10.0.0.1:1234", "")
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := doRequest(r, "10.0.0.1:1234", "")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.JSONEq(t, `{"code":"RATE_LIMITED","message":"Too many requests"}`, w.Body.String())
}

func TestRateLimit_PerClientBuckets(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(1, 1))
	r.GET("/ping", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	require.Equal(t, http.StatusOK, doRequest(r, "10.0.0.1:1234", "").Code)
	require.Equal(t, http.StatusTooManyRequests, doRequest(r, "10.0.0.1:1234", "").Code)

	// A different client has its own bucket
	require.Equal(t, http.StatusOK, doRequest(r, "10.0.0.2:1234", "").Code)
}

func TestClientKey_ForwardedFor(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(1, 1))
	r.GET("/ping", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	// Both requests resolve to the first forwarded entry
	require.Equal(t, http.StatusOK, doRequest(r, "10.0.0.1:1234", "203.0.113.7, 10.0.0.1").Code)
	require.Equal(t, http.StatusTooManyRequests, doRequest(r, "10.0.0.2:5678", "203.0.113.7").Code)
}
