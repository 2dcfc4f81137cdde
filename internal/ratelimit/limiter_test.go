package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_PerClientBuckets(t *testing.T) {
	l, err := New(0.001, 2, 8)
	require.NoError(t, err)

	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))

	assert.True(t, l.Allow("10.0.0.2"))
}

func TestLimiter_BoundedTable(t *testing.T) {
	l, err := New(1, 1, 2)
	require.NoError(t, err)

	l.Allow("a")
	l.Allow("b")
	l.Allow("c")
	assert.Equal(t, 2, l.clients.Len())
}

func TestNew_Rejects(t *testing.T) {
	_, err := New(0, 1, 1)
	assert.Error(t, err)
	_, err = New(1, 0, 1)
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l, err := New(0.5, 1, 8)
	require.NoError(t, err)

	router := gin.New()
	router.Use(l.Middleware())
	router.POST("/auth/signup", func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/signup", nil)
		req.RemoteAddr = "192.0.2.7:4321"
		router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, send().Code)
	w := send()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("Retry-After"))
}
