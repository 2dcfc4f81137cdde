package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) PingContext(ctx context.Context) error { return f(ctx) }

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name   string
		ping   error
		code   int
		status string
	}{
		{"Up", nil, http.StatusOK, "ok"},
		{"Down", errors.New("dial tcp: connection refused"), http.StatusServiceUnavailable, "unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(pingFunc(func(context.Context) error { return tt.ping }), discardLogger())
			router := gin.New()
			router.GET("/health", h.Health)

			w := perform(router, http.MethodGet, "/health", nil, nil)

			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, tt.status, decode(t, w)["status"])
		})
	}
}
