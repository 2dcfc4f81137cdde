package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"reviewhub/internal/api/middleware"
	"reviewhub/internal/api/models"
	"reviewhub/internal/api/repository"
	"reviewhub/internal/api/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	if err := RegisterValidators(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

var (
	reader    = &models.User{ID: "u-reader", Username: "reader", Email: "reader@example.com", Role: models.RoleUser}
	moderator = &models.User{ID: "u-moderator", Username: "moderator", Email: "mod@example.com", Role: models.RoleModerator}
	admin     = &models.User{ID: "u-admin", Username: "admin", Email: "admin@example.com", Role: models.RoleAdmin}
)

// stubTokens treats the bearer token as the user id.
type stubTokens struct{}

func (stubTokens) ValidateToken(token string) (*service.Claims, error) {
	if token == "expired" {
		return nil, service.ErrExpiredToken
	}
	return &service.Claims{UserID: token}, nil
}

type stubUsers map[string]*models.User

func (s stubUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupRouter mounts register on /api/v1/<group> behind the real
// authentication middleware.
func setupRouter(group string, register func(*gin.RouterGroup)) *gin.Engine {
	router := gin.New()
	users := stubUsers{reader.ID: reader, moderator.ID: moderator, admin.ID: admin}
	api := router.Group("/api/v1", middleware.Authenticate(stubTokens{}, users))
	register(api.Group(group))
	return router
}

func perform(router *gin.Engine, method, path string, user *models.User, body any) *httptest.ResponseRecorder {
	var buf io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		buf = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != nil {
		req.Header.Set("Authorization", "Bearer "+user.ID)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func fieldsOf(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	body := decode(t, w)
	assert.Equal(t, "validation failed", body["error"])
	fields, ok := body["fields"].(map[string]any)
	require.True(t, ok, "response has no fields object: %s", w.Body.String())
	return fields
}

func TestRespondError_StatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"Validation", fieldError("score", "out of range"), http.StatusBadRequest},
		{"AlreadyRegistered", service.ErrAlreadyRegistered, http.StatusBadRequest},
		{"Unauthenticated", service.ErrUnauthenticated, http.StatusUnauthorized},
		{"Forbidden", service.ErrForbidden, http.StatusForbidden},
		{"NotFound", &service.NotFoundError{Resource: "title"}, http.StatusNotFound},
		{"Conflict", &service.ConflictError{Reason: "taken"}, http.StatusConflict},
		{"MailDelivery", service.ErrMailDelivery, http.StatusServiceUnavailable},
		{"Timeout", context.DeadlineExceeded, http.StatusServiceUnavailable},
		{"Unknown", errors.New("connection refused"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/", func(c *gin.Context) { respondError(c, discardLogger(), tt.err) })

			w := perform(router, http.MethodGet, "/", nil, nil)
			assert.Equal(t, tt.code, w.Code)
		})
	}

	t.Run("UnknownErrorIsNotLeaked", func(t *testing.T) {
		router := gin.New()
		router.GET("/", func(c *gin.Context) {
			respondError(c, discardLogger(), errors.New("pq: password authentication failed"))
		})

		w := perform(router, http.MethodGet, "/", nil, nil)
		assert.NotContains(t, w.Body.String(), "password")
	})
}

func fieldError(field, msg string) error {
	return &service.ValidationError{Fields: map[string]string{field: msg}}
}

func TestParseID(t *testing.T) {
	router := gin.New()
	router.GET("/titles/:title_id", func(c *gin.Context) {
		id, ok := parseID(c, "title_id", "title")
		if ok {
			c.JSON(http.StatusOK, gin.H{"id": id})
		}
	})

	for _, raw := range []string{"abc", "0", "-4", "1.5"} {
		w := perform(router, http.MethodGet, "/titles/"+raw, nil, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, raw)
		assert.Equal(t, "title not found", decode(t, w)["error"])
	}

	w := perform(router, http.MethodGet, "/titles/42", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthenticate_ExpiredTokenIsRejected(t *testing.T) {
	svc := new(MockCatalogService)
	router := setupRouter("/genres", NewGenreHandler(svc, discardLogger()).RegisterRoutes)

	w := perform(router, http.MethodGet, "/api/v1/genres", &models.User{ID: "expired"}, nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotEmpty(t, w.Header().Get("WWW-Authenticate"))
	svc.AssertNotCalled(t, "List")
}

func TestListEndpoints_RejectMalformedPaging(t *testing.T) {
	tests := []struct {
		name   string
		router *gin.Engine
		path   string
		user   *models.User
	}{
		{"Categories", categoryRouter(new(MockCatalogService)), "/api/v1/categories?page=abc", nil},
		{"Titles", titleRouter(new(MockTitleService)), "/api/v1/titles?page_size=many", nil},
		{"Reviews", reviewRouter(new(MockReviewService)), "/api/v1/titles/1/reviews?page=abc", nil},
		{"Comments", commentRouter(new(MockCommentService)), "/api/v1/titles/1/reviews/2/comments?page=1.5", nil},
		{"Users", userRouter(new(MockUserService)), "/api/v1/users?page=abc", admin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := perform(tt.router, http.MethodGet, tt.path, tt.user, nil)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "invalid query parameters", decode(t, w)["error"])
		})
	}
}
