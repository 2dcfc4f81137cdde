package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"reviewhub/internal/api/models"
	"reviewhub/internal/api/repository"
	"reviewhub/internal/api/service"
	"reviewhub/internal/confirm"
	"reviewhub/internal/mail"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

// memoryUsers is a mutex-guarded user table with the unique username and
// email indexes of the real schema.
type memoryUsers struct {
	mu    sync.Mutex
	users map[string]models.User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{users: make(map[string]models.User)}
}

func (m *memoryUsers) Create(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == user.Username {
			return &repository.DuplicateError{Constraint: "idx_users_username"}
		}
		if u.Email == user.Email {
			return &repository.DuplicateError{Constraint: "idx_users_email"}
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	m.users[user.ID] = *user
	return nil
}

func (m *memoryUsers) Update(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	m.users[user.ID] = *user
	return nil
}

func (m *memoryUsers) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *memoryUsers) find(match func(models.User) bool) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memoryUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	return m.find(func(u models.User) bool { return u.ID == id })
}

func (m *memoryUsers) FindByUsername(_ context.Context, username string) (*models.User, error) {
	return m.find(func(u models.User) bool { return u.Username == username })
}

func (m *memoryUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	return m.find(func(u models.User) bool { return u.Email == email })
}

func (m *memoryUsers) List(_ context.Context, search string, page repository.Page) ([]models.User, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.User
	for _, u := range m.users {
		if strings.Contains(u.Username, search) {
			out = append(out, u)
		}
	}
	return out, int64(len(out)), nil
}

func (m *memoryUsers) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.LastLogin = &at
	m.users[id] = u
	return nil
}

// outbox records delivered mail.
type outbox struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (o *outbox) Send(_ context.Context, msg mail.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, msg)
	return nil
}

// lastCode pulls the code out of the most recent confirmation mail.
func (o *outbox) lastCode() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.sent) == 0 {
		return ""
	}
	parts := strings.Split(o.sent[len(o.sent)-1].Body, "\n\n")
	if len(parts) < 3 {
		return ""
	}
	return strings.TrimSpace(parts[2])
}

func (o *outbox) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.sent)
}

// SignupFlowTestSuite drives signup, token exchange and the self profile
// through the real router and services.
type SignupFlowTestSuite struct {
	suite.Suite
	router *gin.Engine
	users  *memoryUsers
	outbox *outbox
}

func (s *SignupFlowTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.users = newMemoryUsers()
	s.outbox = &outbox{}

	secret := strings.Repeat("k", 32)
	codes, err := confirm.NewIssuer(secret, time.Hour)
	s.Require().NoError(err)

	dispatcher := mail.NewDispatcher(s.outbox)
	auth := service.NewAuthService(
		s.users,
		codes,
		confirm.NewMemoryConsumedStore(time.Minute),
		dispatcher,
		service.NewTokenIssuer(secret, time.Hour),
		nil,
	)

	s.router, err = NewRouter(Services{Auth: auth, Users: service.NewUserService(s.users)}, Options{Users: s.users})
	s.Require().NoError(err)
}

func (s *SignupFlowTestSuite) do(method, path, token string, body any) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, strings.NewReader(string(raw)))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *SignupFlowTestSuite) signup(username, email string) *httptest.ResponseRecorder {
	return s.do(http.MethodPost, "/api/v1/auth/signup", "", map[string]string{"username": username, "email": email})
}

func (s *SignupFlowTestSuite) exchange(username, code string) *httptest.ResponseRecorder {
	return s.do(http.MethodPost, "/api/v1/auth/token", "", map[string]string{"username": username, "confirmation_code": code})
}

func (s *SignupFlowTestSuite) TestSignupTokenAndProfile() {
	w := s.signup("reader", "reader@example.com")
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.NotContains(w.Body.String(), "confirmation_code")
	s.Equal(1, s.outbox.count())

	w = s.exchange("reader", s.outbox.lastCode())
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var tok struct {
		Token string `json:"token"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &tok))
	s.NotEmpty(tok.Token)

	w = s.do(http.MethodGet, "/api/v1/users/me", tok.Token, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var me map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &me))
	s.Equal("reader", me["username"])
	s.Equal("user", me["role"])

	// a registered caller cannot sign up again
	w = s.do(http.MethodPost, "/api/v1/auth/signup", tok.Token, map[string]string{"username": "other", "email": "other@example.com"})
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *SignupFlowTestSuite) TestCodeIsSingleUse() {
	s.Require().Equal(http.StatusOK, s.signup("reader", "reader@example.com").Code)
	code := s.outbox.lastCode()

	s.Require().Equal(http.StatusOK, s.exchange("reader", code).Code)

	w := s.exchange("reader", code)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(w.Body.String(), "confirmation_code")
}

func (s *SignupFlowTestSuite) TestStaleTokenDoesNotBlockExchange() {
	s.Require().Equal(http.StatusOK, s.signup("reader", "reader@example.com").Code)

	body := map[string]string{"username": "reader", "confirmation_code": s.outbox.lastCode()}
	w := s.do(http.MethodPost, "/api/v1/auth/token", "not-a-jwt", body)
	s.Equal(http.StatusOK, w.Code, w.Body.String())

	// the same header is still refused outside /auth
	w = s.do(http.MethodGet, "/api/v1/users/me", "not-a-jwt", nil)
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *SignupFlowTestSuite) TestResendForSamePair() {
	s.Require().Equal(http.StatusOK, s.signup("reader", "reader@example.com").Code)
	s.Require().Equal(http.StatusOK, s.signup("reader", "reader@example.com").Code)

	s.Equal(2, s.outbox.count())
	s.Equal(http.StatusOK, s.exchange("reader", s.outbox.lastCode()).Code)
}

func (s *SignupFlowTestSuite) TestCollisions() {
	s.Require().Equal(http.StatusOK, s.signup("reader", "reader@example.com").Code)

	w := s.signup("reader", "someone-else@example.com")
	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(w.Body.String(), `"username"`)

	w = s.signup("someone", "reader@example.com")
	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(w.Body.String(), `"email"`)

	s.Equal(1, s.outbox.count())
}

func (s *SignupFlowTestSuite) TestCodeOfOtherUserIsRejected() {
	s.Require().Equal(http.StatusOK, s.signup("reader", "reader@example.com").Code)
	readerCode := s.outbox.lastCode()
	s.Require().Equal(http.StatusOK, s.signup("writer", "writer@example.com").Code)

	s.Equal(http.StatusBadRequest, s.exchange("writer", readerCode).Code)
	s.Equal(http.StatusNotFound, s.exchange("nobody", readerCode).Code)
}

func (s *SignupFlowTestSuite) TestConcurrentExchangesYieldOneToken() {
	s.Require().Equal(http.StatusOK, s.signup("reader", "reader@example.com").Code)
	code := s.outbox.lastCode()

	const clients = 20
	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for range clients {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.exchange("reader", code).Code == http.StatusOK {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	s.Equal(1, ok)
}

func TestSignupFlowTestSuite(t *testing.T) {
	suite.Run(t, new(SignupFlowTestSuite))
}
