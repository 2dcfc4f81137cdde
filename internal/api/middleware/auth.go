package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"reviewhub/internal/access"
	"reviewhub/internal/api/models"
	"reviewhub/internal/api/service"

	"github.com/gin-gonic/gin"
)

const (
	actorKey  = "actor"
	userIDKey = "userID"
)

type TokenValidator interface {
	ValidateToken(tokenString string) (*service.Claims, error)
}

type UserFinder interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// Authenticate resolves the caller. A request without credentials proceeds
// as access.Anonymous; a request with a bad or stale token is rejected.
// Roles come from the stored account, never from the token.
func Authenticate(tokens TokenValidator, users UserFinder) gin.HandlerFunc {
	return authenticate(tokens, users, abortUnauthorized)
}

// AuthenticateOptional resolves the caller like Authenticate but treats a
// bad or stale token as no token at all.
func AuthenticateOptional(tokens TokenValidator, users UserFinder) gin.HandlerFunc {
	return authenticate(tokens, users, func(c *gin.Context, _ string) {
		c.Set(actorKey, access.Anonymous)
		c.Next()
	})
}

func authenticate(tokens TokenValidator, users UserFinder, reject func(c *gin.Context, msg string)) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Set(actorKey, access.Anonymous)
			c.Next()
			return
		}

		// format: "Bearer <token>"
		scheme, tokenString, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(tokenString) == "" {
			reject(c, "invalid authorization header format")
			return
		}

		claims, err := tokens.ValidateToken(strings.TrimSpace(tokenString))
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, service.ErrExpiredToken) {
				msg = "token has expired"
			}
			reject(c, msg)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()
		user, err := users.FindByID(ctx, claims.UserID)
		if err != nil {
			reject(c, "user not found")
			return
		}

		c.Set(actorKey, user.Actor())
		c.Set(userIDKey, user.ID)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", `Bearer realm="api"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}

// ActorFrom returns the actor set by Authenticate, or access.Anonymous.
func ActorFrom(c *gin.Context) access.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(access.Actor); ok {
			return actor
		}
	}
	return access.Anonymous
}

// RequireAuthenticated rejects anonymous callers with 401.
func RequireAuthenticated() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ActorFrom(c).IsAuthenticated() {
			abortUnauthorized(c, service.ErrUnauthenticated.Error())
			return
		}
		c.Next()
	}
}

// Authorize guards a route with a collection-level predicate: 401 for
// anonymous callers, 403 for authenticated ones.
func Authorize(act access.Action, kind access.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := ActorFrom(c)
		if access.Allowed(actor, act, access.On(kind)) {
			c.Next()
			return
		}
		if !actor.IsAuthenticated() {
			abortUnauthorized(c, service.ErrUnauthenticated.Error())
			return
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": service.ErrForbidden.Error()})
	}
}
