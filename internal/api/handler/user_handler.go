package handler

import (
	"log/slog"
	"net/http"

	"reviewhub/internal/access"
	"reviewhub/internal/api/dto"
	"reviewhub/internal/api/middleware"
	"reviewhub/internal/api/service"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userService service.UserService
	logger      *slog.Logger
}

func NewUserHandler(userService service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{userService: userService, logger: logger}
}

// RegisterRoutes registers user routes on a /users group
func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	// Self profile; the static segment wins over :username
	router.GET("/me", middleware.RequireAuthenticated(), h.Me)
	router.PATCH("/me", middleware.RequireAuthenticated(), h.UpdateMe)

	// Account management (admin only)
	router.GET("", middleware.Authorize(access.Read, access.Account), h.List)
	router.POST("", middleware.Authorize(access.Create, access.Account), h.Create)
	router.GET("/:username", middleware.Authorize(access.Read, access.Account), h.Get)
	router.PATCH("/:username", middleware.Authorize(access.Update, access.Account), h.Update)
	router.DELETE("/:username", middleware.Authorize(access.Delete, access.Account), h.Delete)
}

// List returns accounts ordered by username
// GET /api/v1/users?search=&page=1&page_size=20
func (h *UserHandler) List(c *gin.Context) {
	var q dto.UserQuery
	if !bindQuery(c, &q) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	resp, err := h.userService.List(ctx, middleware.ActorFrom(c), q.Search, pageFrom(q.PageQuery))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *UserHandler) Create(c *gin.Context) {
	var req dto.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	resp, err := h.userService.Create(ctx, middleware.ActorFrom(c), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *UserHandler) Get(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	resp, err := h.userService.Get(ctx, middleware.ActorFrom(c), c.Param("username"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *UserHandler) Update(c *gin.Context) {
	var req dto.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	resp, err := h.userService.Update(ctx, middleware.ActorFrom(c), c.Param("username"), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *UserHandler) Delete(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.userService.Delete(ctx, middleware.ActorFrom(c), c.Param("username")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Me returns the caller's own record
// GET /api/v1/users/me
func (h *UserHandler) Me(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	resp, err := h.userService.Me(ctx, middleware.ActorFrom(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// UpdateMe edits the caller's own record; role changes need an admin
// PATCH /api/v1/users/me
func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req dto.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	resp, err := h.userService.UpdateMe(ctx, middleware.ActorFrom(c), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
