package handler

import (
	"log/slog"
	"net/http"

	"reviewhub/internal/access"
	"reviewhub/internal/api/dto"
	"reviewhub/internal/api/middleware"
	"reviewhub/internal/api/repository"
	"reviewhub/internal/api/service"

	"github.com/gin-gonic/gin"
)

type TitleHandler struct {
	titleService service.TitleService
	logger       *slog.Logger
}

func NewTitleHandler(titleService service.TitleService, logger *slog.Logger) *TitleHandler {
	return &TitleHandler{titleService: titleService, logger: logger}
}

// RegisterRoutes registers title routes on a /titles group
func (h *TitleHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("", h.List)
	router.GET("/:title_id", h.Get)

	router.POST("", middleware.Authorize(access.Create, access.Title), h.Create)
	router.PATCH("/:title_id", middleware.Authorize(access.Update, access.Title), h.Update)
	router.DELETE("/:title_id", middleware.Authorize(access.Delete, access.Title), h.Delete)
}

// List filters titles by category/genre slug, name substring and year
// GET /api/v1/titles?category=&genre=&name=&year=&page=1&page_size=20
func (h *TitleHandler) List(c *gin.Context) {
	var q dto.TitleQuery
	if !bindQuery(c, &q) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	filter := repository.TitleFilter{Category: q.Category, Genre: q.Genre, Name: q.Name, Year: q.Year}
	resp, err := h.titleService.List(ctx, filter, pageFrom(q.PageQuery))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *TitleHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "title_id", "title")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	resp, err := h.titleService.Get(ctx, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *TitleHandler) Create(c *gin.Context) {
	var req dto.CreateTitleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	resp, err := h.titleService.Create(ctx, middleware.ActorFrom(c), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *TitleHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "title_id", "title")
	if !ok {
		return
	}
	var req dto.UpdateTitleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	resp, err := h.titleService.Update(ctx, middleware.ActorFrom(c), id, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *TitleHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "title_id", "title")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.titleService.Delete(ctx, middleware.ActorFrom(c), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
