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

// CatalogHandler serves /categories or /genres.
type CatalogHandler struct {
	catalogService service.CatalogService
	kind           access.Kind
	logger         *slog.Logger
}

func NewCategoryHandler(s service.CatalogService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{catalogService: s, kind: access.Category, logger: logger}
}

func NewGenreHandler(s service.CatalogService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{catalogService: s, kind: access.Genre, logger: logger}
}

func (h *CatalogHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("", h.List)
	router.POST("", middleware.Authorize(access.Create, h.kind), h.Create)
	router.DELETE("/:slug", middleware.Authorize(access.Delete, h.kind), h.Delete)
}

// List returns entries ordered by name
// GET /api/v1/categories?search=&page=1&page_size=20
func (h *CatalogHandler) List(c *gin.Context) {
	var q dto.CatalogQuery
	if !bindQuery(c, &q) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	resp, err := h.catalogService.List(ctx, q.Search, pageFrom(q.PageQuery))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CatalogHandler) Create(c *gin.Context) {
	var req dto.CatalogEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	resp, err := h.catalogService.Create(ctx, middleware.ActorFrom(c), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *CatalogHandler) Delete(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.catalogService.Delete(ctx, middleware.ActorFrom(c), c.Param("slug")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
