package dto

import "reviewhub/internal/api/models"

// CatalogEntryRequest creates a category or a genre.
type CatalogEntryRequest struct {
	Name string `json:"name" binding:"required,max=256"`
	Slug string `json:"slug" binding:"required,max=50,slug"`
}

type CatalogEntryResponse struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type CatalogQuery struct {
	PageQuery
	Search string `form:"search"`
}

func FromModelToCategoryResponse(c *models.Category) *CatalogEntryResponse {
	return &CatalogEntryResponse{Name: c.Name, Slug: c.Slug}
}

func FromModelToGenreResponse(g *models.Genre) *CatalogEntryResponse {
	return &CatalogEntryResponse{Name: g.Name, Slug: g.Slug}
}
