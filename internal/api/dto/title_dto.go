package dto

import (
	"math"

	"reviewhub/internal/api/models"
)

// CreateTitleRequest references category and genres by slug.
type CreateTitleRequest struct {
	Name        string   `json:"name" binding:"required,max=256"`
	Year        *int     `json:"year" binding:"required"`
	Description string   `json:"description"`
	Genre       []string `json:"genre" binding:"omitempty,dive,slug"`
	Category    string   `json:"category" binding:"omitempty,slug"`
}

// UpdateTitleRequest is a partial update; nil fields are left untouched.
// An empty Category clears the category, an empty Genre list clears genres.
type UpdateTitleRequest struct {
	Name        *string   `json:"name" binding:"omitempty,max=256"`
	Year        *int      `json:"year"`
	Description *string   `json:"description"`
	Genre       *[]string `json:"genre"`
	Category    *string   `json:"category" binding:"omitempty"`
}

type TitleQuery struct {
	PageQuery
	Category string `form:"category"`
	Genre    string `form:"genre"`
	Name     string `form:"name"`
	Year     *int   `form:"year"`
}

type TitleResponse struct {
	ID          int64                  `json:"id"`
	Name        string                 `json:"name"`
	Year        int                    `json:"year"`
	Rating      *int                   `json:"rating"`
	Description string                 `json:"description"`
	Genre       []CatalogEntryResponse `json:"genre"`
	Category    *CatalogEntryResponse  `json:"category"`
}

// RoundRating turns the mean score into the published integer rating.
// Halves round away from zero.
func RoundRating(mean *float64) *int {
	if mean == nil {
		return nil
	}
	r := int(math.Round(*mean))
	return &r
}

func FromModelToTitleResponse(t *models.Title) *TitleResponse {
	genres := make([]CatalogEntryResponse, 0, len(t.Genres))
	for i := range t.Genres {
		genres = append(genres, *FromModelToGenreResponse(&t.Genres[i]))
	}
	var category *CatalogEntryResponse
	if t.Category != nil {
		category = FromModelToCategoryResponse(t.Category)
	}
	return &TitleResponse{
		ID:          t.ID,
		Name:        t.Name,
		Year:        t.Year,
		Rating:      RoundRating(t.Rating),
		Description: t.Description,
		Genre:       genres,
		Category:    category,
	}
}
