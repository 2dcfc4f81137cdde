package dto

import (
	"testing"

	"reviewhub/internal/api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundRating(t *testing.T) {
	assert.Nil(t, RoundRating(nil))

	cases := map[float64]int{7: 7, 7.4: 7, 7.5: 8, 8.5: 9, 1.49: 1, 9.99: 10}
	for mean, want := range cases {
		got := RoundRating(&mean)
		require.NotNil(t, got)
		assert.Equal(t, want, *got, mean)
	}
}

func TestFromModelToTitleResponse(t *testing.T) {
	mean := 6.5
	resp := FromModelToTitleResponse(&models.Title{
		ID:       3,
		Name:     "Solaris",
		Year:     1961,
		Category: &models.Category{Name: "Books", Slug: "books"},
		Genres:   []models.Genre{{Name: "Sci-Fi", Slug: "sci-fi"}},
		Rating:   &mean,
	})

	assert.Equal(t, "Solaris", resp.Name)
	require.NotNil(t, resp.Rating)
	assert.Equal(t, 7, *resp.Rating)
	assert.Equal(t, []CatalogEntryResponse{{Name: "Sci-Fi", Slug: "sci-fi"}}, resp.Genre)
	assert.Equal(t, "books", resp.Category.Slug)

	bare := FromModelToTitleResponse(&models.Title{Name: "Untitled"})
	assert.Nil(t, bare.Rating)
	assert.Nil(t, bare.Category)
	assert.NotNil(t, bare.Genre)
}

func TestNewPaginated(t *testing.T) {
	p := NewPaginated[int](nil, 41, 2, 20)
	assert.Equal(t, []int{}, p.Data)
	assert.Equal(t, 3, p.TotalPages)

	p = NewPaginated([]int{1}, 20, 1, 20)
	assert.Equal(t, 1, p.TotalPages)
}
