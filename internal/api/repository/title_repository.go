package repository

import (
	"context"
	"fmt"

	"reviewhub/internal/api/models"

	"gorm.io/gorm"
)

// ratingColumn selects the mean review score alongside every title row.
const ratingColumn = "titles.*, (SELECT AVG(reviews.score)::float8 FROM reviews WHERE reviews.title_id = titles.id) AS rating"

// TitleFilter narrows title listings; zero values mean "no filter".
type TitleFilter struct {
	Category string
	Genre    string
	Name     string
	Year     *int
}

type TitleRepository interface {
	Create(ctx context.Context, title *models.Title, genres []models.Genre) error
	// Update writes the scalar columns and, when genres is non-nil, replaces
	// the genre links in the same transaction.
	Update(ctx context.Context, title *models.Title, genres []models.Genre) error
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (*models.Title, error)
	Exists(ctx context.Context, id int64) (bool, error)
	List(ctx context.Context, filter TitleFilter, page Page) ([]models.Title, int64, error)
}

type titleRepository struct {
	db *gorm.DB
}

func NewTitleRepository(db *gorm.DB) TitleRepository {
	return &titleRepository{db: db}
}

func (r *titleRepository) Create(ctx context.Context, title *models.Title, genres []models.Genre) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Genres", "Category").Create(title).Error; err != nil {
			return translateError(err)
		}
		if len(genres) == 0 {
			return nil
		}
		if err := tx.Model(title).Association("Genres").Replace(genres); err != nil {
			return fmt.Errorf("link genres: %w", translateError(err))
		}
		return nil
	})
}

func (r *titleRepository) Update(ctx context.Context, title *models.Title, genres []models.Genre) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(title).
			Select("name", "year", "description", "category_id").
			Updates(title)
		if result.Error != nil {
			return translateError(result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		if genres == nil {
			return nil
		}
		if err := tx.Model(title).Association("Genres").Replace(genres); err != nil {
			return fmt.Errorf("replace genres: %w", translateError(err))
		}
		return nil
	})
}

// Delete relies on the foreign keys to cascade reviews, comments and genre links.
func (r *titleRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&models.Title{}, id)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *titleRepository) FindByID(ctx context.Context, id int64) (*models.Title, error) {
	var title models.Title
	err := r.db.WithContext(ctx).
		Select(ratingColumn).
		Preload("Category").
		Preload("Genres", func(db *gorm.DB) *gorm.DB { return db.Order("genres.name asc") }).
		Where("titles.id = ?", id).
		First(&title).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &title, nil
}

func (r *titleRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Title{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check title: %w", err)
	}
	return count > 0, nil
}

func (r *titleRepository) List(ctx context.Context, filter TitleFilter, page Page) ([]models.Title, int64, error) {
	var titles []models.Title
	var total int64

	q := r.db.WithContext(ctx).Model(&models.Title{})
	if filter.Category != "" {
		q = q.Where("titles.category_id IN (?)",
			r.db.Model(&models.Category{}).Select("id").Where("slug = ?", filter.Category))
	}
	if filter.Genre != "" {
		q = q.Where("EXISTS (SELECT 1 FROM title_genres JOIN genres ON genres.id = title_genres.genre_id "+
			"WHERE title_genres.title_id = titles.id AND genres.slug = ?)", filter.Genre)
	}
	if filter.Name != "" {
		q = q.Where("titles.name ILIKE ?", containsPattern(filter.Name))
	}
	if filter.Year != nil {
		q = q.Where("titles.year = ?", *filter.Year)
	}
	q = q.Session(&gorm.Session{})

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count titles: %w", err)
	}

	err := q.Select(ratingColumn).
		Preload("Category").
		Preload("Genres", func(db *gorm.DB) *gorm.DB { return db.Order("genres.name asc") }).
		Order("titles.name asc").
		Limit(page.Limit()).
		Offset(page.Offset()).
		Find(&titles).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list titles: %w", err)
	}
	return titles, total, nil
}
