package repository

import (
	"context"
	"fmt"

	"reviewhub/internal/api/models"

	"gorm.io/gorm"
)

// SlugRepository covers the slug-addressed catalog tables.
type SlugRepository[T any] interface {
	Create(ctx context.Context, entry *T) error
	FindBySlug(ctx context.Context, slug string) (*T, error)
	FindBySlugs(ctx context.Context, slugs []string) ([]T, error)
	DeleteBySlug(ctx context.Context, slug string) error
	List(ctx context.Context, search string, page Page) ([]T, int64, error)
}

type (
	CategoryRepository = SlugRepository[models.Category]
	GenreRepository    = SlugRepository[models.Genre]
)

type slugRepository[T any] struct {
	db    *gorm.DB
	label string
	// detach runs inside the delete transaction before the row goes away.
	detach func(tx *gorm.DB, slug string) error
}

// NewCategoryRepository deletes categories by nulling title references first,
// so titles survive the removal of their category.
func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &slugRepository[models.Category]{
		db:    db,
		label: "category",
		detach: func(tx *gorm.DB, slug string) error {
			ids := tx.Model(&models.Category{}).Select("id").Where("slug = ?", slug)
			return tx.Model(&models.Title{}).
				Where("category_id IN (?)", ids).
				Update("category_id", nil).Error
		},
	}
}

func NewGenreRepository(db *gorm.DB) GenreRepository {
	return &slugRepository[models.Genre]{
		db:    db,
		label: "genre",
		detach: func(tx *gorm.DB, slug string) error {
			ids := tx.Model(&models.Genre{}).Select("id").Where("slug = ?", slug)
			return tx.Where("genre_id IN (?)", ids).Delete(&models.TitleGenre{}).Error
		},
	}
}

func (r *slugRepository[T]) Create(ctx context.Context, entry *T) error {
	return translateError(r.db.WithContext(ctx).Create(entry).Error)
}

func (r *slugRepository[T]) FindBySlug(ctx context.Context, slug string) (*T, error) {
	var entry T
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&entry).Error; err != nil {
		return nil, translateError(err)
	}
	return &entry, nil
}

// FindBySlugs returns the rows that exist; callers compare lengths to spot
// unknown slugs.
func (r *slugRepository[T]) FindBySlugs(ctx context.Context, slugs []string) ([]T, error) {
	var entries []T
	if len(slugs) == 0 {
		return entries, nil
	}
	if err := r.db.WithContext(ctx).Where("slug IN ?", slugs).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("find %s by slugs: %w", r.label, err)
	}
	return entries, nil
}

func (r *slugRepository[T]) DeleteBySlug(ctx context.Context, slug string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if r.detach != nil {
			if err := r.detach(tx, slug); err != nil {
				return fmt.Errorf("detach %s: %w", r.label, err)
			}
		}
		result := tx.Where("slug = ?", slug).Delete(new(T))
		if result.Error != nil {
			return translateError(result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *slugRepository[T]) List(ctx context.Context, search string, page Page) ([]T, int64, error) {
	var entries []T
	var total int64

	q := r.db.WithContext(ctx).Model(new(T))
	if search != "" {
		q = q.Where("name ILIKE ?", containsPattern(search))
	}
	q = q.Session(&gorm.Session{})

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", r.label, err)
	}
	if err := q.Order("name asc").
		Limit(page.Limit()).
		Offset(page.Offset()).
		Find(&entries).Error; err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", r.label, err)
	}
	return entries, total, nil
}
