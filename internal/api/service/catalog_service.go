package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"reviewhub/internal/access"
	"reviewhub/internal/api/dto"
	"reviewhub/internal/api/models"
	"reviewhub/internal/api/repository"
)

// CatalogService manages one slug-addressed catalog: categories or genres.
type CatalogService interface {
	List(ctx context.Context, search string, page repository.Page) (*dto.Paginated[dto.CatalogEntryResponse], error)
	Create(ctx context.Context, actor access.Actor, req dto.CatalogEntryRequest) (*dto.CatalogEntryResponse, error)
	Delete(ctx context.Context, actor access.Actor, slug string) error
}

type catalogService[T any] struct {
	repo     repository.SlugRepository[T]
	kind     access.Kind
	label    string
	build    func(req dto.CatalogEntryRequest) *T
	response func(*T) *dto.CatalogEntryResponse
}

func NewCategoryService(repo repository.CategoryRepository) CatalogService {
	return &catalogService[models.Category]{
		repo:  repo,
		kind:  access.Category,
		label: "category",
		build: func(req dto.CatalogEntryRequest) *models.Category {
			return &models.Category{Name: req.Name, Slug: req.Slug}
		},
		response: dto.FromModelToCategoryResponse,
	}
}

func NewGenreService(repo repository.GenreRepository) CatalogService {
	return &catalogService[models.Genre]{
		repo:  repo,
		kind:  access.Genre,
		label: "genre",
		build: func(req dto.CatalogEntryRequest) *models.Genre {
			return &models.Genre{Name: req.Name, Slug: req.Slug}
		},
		response: dto.FromModelToGenreResponse,
	}
}

func (s *catalogService[T]) List(ctx context.Context, search string, page repository.Page) (*dto.Paginated[dto.CatalogEntryResponse], error) {
	entries, total, err := s.repo.List(ctx, strings.TrimSpace(search), page)
	if err != nil {
		return nil, err
	}
	data := make([]dto.CatalogEntryResponse, 0, len(entries))
	for i := range entries {
		data = append(data, *s.response(&entries[i]))
	}
	return dto.NewPaginated(data, int(total), page.Number, page.Size), nil
}

func (s *catalogService[T]) Create(ctx context.Context, actor access.Actor, req dto.CatalogEntryRequest) (*dto.CatalogEntryResponse, error) {
	if err := authorize(actor, access.Create, access.On(s.kind)); err != nil {
		return nil, err
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Slug = strings.TrimSpace(req.Slug)
	verr := &ValidationError{}
	if req.Name == "" || len([]rune(req.Name)) > models.MaxNameLen {
		verr.Add("name", "name is required and must be at most 256 characters")
	}
	if !models.ValidSlug(req.Slug) {
		verr.Add("slug", "slug may contain only latin letters, digits, hyphens and underscores (max 50)")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	entry := s.build(req)
	if err := s.repo.Create(ctx, entry); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fieldError("slug", fmt.Sprintf("%s with this slug already exists.", s.label))
		}
		return nil, fmt.Errorf("create %s: %w", s.label, err)
	}
	return s.response(entry), nil
}

func (s *catalogService[T]) Delete(ctx context.Context, actor access.Actor, slug string) error {
	if err := authorize(actor, access.Delete, access.On(s.kind)); err != nil {
		return err
	}
	if err := s.repo.DeleteBySlug(ctx, slug); err != nil {
		return notFound(s.label, "delete "+s.label, err)
	}
	return nil
}
