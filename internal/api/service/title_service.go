package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"reviewhub/internal/access"
	"reviewhub/internal/api/dto"
	"reviewhub/internal/api/models"
	"reviewhub/internal/api/repository"
)

type TitleService interface {
	List(ctx context.Context, filter repository.TitleFilter, page repository.Page) (*dto.Paginated[dto.TitleResponse], error)
	Get(ctx context.Context, id int64) (*dto.TitleResponse, error)
	Create(ctx context.Context, actor access.Actor, req dto.CreateTitleRequest) (*dto.TitleResponse, error)
	Update(ctx context.Context, actor access.Actor, id int64, req dto.UpdateTitleRequest) (*dto.TitleResponse, error)
	Delete(ctx context.Context, actor access.Actor, id int64) error
}

type titleService struct {
	titleRepo    repository.TitleRepository
	categoryRepo repository.CategoryRepository
	genreRepo    repository.GenreRepository
	now          func() time.Time
}

func NewTitleService(
	titleRepo repository.TitleRepository,
	categoryRepo repository.CategoryRepository,
	genreRepo repository.GenreRepository,
) TitleService {
	return &titleService{
		titleRepo:    titleRepo,
		categoryRepo: categoryRepo,
		genreRepo:    genreRepo,
		now:          time.Now,
	}
}

func (s *titleService) List(ctx context.Context, filter repository.TitleFilter, page repository.Page) (*dto.Paginated[dto.TitleResponse], error) {
	titles, total, err := s.titleRepo.List(ctx, filter, page)
	if err != nil {
		return nil, err
	}
	data := make([]dto.TitleResponse, 0, len(titles))
	for i := range titles {
		data = append(data, *dto.FromModelToTitleResponse(&titles[i]))
	}
	return dto.NewPaginated(data, int(total), page.Number, page.Size), nil
}

func (s *titleService) Get(ctx context.Context, id int64) (*dto.TitleResponse, error) {
	title, err := s.titleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound("title", "get title", err)
	}
	return dto.FromModelToTitleResponse(title), nil
}

func (s *titleService) Create(ctx context.Context, actor access.Actor, req dto.CreateTitleRequest) (*dto.TitleResponse, error) {
	if err := authorize(actor, access.Create, access.On(access.Title)); err != nil {
		return nil, err
	}

	verr := &ValidationError{}
	name := strings.TrimSpace(req.Name)
	s.checkName(verr, name)
	if req.Year == nil {
		verr.Add("year", "year is required")
	} else {
		s.checkYear(verr, *req.Year)
	}

	categoryID := s.resolveCategory(ctx, verr, req.Category)
	genres, err := s.resolveGenres(ctx, verr, req.Genre)
	if err != nil {
		return nil, err
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	title := &models.Title{
		Name:        name,
		Year:        *req.Year,
		Description: strings.TrimSpace(req.Description),
		CategoryID:  categoryID,
	}
	if err := s.titleRepo.Create(ctx, title, genres); err != nil {
		return nil, titleWriteError(err)
	}
	return s.Get(ctx, title.ID)
}

func (s *titleService) Update(ctx context.Context, actor access.Actor, id int64, req dto.UpdateTitleRequest) (*dto.TitleResponse, error) {
	if err := authorize(actor, access.Update, access.On(access.Title)); err != nil {
		return nil, err
	}

	title, err := s.titleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound("title", "get title", err)
	}

	verr := &ValidationError{}
	if req.Name != nil {
		title.Name = strings.TrimSpace(*req.Name)
		s.checkName(verr, title.Name)
	}
	if req.Year != nil {
		title.Year = *req.Year
		s.checkYear(verr, title.Year)
	}
	if req.Description != nil {
		title.Description = strings.TrimSpace(*req.Description)
	}
	if req.Category != nil {
		title.CategoryID = s.resolveCategory(ctx, verr, *req.Category)
	}

	var genres []models.Genre
	if req.Genre != nil {
		genres, err = s.resolveGenres(ctx, verr, *req.Genre)
		if err != nil {
			return nil, err
		}
		if genres == nil {
			genres = []models.Genre{}
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	title.Category = nil
	title.Genres = nil
	if err := s.titleRepo.Update(ctx, title, genres); err != nil {
		return nil, titleWriteError(err)
	}
	return s.Get(ctx, id)
}

func (s *titleService) Delete(ctx context.Context, actor access.Actor, id int64) error {
	if err := authorize(actor, access.Delete, access.On(access.Title)); err != nil {
		return err
	}
	if err := s.titleRepo.Delete(ctx, id); err != nil {
		return notFound("title", "delete title", err)
	}
	return nil
}

func (s *titleService) checkName(verr *ValidationError, name string) {
	if name == "" || len([]rune(name)) > models.MaxNameLen {
		verr.Add("name", "name is required and must be at most 256 characters")
	}
}

// checkYear rejects negative years and years after the current one.
func (s *titleService) checkYear(verr *ValidationError, year int) {
	if year < 0 {
		verr.Add("year", "year must not be negative")
		return
	}
	if current := s.now().UTC().Year(); year > current {
		verr.Add("year", fmt.Sprintf("year must not be later than %d", current))
	}
}

// resolveCategory maps a slug to its id. An empty slug means no category.
func (s *titleService) resolveCategory(ctx context.Context, verr *ValidationError, slug string) *int64 {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil
	}
	category, err := s.categoryRepo.FindBySlug(ctx, slug)
	if err != nil {
		verr.Add("category", fmt.Sprintf("category %q does not exist", slug))
		return nil
	}
	return &category.ID
}

func (s *titleService) resolveGenres(ctx context.Context, verr *ValidationError, slugs []string) ([]models.Genre, error) {
	wanted := dedupe(slugs)
	if len(wanted) == 0 {
		return nil, nil
	}
	genres, err := s.genreRepo.FindBySlugs(ctx, wanted)
	if err != nil {
		return nil, err
	}
	if len(genres) != len(wanted) {
		found := make(map[string]bool, len(genres))
		for _, g := range genres {
			found[g.Slug] = true
		}
		var missing []string
		for _, slug := range wanted {
			if !found[slug] {
				missing = append(missing, slug)
			}
		}
		verr.Add("genre", fmt.Sprintf("unknown genre: %s", strings.Join(missing, ", ")))
	}
	return genres, nil
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func titleWriteError(err error) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return fieldError("name", "title with this name already exists.")
	}
	if errors.Is(err, repository.ErrNotFound) {
		return &NotFoundError{Resource: "title"}
	}
	return fmt.Errorf("save title: %w", err)
}
