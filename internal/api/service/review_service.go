package service

import (
	"context"
	"errors"
	"fmt"

	"reviewhub/internal/access"
	"reviewhub/internal/api/dto"
	"reviewhub/internal/api/models"
	"reviewhub/internal/api/repository"
	"reviewhub/internal/metrics"
)

type ReviewService interface {
	List(ctx context.Context, titleID int64, page repository.Page) (*dto.Paginated[dto.ReviewResponse], error)
	Get(ctx context.Context, titleID, id int64) (*dto.ReviewResponse, error)
	Create(ctx context.Context, actor access.Actor, titleID int64, req dto.CreateReviewRequest) (*dto.ReviewResponse, error)
	Update(ctx context.Context, actor access.Actor, titleID, id int64, req dto.UpdateReviewRequest) (*dto.ReviewResponse, error)
	Delete(ctx context.Context, actor access.Actor, titleID, id int64) error
}

type reviewService struct {
	reviewRepo repository.ReviewRepository
	titleRepo  repository.TitleRepository
}

func NewReviewService(reviewRepo repository.ReviewRepository, titleRepo repository.TitleRepository) ReviewService {
	return &reviewService{
		reviewRepo: reviewRepo,
		titleRepo:  titleRepo,
	}
}

func (s *reviewService) List(ctx context.Context, titleID int64, page repository.Page) (*dto.Paginated[dto.ReviewResponse], error) {
	if err := s.requireTitle(ctx, titleID); err != nil {
		return nil, err
	}
	reviews, total, err := s.reviewRepo.ListByTitle(ctx, titleID, page)
	if err != nil {
		return nil, err
	}
	data := make([]dto.ReviewResponse, 0, len(reviews))
	for i := range reviews {
		data = append(data, *dto.FromModelToReviewResponse(&reviews[i]))
	}
	return dto.NewPaginated(data, int(total), page.Number, page.Size), nil
}

func (s *reviewService) Get(ctx context.Context, titleID, id int64) (*dto.ReviewResponse, error) {
	review, err := s.reviewRepo.FindByID(ctx, titleID, id)
	if err != nil {
		return nil, notFound("review", "get review", err)
	}
	return dto.FromModelToReviewResponse(review), nil
}

// Create adds the actor's review of a title. The existence check only
// short-circuits the common case; the unique index decides races.
func (s *reviewService) Create(ctx context.Context, actor access.Actor, titleID int64, req dto.CreateReviewRequest) (*dto.ReviewResponse, error) {
	if err := authorize(actor, access.Create, access.On(access.Review)); err != nil {
		return nil, err
	}
	if err := s.requireTitle(ctx, titleID); err != nil {
		return nil, err
	}

	text := cleanText(req.Text)
	if err := validateReview(text, req.Score); err != nil {
		return nil, err
	}

	exists, err := s.reviewRepo.ExistsByAuthorAndTitle(ctx, actor.UserID, titleID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errDuplicateReview()
	}

	review := &models.Review{
		TitleID:  titleID,
		AuthorID: actor.UserID,
		Text:     text,
		Score:    req.Score,
	}
	if err := s.reviewRepo.Create(ctx, review); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, errDuplicateReview()
		}
		return nil, fmt.Errorf("create review: %w", err)
	}
	return s.Get(ctx, titleID, review.ID)
}

func (s *reviewService) Update(ctx context.Context, actor access.Actor, titleID, id int64, req dto.UpdateReviewRequest) (*dto.ReviewResponse, error) {
	review, err := s.reviewRepo.FindByID(ctx, titleID, id)
	if err != nil {
		return nil, notFound("review", "get review", err)
	}
	if err := authorize(actor, access.Update, access.Authored(access.Review, review.AuthorID)); err != nil {
		return nil, err
	}

	if req.Text != nil {
		review.Text = cleanText(*req.Text)
	}
	if req.Score != nil {
		review.Score = *req.Score
	}
	if err := validateReview(review.Text, review.Score); err != nil {
		return nil, err
	}

	if err := s.reviewRepo.Update(ctx, review); err != nil {
		return nil, notFound("review", "update review", err)
	}
	return dto.FromModelToReviewResponse(review), nil
}

func (s *reviewService) Delete(ctx context.Context, actor access.Actor, titleID, id int64) error {
	review, err := s.reviewRepo.FindByID(ctx, titleID, id)
	if err != nil {
		return notFound("review", "get review", err)
	}
	if err := authorize(actor, access.Delete, access.Authored(access.Review, review.AuthorID)); err != nil {
		return err
	}
	if err := s.reviewRepo.Delete(ctx, titleID, id); err != nil {
		return notFound("review", "delete review", err)
	}
	return nil
}

func (s *reviewService) requireTitle(ctx context.Context, titleID int64) error {
	ok, err := s.titleRepo.Exists(ctx, titleID)
	if err != nil {
		return err
	}
	if !ok {
		return &NotFoundError{Resource: "title"}
	}
	return nil
}

func validateReview(text string, score int) error {
	verr := &ValidationError{}
	if text == "" {
		verr.Add("text", "text must not be empty")
	}
	if !models.ScoreInRange(score) {
		verr.Add("score", fmt.Sprintf("score must be between %d and %d", models.MinScore, models.MaxScore))
	}
	return verr.OrNil()
}

func errDuplicateReview() error {
	metrics.ReviewConflicts.Inc()
	return &ConflictError{Reason: "you have already reviewed this title"}
}
