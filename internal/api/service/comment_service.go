package service

import (
	"context"
	"fmt"

	"reviewhub/internal/access"
	"reviewhub/internal/api/dto"
	"reviewhub/internal/api/models"
	"reviewhub/internal/api/repository"
)

type CommentService interface {
	List(ctx context.Context, titleID, reviewID int64, page repository.Page) (*dto.Paginated[dto.CommentResponse], error)
	Get(ctx context.Context, titleID, reviewID, id int64) (*dto.CommentResponse, error)
	Create(ctx context.Context, actor access.Actor, titleID, reviewID int64, req dto.CommentRequest) (*dto.CommentResponse, error)
	Update(ctx context.Context, actor access.Actor, titleID, reviewID, id int64, req dto.CommentRequest) (*dto.CommentResponse, error)
	Delete(ctx context.Context, actor access.Actor, titleID, reviewID, id int64) error
}

type commentService struct {
	commentRepo repository.CommentRepository
	reviewRepo  repository.ReviewRepository
}

func NewCommentService(commentRepo repository.CommentRepository, reviewRepo repository.ReviewRepository) CommentService {
	return &commentService{
		commentRepo: commentRepo,
		reviewRepo:  reviewRepo,
	}
}

// review resolves the parent review under its title; a review reached
// through the wrong title is reported missing.
func (s *commentService) review(ctx context.Context, titleID, reviewID int64) (*models.Review, error) {
	review, err := s.reviewRepo.FindByID(ctx, titleID, reviewID)
	if err != nil {
		return nil, notFound("review", "get review", err)
	}
	return review, nil
}

func (s *commentService) List(ctx context.Context, titleID, reviewID int64, page repository.Page) (*dto.Paginated[dto.CommentResponse], error) {
	if _, err := s.review(ctx, titleID, reviewID); err != nil {
		return nil, err
	}
	comments, total, err := s.commentRepo.ListByReview(ctx, reviewID, page)
	if err != nil {
		return nil, err
	}
	data := make([]dto.CommentResponse, 0, len(comments))
	for i := range comments {
		data = append(data, *dto.FromModelToCommentResponse(&comments[i]))
	}
	return dto.NewPaginated(data, int(total), page.Number, page.Size), nil
}

func (s *commentService) Get(ctx context.Context, titleID, reviewID, id int64) (*dto.CommentResponse, error) {
	if _, err := s.review(ctx, titleID, reviewID); err != nil {
		return nil, err
	}
	comment, err := s.commentRepo.FindByID(ctx, reviewID, id)
	if err != nil {
		return nil, notFound("comment", "get comment", err)
	}
	return dto.FromModelToCommentResponse(comment), nil
}

func (s *commentService) Create(ctx context.Context, actor access.Actor, titleID, reviewID int64, req dto.CommentRequest) (*dto.CommentResponse, error) {
	if err := authorize(actor, access.Create, access.On(access.Comment)); err != nil {
		return nil, err
	}
	if _, err := s.review(ctx, titleID, reviewID); err != nil {
		return nil, err
	}

	text := cleanText(req.Text)
	if text == "" {
		return nil, fieldError("text", "text must not be empty")
	}

	comment := &models.Comment{
		ReviewID: reviewID,
		AuthorID: actor.UserID,
		Text:     text,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}

	// Reload with author and review
	created, err := s.commentRepo.FindByID(ctx, reviewID, comment.ID)
	if err != nil {
		return nil, notFound("comment", "get comment", err)
	}
	return dto.FromModelToCommentResponse(created), nil
}

func (s *commentService) Update(ctx context.Context, actor access.Actor, titleID, reviewID, id int64, req dto.CommentRequest) (*dto.CommentResponse, error) {
	if _, err := s.review(ctx, titleID, reviewID); err != nil {
		return nil, err
	}
	comment, err := s.commentRepo.FindByID(ctx, reviewID, id)
	if err != nil {
		return nil, notFound("comment", "get comment", err)
	}
	if err := authorize(actor, access.Update, access.Authored(access.Comment, comment.AuthorID)); err != nil {
		return nil, err
	}

	text := cleanText(req.Text)
	if text == "" {
		return nil, fieldError("text", "text must not be empty")
	}
	comment.Text = text
	if err := s.commentRepo.Update(ctx, comment); err != nil {
		return nil, notFound("comment", "update comment", err)
	}
	return dto.FromModelToCommentResponse(comment), nil
}

func (s *commentService) Delete(ctx context.Context, actor access.Actor, titleID, reviewID, id int64) error {
	if _, err := s.review(ctx, titleID, reviewID); err != nil {
		return err
	}
	comment, err := s.commentRepo.FindByID(ctx, reviewID, id)
	if err != nil {
		return notFound("comment", "get comment", err)
	}
	if err := authorize(actor, access.Delete, access.Authored(access.Comment, comment.AuthorID)); err != nil {
		return err
	}
	if err := s.commentRepo.Delete(ctx, reviewID, id); err != nil {
		return notFound("comment", "delete comment", err)
	}
	return nil
}
