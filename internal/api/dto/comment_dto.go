package dto

import (
	"time"

	"reviewhub/internal/api/models"
)

// CommentRequest for creating or updating a comment
type CommentRequest struct {
	Text string `json:"text" binding:"required"`
}

// CommentResponse renders the parent review by its text.
type CommentResponse struct {
	ID      int64     `json:"id"`
	Review  string    `json:"review"`
	Text    string    `json:"text"`
	Author  string    `json:"author"`
	PubDate time.Time `json:"pub_date"`
}

func FromModelToCommentResponse(c *models.Comment) *CommentResponse {
	return &CommentResponse{
		ID:      c.ID,
		Review:  c.Review.Text,
		Text:    c.Text,
		Author:  c.Author.Username,
		PubDate: c.PubDate,
	}
}
