package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// CommentAuthor is the public slice of the comment author's profile.
type CommentAuthor struct {
	Name      string `json:"name"`
	Surname   string `json:"surname"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// CommentResponse is one rendered comment.
type CommentResponse struct {
	ID        string        `json:"id"`
	Text      string        `json:"text"`
	Author    CommentAuthor `json:"author"`
	CreatedAt time.Time     `json:"date"`
}

// ListCommentsRequest pages through a promo's comments.
type ListCommentsRequest struct {
	Limit  int
	Offset int
}

// ListCommentsResponse wraps a comment page with the unpaginated total.
type ListCommentsResponse struct {
	Items []CommentResponse `json:"items"`
	Total int64             `json:"total"`
}

// Service covers user engagement with promos: likes and comments. Both
// maintain the denormalized counters on the promo row.
type Service interface {
	Like(ctx context.Context, userID snowflake.ID, promoID string) error
	Unlike(ctx context.Context, userID snowflake.ID, promoID string) error
	CreateComment(ctx context.Context, userID snowflake.ID, promoID, text string) (*CommentResponse, error)
	ListComments(ctx context.Context, promoID string, req ListCommentsRequest) (*ListCommentsResponse, error)
	GetComment(ctx context.Context, promoID, commentID string) (*CommentResponse, error)
	UpdateComment(ctx context.Context, userID snowflake.ID, promoID, commentID, text string) (*CommentResponse, error)
	DeleteComment(ctx context.Context, userID snowflake.ID, promoID, commentID string) error
}

var (
	ErrCommentNotFound = errors.New("comment_not_found")
	ErrForbidden       = errors.New("comment_forbidden")
	ErrInvalidText     = errors.New("invalid_comment_text")
)
