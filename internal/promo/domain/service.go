package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/RandomProgramm3r/Promo-Code-API/internal/targeting"
	"github.com/bwmarrin/snowflake"
)

// CreateRequest creates a promo on behalf of a company.
type CreateRequest struct {
	Description string          `json:"description"`
	ImageURL    *string         `json:"image_url"`
	Target      *targeting.Spec `json:"target"`
	ActiveFrom  *string         `json:"active_from"`
	ActiveUntil *string         `json:"active_until"`
	Mode        string          `json:"mode"`
	MaxCount    int             `json:"max_count"`
	PromoCommon *string         `json:"promo_common"`
	PromoUnique []string        `json:"promo_unique"`
}

// UpdateRequest patches mutable promo fields. Mode and the code inventory
// are immutable after creation.
type UpdateRequest struct {
	Description *string         `json:"description"`
	ImageURL    *string         `json:"image_url"`
	Target      *targeting.Spec `json:"target"`
	ActiveFrom  *string         `json:"active_from"`
	ActiveUntil *string         `json:"active_until"`
	MaxCount    *int            `json:"max_count"`
	Active      *bool           `json:"active"`
}

// ListRequest filters the company-owned promo listing.
type ListRequest struct {
	Limit  int
	Offset int
	SortBy string
}

// FeedRequest filters the user-facing feed.
type FeedRequest struct {
	Profile  targeting.Profile
	Category string
	Active   *bool
	Limit    int
	Offset   int
}

// Response is the company-facing promo view.
type Response struct {
	ID           string          `json:"id"`
	CompanyID    string          `json:"company_id"`
	Description  string          `json:"description"`
	ImageURL     *string         `json:"image_url,omitempty"`
	Target       targeting.Spec  `json:"target"`
	ActiveFrom   *string         `json:"active_from,omitempty"`
	ActiveUntil  *string         `json:"active_until,omitempty"`
	Mode         string          `json:"mode"`
	MaxCount     int             `json:"max_count"`
	UsedCount    int             `json:"used_count"`
	Active       bool            `json:"active"`
	LikeCount    int             `json:"like_count"`
	CommentCount int             `json:"comment_count"`
	CreatedAt    time.Time       `json:"created_at"`
}

// FeedItem is the user-facing promo view. Code values are never exposed
// here; they are only handed out by activation.
type FeedItem struct {
	ID           string  `json:"id"`
	CompanyID    string  `json:"company_id"`
	CompanyName  string  `json:"company_name"`
	Description  string  `json:"description"`
	ImageURL     *string `json:"image_url,omitempty"`
	Active       bool    `json:"active"`
	LikeCount    int     `json:"like_count"`
	CommentCount int     `json:"comment_count"`
	Activated    bool    `json:"activated"`
	Liked        bool    `json:"liked"`
}

// ListResponse wraps a listing page with the unpaginated total.
type ListResponse struct {
	Promos []Response `json:"promos"`
	Total  int64      `json:"total"`
}

// FeedResponse wraps a feed page with the unpaginated total.
type FeedResponse struct {
	Promos []FeedItem `json:"promos"`
	Total  int64      `json:"total"`
}

// CountryStat is one row of the per-country activation breakdown.
type CountryStat struct {
	Country         string `json:"country"`
	ActivationCount int    `json:"activations_count"`
}

// StatResponse summarizes activations for one promo.
type StatResponse struct {
	ActivationsCount int           `json:"activations_count"`
	Countries        []CountryStat `json:"countries"`
}

// Service is the business-facing promo surface.
type Service interface {
	Create(ctx context.Context, companyID snowflake.ID, req CreateRequest) (*Response, error)
	List(ctx context.Context, companyID snowflake.ID, req ListRequest) (*ListResponse, error)
	GetByID(ctx context.Context, companyID snowflake.ID, id string) (*Response, error)
	Update(ctx context.Context, companyID snowflake.ID, id string, req UpdateRequest) (*Response, error)
	Stat(ctx context.Context, companyID snowflake.ID, id string) (*StatResponse, error)

	Feed(ctx context.Context, userID snowflake.ID, req FeedRequest) (*FeedResponse, error)
	FeedItemByID(ctx context.Context, userID snowflake.ID, id string) (*FeedItem, error)
}

var (
	ErrNotFound           = errors.New("promo_not_found")
	ErrForbidden          = errors.New("promo_forbidden")
	ErrInvalidID          = errors.New("invalid_promo_id")
	ErrInvalidMode        = errors.New("invalid_mode")
	ErrInvalidMaxCount    = errors.New("invalid_max_count")
	ErrInvalidCommonCode  = errors.New("invalid_promo_common")
	ErrInvalidUniqueCodes = errors.New("invalid_promo_unique")
	ErrInvalidDate        = errors.New("invalid_date")
	ErrInvalidSortBy      = errors.New("invalid_sort_by")
	ErrInvalidDescription = errors.New("invalid_description")
)

// ParseID parses a promo id from its string form.
func ParseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}
