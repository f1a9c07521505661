package domain

import (
	"context"
	"errors"
	"time"

	"github.com/RandomProgramm3r/Promo-Code-API/internal/targeting"
	"github.com/bwmarrin/snowflake"
)

// Redeemer identifies the activating user together with the profile
// attributes targeting is evaluated against.
type Redeemer struct {
	ID      snowflake.ID
	Email   string
	Profile targeting.Profile
}

// ActivateResponse carries the claimed code value.
type ActivateResponse struct {
	Code string `json:"code"`
}

// HistoryItem is one entry of a user's activation history.
type HistoryItem struct {
	PromoID     string    `json:"promo_id"`
	CompanyID   string    `json:"company_id"`
	Description string    `json:"description"`
	Mode        string    `json:"mode"`
	ActivatedAt time.Time `json:"activated_at"`
}

// HistoryRequest pages through a user's activation history.
type HistoryRequest struct {
	Limit  int
	Offset int
}

// HistoryResponse wraps a history page with the unpaginated total.
type HistoryResponse struct {
	Items []HistoryItem `json:"items"`
	Total int64         `json:"total"`
}

// Service is the promo activation engine: the sole entry point through
// which inventory is handed out.
type Service interface {
	Activate(ctx context.Context, redeemer Redeemer, promoID string) (*ActivateResponse, error)
	History(ctx context.Context, userID snowflake.ID, req HistoryRequest) (*HistoryResponse, error)
}

// Denial taxonomy. Every activation failure maps to exactly one of these;
// all are expected, user-facing outcomes rather than server faults.
var (
	// ErrTargetingMismatch: the redeemer's profile fails the promo's
	// country/age predicate.
	ErrTargetingMismatch = errors.New("targeting_mismatch")
	// ErrPromoInactive: the promo is administratively disabled or outside
	// its date window.
	ErrPromoInactive = errors.New("promo_inactive")
	// ErrPromoUnavailable: inventory is exhausted, either at the pre-check
	// or at claim time after losing a race to concurrent redeemers.
	ErrPromoUnavailable = errors.New("promo_unavailable")
	// ErrAntiFraudBlocked: the verdict was negative or unobtainable.
	ErrAntiFraudBlocked = errors.New("antifraud_blocked")
	// ErrActivationFailed: the promo vanished between lookup and the locked
	// re-read, or another invariant broke at claim time.
	ErrActivationFailed = errors.New("activation_failed")
)

// IsDenial reports whether err belongs to the activation denial taxonomy.
func IsDenial(err error) bool {
	return errors.Is(err, ErrTargetingMismatch) ||
		errors.Is(err, ErrPromoInactive) ||
		errors.Is(err, ErrPromoUnavailable) ||
		errors.Is(err, ErrAntiFraudBlocked) ||
		errors.Is(err, ErrActivationFailed)
}
