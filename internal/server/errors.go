package server

import (
	"errors"
	"net/http"

	accountdomain "github.com/RandomProgramm3r/Promo-Code-API/internal/account/domain"
	activationdomain "github.com/RandomProgramm3r/Promo-Code-API/internal/activation/domain"
	engagementdomain "github.com/RandomProgramm3r/Promo-Code-API/internal/engagement/domain"
	promodomain "github.com/RandomProgramm3r/Promo-Code-API/internal/promo/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not_found")
	ErrForbidden    = errors.New("forbidden")
	ErrRateLimited  = errors.New("too_many_requests")
)

// validationError is a 400 with a field-level code and message.
type validationError struct {
	Field   string `json:"field,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *validationError) Error() string { return e.Code }

func newValidationError(field, code, message string) error {
	return &validationError{Field: field, Code: code, Message: message}
}

func invalidRequestError() error {
	return &validationError{Code: "invalid_request", Message: "request body could not be parsed"}
}

// AbortWithError maps a service error to its HTTP response. Unrecognized
// errors become opaque 500s; their detail goes to the log, not the client.
func AbortWithError(c *gin.Context, err error) {
	var vErr *validationError
	if errors.As(err, &vErr) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": vErr})
		return
	}

	status, ok := statusForError(err)
	if !ok {
		zap.L().Error("unhandled request error",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{"code": "internal_error", "message": "internal server error"},
		})
		return
	}

	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{"code": err.Error(), "message": errorMessage(err)},
	})
}

func statusForError(err error) (int, bool) {
	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, accountdomain.ErrUnauthorized),
		errors.Is(err, accountdomain.ErrInvalidCredentials):
		return http.StatusUnauthorized, true

	case errors.Is(err, ErrForbidden),
		errors.Is(err, promodomain.ErrForbidden),
		errors.Is(err, engagementdomain.ErrForbidden),
		activationdomain.IsDenial(err):
		return http.StatusForbidden, true

	case errors.Is(err, ErrNotFound),
		errors.Is(err, promodomain.ErrNotFound),
		errors.Is(err, engagementdomain.ErrCommentNotFound):
		return http.StatusNotFound, true

	case errors.Is(err, accountdomain.ErrEmailTaken):
		return http.StatusConflict, true

	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, true

	case errors.Is(err, accountdomain.ErrInvalidEmail),
		errors.Is(err, accountdomain.ErrInvalidName),
		errors.Is(err, accountdomain.ErrWeakPassword),
		errors.Is(err, accountdomain.ErrInvalidAge),
		errors.Is(err, accountdomain.ErrInvalidCountry),
		errors.Is(err, promodomain.ErrInvalidID),
		errors.Is(err, promodomain.ErrInvalidMode),
		errors.Is(err, promodomain.ErrInvalidMaxCount),
		errors.Is(err, promodomain.ErrInvalidCommonCode),
		errors.Is(err, promodomain.ErrInvalidUniqueCodes),
		errors.Is(err, promodomain.ErrInvalidDate),
		errors.Is(err, promodomain.ErrInvalidSortBy),
		errors.Is(err, promodomain.ErrInvalidDescription),
		errors.Is(err, engagementdomain.ErrInvalidText):
		return http.StatusBadRequest, true
	}
	return 0, false
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, activationdomain.ErrTargetingMismatch):
		return "you are not eligible for this promo"
	case errors.Is(err, activationdomain.ErrPromoInactive):
		return "promo is not active"
	case errors.Is(err, activationdomain.ErrPromoUnavailable):
		return "promo is out of codes"
	case errors.Is(err, activationdomain.ErrAntiFraudBlocked):
		return "activation was declined"
	case errors.Is(err, activationdomain.ErrActivationFailed):
		return "activation could not be completed"
	case errors.Is(err, accountdomain.ErrInvalidCredentials):
		return "invalid email or password"
	case errors.Is(err, ErrRateLimited):
		return "too many attempts, slow down"
	default:
		return err.Error()
	}
}
