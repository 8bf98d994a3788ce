package types

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound               = errors.New("not found")
	ErrInvalidTransition      = errors.New("invalid transition")
	ErrTenantAccessDenied     = errors.New("tenant access denied")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrPublishFailed          = errors.New("publish failed")
	ErrDeliveryFailed         = errors.New("delivery failed")

	ErrReasonRequired    = errors.New("rejection reason is required")
	ErrDuplicatePassCode = errors.New("duplicate pass code")
	ErrValidation        = errors.New("validation failed")
)

// HTTPStatus maps a core error to the status the HTTP adapter responds with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrTenantAccessDenied):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrConcurrentModification):
		return http.StatusConflict
	case errors.Is(err, ErrReasonRequired), errors.Is(err, ErrValidation):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
