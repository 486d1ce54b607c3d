package handlers

import (
	"errors"

	"pass-system/internal/status"
	"pass-system/utils"

	"github.com/pocketbase/pocketbase/apis"
)

// toAPIError translates service-layer errors into HTTP responses. Anything
// untyped becomes a generic 400 so internals never leak to gate operators.
func toAPIError(err error) error {
	switch {
	case status.IsValidation(err):
		return apis.NewBadRequestError(err.Error(), nil)
	case status.IsNotFound(err):
		return apis.NewNotFoundError(err.Error(), nil)
	case status.IsConflict(err):
		return apis.NewApiError(409, err.Error(), nil)
	case status.IsExternal(err), errors.Is(err, utils.ErrCircuitOpen):
		return apis.NewApiError(502, "upstream dependency unavailable, try again later", nil)
	case errors.Is(err, status.ErrFailedPayment):
		return apis.NewApiError(402, err.Error(), nil)
	default:
		return apis.NewBadRequestError(err.Error(), nil)
	}
}
