// Package apperr defines the error taxonomy shared across the booking
// pipeline. Services wrap these sentinels with context via fmt.Errorf
// and the HTTP layer maps them to status codes with HTTPStatus.
package apperr

import (
	"context"
	"errors"
	"net/http"
)

var (
	// ErrValidation covers malformed, missing or out-of-range input.
	// Raised before any remote call is made.
	ErrValidation = errors.New("invalid request")

	// ErrVehicleNotFound is returned when the catalog has no entry
	// for the requested vehicle id.
	ErrVehicleNotFound = errors.New("vehicle not found")

	// ErrReservationNotFound is returned by store lookups that match
	// no reservation. At settlement time this is logged, not surfaced.
	ErrReservationNotFound = errors.New("reservation not found")

	// ErrGateway covers payment provider failures, timeouts and
	// malformed provider responses.
	ErrGateway = errors.New("payment gateway error")

	// ErrBadSignature is returned for webhook deliveries whose
	// signature header is missing or does not match the body.
	ErrBadSignature = errors.New("invalid webhook signature")

	// ErrPersistence is returned when the reservation store is
	// unavailable or an update cannot be applied.
	ErrPersistence = errors.New("storage error")
)

// Kind returns a stable label for an error, used in logs and metrics.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""

	case errors.Is(err, ErrValidation):
		return "validation"

	case errors.Is(err, ErrVehicleNotFound):
		return "vehicle_not_found"

	case errors.Is(err, ErrReservationNotFound):
		return "reservation_not_found"

	case errors.Is(err, ErrGateway):
		return "gateway"

	case errors.Is(err, ErrBadSignature):
		return "bad_signature"

	case errors.Is(err, ErrPersistence):
		return "persistence"

	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"

	case errors.Is(err, context.Canceled):
		return "canceled"

	default:
		return "internal"
	}
}

// HTTPStatus maps an error to the status code surfaced to the caller.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK

	case errors.Is(err, ErrValidation), errors.Is(err, ErrBadSignature):
		return http.StatusBadRequest

	case errors.Is(err, ErrVehicleNotFound), errors.Is(err, ErrReservationNotFound):
		return http.StatusNotFound

	case errors.Is(err, ErrGateway):
		return http.StatusBadGateway

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout

	default:
		return http.StatusInternalServerError
	}
}
