package httpx

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/sitecomply/sitecomply/internal/shared"
)

// ErrBadRequest covers malformed payloads that never reach the domain layer.
var ErrBadRequest = errors.New("bad request")

// RespondError maps domain errors to HTTP responses using RFC7807. The status
// split matters to clients: 403 means the module is off for the company, 409
// means the record is in an incompatible state (the detail says which), and
// 422 means the confirmation precondition failed.
func RespondError(w http.ResponseWriter, err error) {
	var (
		confErr     *shared.ConfigurationError
		notFound    *shared.NotFoundError
		conflict    *shared.StateConflictError
		eligibility *shared.EligibilityError
		transient   *shared.TransientIOError
		validation  validator.ValidationErrors
	)
	switch {
	case errors.As(err, &confErr):
		Problem(w, http.StatusForbidden, "Module Disabled", confErr.Error())
	case errors.As(err, &notFound):
		Problem(w, http.StatusNotFound, "Not Found", notFound.Error())
	case errors.As(err, &conflict):
		Problem(w, http.StatusConflict, "State Conflict", conflict.Error())
	case errors.As(err, &eligibility):
		Problem(w, http.StatusUnprocessableEntity, "Not Eligible", eligibility.Error())
	case errors.As(err, &transient):
		Problem(w, http.StatusServiceUnavailable, "Temporarily Unavailable", "please retry")
	case errors.As(err, &validation), errors.Is(err, ErrBadRequest):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
