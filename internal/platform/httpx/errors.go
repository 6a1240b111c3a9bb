package httpx

import (
	"errors"
	"net/http"

	"github.com/quillbooks/quillbooks/internal/ledger/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807. Ledger
// errors carry their kind as a wrapped sentinel, so one errors.Is per kind
// covers every concrete error.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
