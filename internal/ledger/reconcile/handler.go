package reconcile

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/quillbooks/quillbooks/internal/platform/httpx"
)

// Handler wires HTTP endpoints for reconciliation.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the reconcile handler.
func NewHandler(logger *slog.Logger, service *Service, validate *validator.Validate) *Handler {
	return &Handler{logger: logger, service: service, validate: validate}
}

// MountRoutes registers reconciliation routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Put("/transactions/{transactionID}/accounts/{accountID}/reconciled", h.handleReconcile)
	r.Put("/transactions/{transactionID}/accounts/{accountID}/unreconciled", h.handleUnreconcile)
	r.Get("/accounts/{accountID}/worksheet", h.handleWorksheet)
}

type reconcileInput struct {
	Date time.Time `json:"date" validate:"required"`
}

func (h *Handler) handleReconcile(w http.ResponseWriter, r *http.Request) {
	txnID, ok := h.pathID(w, r, "transactionID")
	if !ok {
		return
	}
	acctID, ok := h.pathID(w, r, "accountID")
	if !ok {
		return
	}
	var in reconcileInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(&in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.Reconcile(r.Context(), txnID, acctID, in.Date); err != nil {
		h.logger.Error("reconcile split", slog.Int64("transaction_id", txnID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUnreconcile(w http.ResponseWriter, r *http.Request) {
	txnID, ok := h.pathID(w, r, "transactionID")
	if !ok {
		return
	}
	acctID, ok := h.pathID(w, r, "accountID")
	if !ok {
		return
	}
	if err := h.service.Unreconcile(r.Context(), txnID, acctID); err != nil {
		h.logger.Error("unreconcile split", slog.Int64("transaction_id", txnID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleWorksheet(w http.ResponseWriter, r *http.Request) {
	acctID, ok := h.pathID(w, r, "accountID")
	if !ok {
		return
	}
	q := r.URL.Query()
	date, err := time.Parse(time.DateOnly, q.Get("date"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be YYYY-MM-DD")
		return
	}
	var expected int64
	if raw := q.Get("expected"); raw != "" {
		expected, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "expected must be an integer amount in minor units")
			return
		}
	}
	ws, err := h.service.BuildWorksheet(r.Context(), acctID, date, expected)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if ws.Rows == nil {
		ws.Rows = []WorksheetRow{}
	}
	httpx.JSON(w, http.StatusOK, ws)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid "+param)
		return 0, false
	}
	return id, true
}
