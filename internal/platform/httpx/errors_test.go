package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/quillbooks/quillbooks/internal/ledger/shared"
)

func TestRespondErrorMapsKindsToStatus(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"account not found", shared.ErrAccountNotFound, http.StatusNotFound},
		{"transaction not found", shared.ErrTransactionNotFound, http.StatusNotFound},
		{"has children", shared.ErrHasChildren, http.StatusConflict},
		{"has transactions", shared.ErrHasTransactions, http.StatusConflict},
		{"parent has transactions", shared.ErrParentHasTransactions, http.StatusConflict},
		{"unbalanced", shared.ErrUnbalanced, http.StatusBadRequest},
		{"too few splits", shared.ErrTooFewSplits, http.StatusBadRequest},
		{"invalid account ref", shared.ErrInvalidAccountRef, http.StatusBadRequest},
		{"cyclic move", shared.ErrCyclicMove, http.StatusBadRequest},
		{"reconcile regression", shared.ErrReconcileDateRegression, http.StatusBadRequest},
		{"unknown error", errors.New("pool exhausted"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			RespondError(rr, tc.err)

			if rr.Code != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, rr.Code)
			}
			var pd ProblemDetail
			if err := json.NewDecoder(rr.Body).Decode(&pd); err != nil {
				t.Fatalf("decode problem body: %v", err)
			}
			if pd.Status != tc.status {
				t.Fatalf("expected problem status %d, got %d", tc.status, pd.Status)
			}
		})
	}
}

// Internal errors never leak their message to the client.
func TestRespondErrorHidesInternalDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, errors.New("dial tcp 10.0.0.5:5432: connection refused"))

	var pd ProblemDetail
	if err := json.NewDecoder(rr.Body).Decode(&pd); err != nil {
		t.Fatalf("decode problem body: %v", err)
	}
	if pd.Detail != "" {
		t.Fatalf("expected empty detail, got %q", pd.Detail)
	}
}
