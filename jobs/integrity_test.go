package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeSource struct {
	ids map[string][]int64
	err error
}

func (s fakeSource) collectIDs(ctx context.Context, query string) ([]int64, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.ids[query], nil
}

func newTestRunner(source integritySource) *IntegrityRunner {
	return &IntegrityRunner{
		source:     source,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		violations: newViolationsCounter(nil),
	}
}

func TestIntegrityHandleCountsUnbalancedTransaction(t *testing.T) {
	// One fabricated transaction whose splits no longer balance.
	runner := newTestRunner(fakeSource{ids: map[string][]int64{
		integrityChecks[0].query: {42},
	}})

	if err := runner.Handle(context.Background(), nil); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if got := testutil.ToFloat64(runner.violations.WithLabelValues("unbalanced_transaction")); got != 1 {
		t.Fatalf("expected 1 unbalanced_transaction violation, got %v", got)
	}
	for _, kind := range []string{"degenerate_bounds", "broken_nesting", "split_on_interior_account"} {
		if got := testutil.ToFloat64(runner.violations.WithLabelValues(kind)); got != 0 {
			t.Fatalf("expected 0 %s violations, got %v", kind, got)
		}
	}
}

func TestIntegrityHandleCountsEveryKind(t *testing.T) {
	ids := make(map[string][]int64, len(integrityChecks))
	for i, check := range integrityChecks {
		ids[check.query] = []int64{int64(i + 1), int64(i + 100)}
	}
	runner := newTestRunner(fakeSource{ids: ids})

	if err := runner.Handle(context.Background(), nil); err != nil {
		t.Fatalf("handle: %v", err)
	}

	for _, check := range integrityChecks {
		if got := testutil.ToFloat64(runner.violations.WithLabelValues(check.kind)); got != 2 {
			t.Fatalf("expected 2 %s violations, got %v", check.kind, got)
		}
	}
}

func TestIntegrityHandlePropagatesQueryError(t *testing.T) {
	boom := errors.New("relation does not exist")
	runner := newTestRunner(fakeSource{err: boom})

	if err := runner.Handle(context.Background(), nil); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped query error, got %v", err)
	}
}
