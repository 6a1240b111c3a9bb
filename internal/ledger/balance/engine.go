// Package balance is the pure read-side projection over splits. Both the
// account ledger view and the reconciliation worksheet fold amounts through
// this package so the two views can never disagree.
package balance

import "github.com/quillbooks/quillbooks/internal/ledger/shared"

// Entry is one split leg as seen from a single account.
type Entry struct {
	Amount int64
	Side   shared.AccountSign
}

// Signed applies the sign convention: a split whose side matches the
// account's normal sign increases the balance, a mismatching split decreases
// it.
func Signed(normal shared.AccountSign, e Entry) int64 {
	if e.Side == normal {
		return e.Amount
	}
	return -e.Amount
}

// Sum folds entries into the account's current balance.
func Sum(normal shared.AccountSign, entries []Entry) int64 {
	var total int64
	for _, e := range entries {
		total += Signed(normal, e)
	}
	return total
}

// Running folds entries in the given order, returning the cumulative total
// after each entry, seeded at opening. The caller supplies entries in ledger
// order (date ascending, insertion order for ties) so running totals are
// reproducible.
func Running(normal shared.AccountSign, opening int64, entries []Entry) []int64 {
	totals := make([]int64, len(entries))
	run := opening
	for i, e := range entries {
		run += Signed(normal, e)
		totals[i] = run
	}
	return totals
}
