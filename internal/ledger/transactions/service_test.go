package transactions

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillbooks/quillbooks/internal/ledger/accounts"
	"github.com/quillbooks/quillbooks/internal/ledger/shared"
)

type memoryRepo struct {
	refs     map[int64]AccountRef
	balances map[int64]int64
	txns     map[int64]Transaction
	nextTxn  int64
	nextSpl  int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		refs:     make(map[int64]AccountRef),
		balances: make(map[int64]int64),
		txns:     make(map[int64]Transaction),
	}
}

func (r *memoryRepo) addLeaf(id int64, sign shared.AccountSign) {
	r.refs[id] = AccountRef{ID: id, Sign: sign, Lft: id * 2, Rgt: id*2 + 1}
}

func (r *memoryRepo) addInterior(id int64, sign shared.AccountSign) {
	r.refs[id] = AccountRef{ID: id, Sign: sign, Lft: id * 10, Rgt: id*10 + 5}
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Transaction, error) {
	t, ok := r.txns[id]
	if !ok {
		return Transaction{}, shared.ErrTransactionNotFound
	}
	return t, nil
}

func (r *memoryRepo) ListForAccount(ctx context.Context, accountID int64) ([]LedgerRow, error) {
	var out []LedgerRow
	for _, t := range r.txns {
		for _, s := range t.Splits {
			if s.AccountID != accountID {
				continue
			}
			var others []int64
			seen := map[int64]bool{}
			for _, o := range t.Splits {
				if o.AccountID != accountID && !seen[o.AccountID] {
					seen[o.AccountID] = true
					others = append(others, o.AccountID)
				}
			}
			sort.Slice(others, func(i, j int) bool { return others[i] < others[j] })
			out = append(out, LedgerRow{
				TransactionID: t.ID,
				SplitID:       s.ID,
				Date:          t.Date,
				Comment:       t.Comment,
				Amount:        s.Amount,
				Side:          s.Side,
				OtherAccounts: others,
				Reconciled:    s.Reconciled,
				ReconciledAt:  s.ReconciledAt,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		if out[i].TransactionID != out[j].TransactionID {
			return out[i].TransactionID < out[j].TransactionID
		}
		return out[i].SplitID < out[j].SplitID
	})
	return out, nil
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (tx *memoryTx) GetAccountsForUpdate(ctx context.Context, ids []int64) ([]AccountRef, error) {
	var refs []AccountRef
	for _, id := range ids {
		if ref, ok := tx.repo.refs[id]; ok {
			refs = append(refs, ref)
		}
	}
	return refs, nil
}

func (tx *memoryTx) Get(ctx context.Context, id int64) (Transaction, error) {
	return tx.repo.Get(ctx, id)
}

func (tx *memoryTx) InsertTransaction(ctx context.Context, date time.Time, comment string) (Transaction, error) {
	tx.repo.nextTxn++
	t := Transaction{ID: tx.repo.nextTxn, Date: date, Comment: comment}
	tx.repo.txns[t.ID] = t
	return t, nil
}

func (tx *memoryTx) InsertSplits(ctx context.Context, transactionID int64, splits []SplitInput) ([]Split, error) {
	t, ok := tx.repo.txns[transactionID]
	if !ok {
		return nil, shared.ErrTransactionNotFound
	}
	var out []Split
	for _, in := range splits {
		tx.repo.nextSpl++
		s := Split{ID: tx.repo.nextSpl, TransactionID: transactionID, AccountID: in.AccountID, Amount: in.Amount, Side: in.Side}
		t.Splits = append(t.Splits, s)
		out = append(out, s)
	}
	tx.repo.txns[transactionID] = t
	return out, nil
}

func (tx *memoryTx) DeleteSplits(ctx context.Context, transactionID int64) ([]int64, error) {
	t, ok := tx.repo.txns[transactionID]
	if !ok {
		return nil, shared.ErrTransactionNotFound
	}
	seen := map[int64]bool{}
	var ids []int64
	for _, s := range t.Splits {
		if !seen[s.AccountID] {
			seen[s.AccountID] = true
			ids = append(ids, s.AccountID)
		}
	}
	t.Splits = nil
	tx.repo.txns[transactionID] = t
	return ids, nil
}

func (tx *memoryTx) UpdateTransaction(ctx context.Context, id int64, date time.Time, comment string) error {
	t, ok := tx.repo.txns[id]
	if !ok {
		return shared.ErrTransactionNotFound
	}
	t.Date = date
	t.Comment = comment
	tx.repo.txns[id] = t
	return nil
}

func (tx *memoryTx) DeleteTransaction(ctx context.Context, id int64) error {
	if _, ok := tx.repo.txns[id]; !ok {
		return shared.ErrTransactionNotFound
	}
	delete(tx.repo.txns, id)
	return nil
}

func (tx *memoryTx) RefreshBalance(ctx context.Context, accountID int64) error {
	ref := tx.repo.refs[accountID]
	var bal int64
	for _, t := range tx.repo.txns {
		for _, s := range t.Splits {
			if s.AccountID != accountID {
				continue
			}
			if s.Side == ref.Sign {
				bal += s.Amount
			} else {
				bal -= s.Amount
			}
		}
	}
	tx.repo.balances[accountID] = bal
	return nil
}

// memoryDirectory adapts the repo's refs to the account lookup the service
// uses on the read path.
type memoryDirectory struct {
	repo *memoryRepo
}

func (d memoryDirectory) Get(ctx context.Context, id int64) (accounts.Account, error) {
	ref, ok := d.repo.refs[id]
	if !ok {
		return accounts.Account{}, shared.ErrAccountNotFound
	}
	return accounts.Account{ID: ref.ID, Sign: ref.Sign, Lft: ref.Lft, Rgt: ref.Rgt, Balance: d.repo.balances[id]}, nil
}

func newTestService(repo *memoryRepo) *Service {
	return NewService(repo, memoryDirectory{repo: repo}, nil, nil)
}

func day(d int) time.Time {
	return time.Date(2026, time.February, d, 0, 0, 0, 0, time.UTC)
}

func TestPostPaycheck(t *testing.T) {
	repo := newMemoryRepo()
	repo.addLeaf(1, shared.SignDebit)  // checking, ASSET
	repo.addLeaf(2, shared.SignCredit) // salary, INCOME
	svc := newTestService(repo)

	posted, err := svc.Post(context.Background(), PostingInput{
		Date:    day(1),
		Comment: "paycheck",
		Splits: []SplitInput{
			{AccountID: 1, Amount: 500000, Side: shared.SignDebit},
			{AccountID: 2, Amount: 500000, Side: shared.SignCredit},
		},
	})
	require.NoError(t, err)
	require.Len(t, posted.Splits, 2)

	// Both balances rise: each split matches its account's normal side.
	assert.Equal(t, int64(500000), repo.balances[1])
	assert.Equal(t, int64(500000), repo.balances[2])
}

func TestPostRejectsBadAccountRefs(t *testing.T) {
	repo := newMemoryRepo()
	repo.addLeaf(1, shared.SignDebit)
	repo.addInterior(2, shared.SignCredit)
	svc := newTestService(repo)

	balanced := func(a, b int64) PostingInput {
		return PostingInput{Date: day(1), Splits: []SplitInput{
			{AccountID: a, Amount: 100, Side: shared.SignDebit},
			{AccountID: b, Amount: 100, Side: shared.SignCredit},
		}}
	}

	_, err := svc.Post(context.Background(), balanced(1, 99))
	require.ErrorIs(t, err, shared.ErrInvalidAccountRef)

	_, err = svc.Post(context.Background(), balanced(1, 2))
	require.ErrorIs(t, err, shared.ErrInvalidAccountRef)

	assert.Empty(t, repo.txns)
}

func TestPostNormalizesNegativeInput(t *testing.T) {
	repo := newMemoryRepo()
	repo.addLeaf(1, shared.SignDebit)
	repo.addLeaf(2, shared.SignCredit)
	svc := newTestService(repo)

	posted, err := svc.Post(context.Background(), PostingInput{
		Date: day(1),
		Splits: []SplitInput{
			{AccountID: 1, Amount: -2500, Side: shared.SignCredit},
			{AccountID: 2, Amount: 2500, Side: shared.SignCredit},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, shared.SignDebit, posted.Splits[0].Side)
	assert.Equal(t, int64(2500), posted.Splits[0].Amount)
}

func TestEditRefreshesUnionOfAccounts(t *testing.T) {
	repo := newMemoryRepo()
	repo.addLeaf(1, shared.SignDebit)
	repo.addLeaf(2, shared.SignCredit)
	repo.addLeaf(3, shared.SignDebit)
	svc := newTestService(repo)
	ctx := context.Background()

	posted, err := svc.Post(ctx, PostingInput{Date: day(1), Splits: []SplitInput{
		{AccountID: 1, Amount: 1000, Side: shared.SignDebit},
		{AccountID: 2, Amount: 1000, Side: shared.SignCredit},
	}})
	require.NoError(t, err)

	// Redirect the debit leg from account 1 to account 3.
	edited, err := svc.Edit(ctx, posted.ID, PostingInput{Date: day(2), Comment: "fixed", Splits: []SplitInput{
		{AccountID: 3, Amount: 1000, Side: shared.SignDebit},
		{AccountID: 2, Amount: 1000, Side: shared.SignCredit},
	}})
	require.NoError(t, err)
	assert.Equal(t, "fixed", edited.Comment)
	require.Len(t, edited.Splits, 2)

	// Account 1 no longer holds the split but still got its balance refreshed.
	assert.Equal(t, int64(0), repo.balances[1])
	assert.Equal(t, int64(1000), repo.balances[2])
	assert.Equal(t, int64(1000), repo.balances[3])
}

func TestEditWithIdenticalSplitsKeepsBalances(t *testing.T) {
	repo := newMemoryRepo()
	repo.addLeaf(1, shared.SignDebit)
	repo.addLeaf(2, shared.SignCredit)
	svc := newTestService(repo)
	ctx := context.Background()

	in := PostingInput{Date: day(1), Comment: "rent", Splits: []SplitInput{
		{AccountID: 1, Amount: 90000, Side: shared.SignDebit},
		{AccountID: 2, Amount: 90000, Side: shared.SignCredit},
	}}
	posted, err := svc.Post(ctx, in)
	require.NoError(t, err)

	before1, before2 := repo.balances[1], repo.balances[2]
	_, err = svc.Edit(ctx, posted.ID, in)
	require.NoError(t, err)
	assert.Equal(t, before1, repo.balances[1])
	assert.Equal(t, before2, repo.balances[2])
}

func TestEditRejectsUnbalancedWithoutTouchingStored(t *testing.T) {
	repo := newMemoryRepo()
	repo.addLeaf(1, shared.SignDebit)
	repo.addLeaf(2, shared.SignCredit)
	svc := newTestService(repo)
	ctx := context.Background()

	posted, err := svc.Post(ctx, PostingInput{Date: day(1), Splits: []SplitInput{
		{AccountID: 1, Amount: 1000, Side: shared.SignDebit},
		{AccountID: 2, Amount: 1000, Side: shared.SignCredit},
	}})
	require.NoError(t, err)

	_, err = svc.Edit(ctx, posted.ID, PostingInput{Date: day(2), Splits: []SplitInput{
		{AccountID: 1, Amount: 999, Side: shared.SignDebit},
		{AccountID: 2, Amount: 1000, Side: shared.SignCredit},
	}})
	require.ErrorIs(t, err, shared.ErrUnbalanced)

	stored, err := svc.Get(ctx, posted.ID)
	require.NoError(t, err)
	require.Len(t, stored.Splits, 2)
	assert.Equal(t, int64(1000), stored.Splits[0].Amount)
}

func TestDeleteRestoresBalances(t *testing.T) {
	repo := newMemoryRepo()
	repo.addLeaf(1, shared.SignDebit)
	repo.addLeaf(2, shared.SignCredit)
	svc := newTestService(repo)
	ctx := context.Background()

	posted, err := svc.Post(ctx, PostingInput{Date: day(1), Splits: []SplitInput{
		{AccountID: 1, Amount: 750, Side: shared.SignDebit},
		{AccountID: 2, Amount: 750, Side: shared.SignCredit},
	}})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, posted.ID))
	assert.Equal(t, int64(0), repo.balances[1])
	assert.Equal(t, int64(0), repo.balances[2])

	err = svc.Delete(ctx, posted.ID)
	require.ErrorIs(t, err, shared.ErrTransactionNotFound)
}

func TestListForAccountAnnotatesRows(t *testing.T) {
	repo := newMemoryRepo()
	repo.addLeaf(1, shared.SignDebit)  // checking
	repo.addLeaf(2, shared.SignCredit) // salary
	repo.addLeaf(3, shared.SignDebit)  // groceries, EXPENSE
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.Post(ctx, PostingInput{Date: day(1), Comment: "paycheck", Splits: []SplitInput{
		{AccountID: 1, Amount: 500000, Side: shared.SignDebit},
		{AccountID: 2, Amount: 500000, Side: shared.SignCredit},
	}})
	require.NoError(t, err)

	_, err = svc.Post(ctx, PostingInput{Date: day(3), Comment: "groceries", Splits: []SplitInput{
		{AccountID: 3, Amount: 12050, Side: shared.SignDebit},
		{AccountID: 1, Amount: 12050, Side: shared.SignCredit},
	}})
	require.NoError(t, err)

	rows, err := svc.ListForAccount(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, []int64{2}, rows[0].OtherAccounts)
	assert.Equal(t, int64(500000), rows[0].Signed)
	assert.Equal(t, int64(500000), rows[0].Running)
	assert.Equal(t, "5,000.00", rows[0].Display)

	assert.Equal(t, []int64{3}, rows[1].OtherAccounts)
	assert.Equal(t, int64(-12050), rows[1].Signed)
	assert.Equal(t, int64(487950), rows[1].Running)

	_, err = svc.ListForAccount(ctx, 42)
	require.ErrorIs(t, err, shared.ErrAccountNotFound)
}
