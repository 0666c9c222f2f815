package points

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"aigc_platform/internal/db/testutil"
	"aigc_platform/internal/domain"
	"aigc_platform/internal/metrics"
)

func setupLedger(t *testing.T) (*Ledger, *gorm.DB) {
	t.Helper()
	db := testutil.MustOpenTestDB(t)
	return NewLedger(db), db
}

func recordsFor(t *testing.T, db *gorm.DB, userID uint) []domain.PointRecord {
	t.Helper()
	var records []domain.PointRecord
	require.NoError(t, db.Where("user_id = ?", userID).Order("id").Find(&records).Error)
	return records
}

func TestCreditAddsToBalanceAndTotal(t *testing.T) {
	ledger, db := setupLedger(t)
	ctx := context.Background()
	user := testutil.MustCreateUser(t, db, testutil.ActiveUser("alice", 100, 5))

	ref := uint(77)
	bal, err := ledger.Credit(ctx, Credit{UserID: user.ID, Amount: 20, Action: domain.ActionPost, Description: "first post", ReferenceID: &ref})
	require.NoError(t, err)
	assert.Equal(t, int64(120), bal.Points)
	assert.Equal(t, int64(120), bal.TotalEarned)

	records := recordsFor(t, db, user.ID)
	require.Len(t, records, 1)
	assert.Equal(t, domain.ActionPost, records[0].Action)
	assert.Equal(t, int64(20), records[0].Delta)
	assert.Equal(t, int64(120), records[0].Balance)
	assert.Equal(t, "first post", records[0].Description)
	require.NotNil(t, records[0].ReferenceID)
	assert.Equal(t, ref, *records[0].ReferenceID)
	assert.False(t, records[0].CreatedAt.IsZero())
}

func TestDebitSubtractsFromBalanceOnly(t *testing.T) {
	ledger, db := setupLedger(t)
	user := testutil.MustCreateUser(t, db, testutil.ActiveUser("alice", 100, 5))

	bal, err := ledger.Debit(context.Background(), Debit{UserID: user.ID, Amount: 40, Action: domain.ActionUnlockContent})
	require.NoError(t, err)
	assert.Equal(t, int64(60), bal.Points)
	assert.Equal(t, int64(100), bal.TotalEarned)

	records := recordsFor(t, db, user.ID)
	require.Len(t, records, 1)
	assert.Equal(t, int64(-40), records[0].Delta)
	assert.Equal(t, int64(60), records[0].Balance)
}

func TestDebitInsufficientBalanceLeavesStateUnchanged(t *testing.T) {
	ledger, db := setupLedger(t)
	user := testutil.MustCreateUser(t, db, testutil.ActiveUser("alice", 30, 5))

	for i := 0; i < 2; i++ {
		_, err := ledger.Debit(context.Background(), Debit{UserID: user.ID, Amount: 31, Action: domain.ActionUnlockTool})
		require.ErrorIs(t, err, ErrInsufficientBalance)
	}

	reloaded := testutil.MustReload(t, db, user.ID)
	assert.Equal(t, int64(30), reloaded.Points)
	assert.Empty(t, recordsFor(t, db, user.ID))
}

func TestDebitExactBalanceReachesZero(t *testing.T) {
	ledger, db := setupLedger(t)
	user := testutil.MustCreateUser(t, db, testutil.ActiveUser("alice", 30, 5))

	bal, err := ledger.Debit(context.Background(), Debit{UserID: user.ID, Amount: 30, Action: domain.ActionPublishTask})
	require.NoError(t, err)
	assert.Equal(t, int64(0), bal.Points)
}

func TestUnknownUser(t *testing.T) {
	ledger, _ := setupLedger(t)
	ctx := context.Background()

	_, err := ledger.Credit(ctx, Credit{UserID: 999, Amount: 1, Action: domain.ActionPost})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = ledger.Debit(ctx, Debit{UserID: 999, Amount: 1, Action: domain.ActionPost})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = ledger.Balance(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestRejectsInvalidCommands(t *testing.T) {
	ledger, db := setupLedger(t)
	ctx := context.Background()
	user := testutil.MustCreateUser(t, db, testutil.ActiveUser("alice", 30, 5))

	_, err := ledger.Credit(ctx, Credit{UserID: user.ID, Amount: 0, Action: domain.ActionPost})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = ledger.Debit(ctx, Debit{UserID: user.ID, Amount: -5, Action: domain.ActionPost})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = ledger.Credit(ctx, Credit{UserID: user.ID, Amount: 5, Action: "lottery"})
	assert.ErrorIs(t, err, ErrInvalidAction)

	assert.Equal(t, int64(30), testutil.MustReload(t, db, user.ID).Points)
}

func TestBalanceEqualsSumOfAcceptedDeltas(t *testing.T) {
	ledger, db := setupLedger(t)
	ctx := context.Background()
	user := testutil.MustCreateUser(t, db, testutil.ActiveUser("alice", 0, 5))

	deltas := []int64{50, -20, -40, 10, 5, -45, -1, 30, -100, 7}
	var points, earned int64
	for _, d := range deltas {
		var err error
		if d > 0 {
			_, err = ledger.Credit(ctx, Credit{UserID: user.ID, Amount: d, Action: domain.ActionComment})
		} else {
			_, err = ledger.Debit(ctx, Debit{UserID: user.ID, Amount: -d, Action: domain.ActionUnlockContent})
		}
		if points+d < 0 {
			require.ErrorIs(t, err, ErrInsufficientBalance)
			continue
		}
		require.NoError(t, err)
		points += d
		if d > 0 {
			earned += d
		}
	}

	reloaded := testutil.MustReload(t, db, user.ID)
	assert.Equal(t, points, reloaded.Points)
	assert.Equal(t, earned, reloaded.TotalPointsEarned)

	var sum int64
	for _, r := range recordsFor(t, db, user.ID) {
		sum += r.Delta
	}
	assert.Equal(t, points, sum)
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	ledger, db := setupLedger(t)
	user := testutil.MustCreateUser(t, db, testutil.ActiveUser("alice", 100, 5))

	const workers = 10
	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		successes    int
		insufficient int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.Debit(context.Background(), Debit{UserID: user.ID, Amount: 30, Action: domain.ActionUnlockTool})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrInsufficientBalance):
				insufficient++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, successes)
	assert.Equal(t, workers-3, insufficient)
	assert.Equal(t, int64(10), testutil.MustReload(t, db, user.ID).Points)
}

func TestAdjust(t *testing.T) {
	ledger, db := setupLedger(t)
	ctx := context.Background()
	user := testutil.MustCreateUser(t, db, testutil.ActiveUser("alice", 10, 5))

	bal, err := ledger.Adjust(ctx, user.ID, 15, "event prize")
	require.NoError(t, err)
	assert.Equal(t, int64(25), bal.Points)
	assert.Equal(t, int64(25), bal.TotalEarned)

	bal, err = ledger.Adjust(ctx, user.ID, -5, "correction")
	require.NoError(t, err)
	assert.Equal(t, int64(20), bal.Points)
	assert.Equal(t, int64(25), bal.TotalEarned)

	_, err = ledger.Adjust(ctx, user.ID, -50, "too much")
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	_, err = ledger.Adjust(ctx, user.ID, 0, "nothing")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	for _, r := range recordsFor(t, db, user.ID) {
		assert.Equal(t, domain.ActionAdminGrant, r.Action)
	}
}

func TestTransfer(t *testing.T) {
	ledger, db := setupLedger(t)
	ctx := context.Background()
	alice := testutil.MustCreateUser(t, db, testutil.ActiveUser("alice", 100, 5))
	bob := testutil.MustCreateUser(t, db, testutil.ActiveUser("bob", 0, 5))

	bal, err := ledger.Transfer(ctx, alice.ID, bob.ID, 40, "thanks")
	require.NoError(t, err)
	assert.Equal(t, int64(60), bal.Points)

	reloadedBob := testutil.MustReload(t, db, bob.ID)
	assert.Equal(t, int64(40), reloadedBob.Points)
	assert.Equal(t, int64(40), reloadedBob.TotalPointsEarned)

	aliceRecords := recordsFor(t, db, alice.ID)
	require.Len(t, aliceRecords, 1)
	assert.Equal(t, int64(-40), aliceRecords[0].Delta)
	assert.Equal(t, domain.ActionTransfer, aliceRecords[0].Action)
	require.NotNil(t, aliceRecords[0].ReferenceID)
	assert.Equal(t, bob.ID, *aliceRecords[0].ReferenceID)
}

func TestTransferFailures(t *testing.T) {
	ledger, db := setupLedger(t)
	ctx := context.Background()
	alice := testutil.MustCreateUser(t, db, testutil.ActiveUser("alice", 100, 5))
	bob := testutil.MustCreateUser(t, db, testutil.ActiveUser("bob", 0, 5))
	disabled := testutil.MustCreateUser(t, db, domain.User{Username: "carol", IsActive: false})

	_, err := ledger.Transfer(ctx, alice.ID, alice.ID, 10, "")
	assert.ErrorIs(t, err, ErrSelfTransfer)

	_, err = ledger.Transfer(ctx, alice.ID, 999, 10, "")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = ledger.Transfer(ctx, alice.ID, disabled.ID, 10, "")
	assert.ErrorIs(t, err, ErrRecipientInactive)

	_, err = ledger.Transfer(ctx, alice.ID, bob.ID, 101, "")
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	assert.Equal(t, int64(100), testutil.MustReload(t, db, alice.ID).Points)
	assert.Equal(t, int64(0), testutil.MustReload(t, db, bob.ID).Points)
	assert.Empty(t, recordsFor(t, db, bob.ID))
}

func TestHistoryPaginatesNewestFirst(t *testing.T) {
	ledger, db := setupLedger(t)
	ctx := context.Background()
	user := testutil.MustCreateUser(t, db, testutil.ActiveUser("alice", 0, 5))

	for i := 1; i <= 5; i++ {
		_, err := ledger.Credit(ctx, Credit{UserID: user.ID, Amount: int64(i), Action: domain.ActionComment})
		require.NoError(t, err)
	}

	page, total, err := ledger.History(ctx, user.ID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, page, 2)
	assert.Equal(t, int64(5), page[0].Delta)
	assert.Equal(t, int64(4), page[1].Delta)

	page, _, err = ledger.History(ctx, user.ID, 3, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, int64(1), page[0].Delta)
}

func TestTransferKeepsLongDescriptionWithinColumn(t *testing.T) {
	ledger, db := setupLedger(t)
	alice := testutil.MustCreateUser(t, db, testutil.ActiveUser("alice", 100, 5))
	bob := testutil.MustCreateUser(t, db, testutil.ActiveUser(strings.Repeat("b", 50), 0, 5))
	note := strings.Repeat("x", 255)

	_, err := ledger.Transfer(context.Background(), alice.ID, bob.ID, 10, note)
	require.NoError(t, err)

	sent := recordsFor(t, db, alice.ID)
	require.Len(t, sent, 1)
	assert.True(t, strings.HasSuffix(sent[0].Description, note))
	assert.LessOrEqual(t, utf8.RuneCountInString(sent[0].Description), domain.DescriptionSize)
}

func TestOverlongDescriptionIsClipped(t *testing.T) {
	ledger, db := setupLedger(t)
	user := testutil.MustCreateUser(t, db, testutil.ActiveUser("alice", 0, 5))

	_, err := ledger.Credit(context.Background(), Credit{
		UserID:      user.ID,
		Amount:      1,
		Action:      domain.ActionPost,
		Description: strings.Repeat("积", domain.DescriptionSize+40),
	})
	require.NoError(t, err)

	records := recordsFor(t, db, user.ID)
	require.Len(t, records, 1)
	assert.Equal(t, domain.DescriptionSize, utf8.RuneCountInString(records[0].Description))
}

func TestObserveCountsByOutcome(t *testing.T) {
	success := promtest.ToFloat64(metrics.LedgerOperations.WithLabelValues("credit", "success"))
	rejected := promtest.ToFloat64(metrics.LedgerOperations.WithLabelValues("credit", "rejected"))
	failed := promtest.ToFloat64(metrics.LedgerOperations.WithLabelValues("credit", "error"))
	moved := promtest.ToFloat64(metrics.PointsMoved.WithLabelValues(string(domain.ActionRecharge)))

	Observe("credit", domain.ActionRecharge, 30, nil)
	Observe("credit", domain.ActionRecharge, 30, ErrInvalidAmount)
	Observe("credit", domain.ActionRecharge, 30, domain.StoreError("credit points", errors.New("gone")))

	assert.Equal(t, success+1, promtest.ToFloat64(metrics.LedgerOperations.WithLabelValues("credit", "success")))
	assert.Equal(t, rejected+1, promtest.ToFloat64(metrics.LedgerOperations.WithLabelValues("credit", "rejected")))
	assert.Equal(t, failed+1, promtest.ToFloat64(metrics.LedgerOperations.WithLabelValues("credit", "error")))
	assert.Equal(t, moved+30, promtest.ToFloat64(metrics.PointsMoved.WithLabelValues(string(domain.ActionRecharge))))
}
