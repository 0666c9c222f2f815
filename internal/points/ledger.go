// Package points owns every mutation of a user's points balance. Each change
// updates the balance and writes its audit record in a single transaction.
package points

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"aigc_platform/internal/domain"
	"aigc_platform/internal/metrics"
)

var (
	// ErrInsufficientBalance is returned when a debit would overdraw the balance.
	ErrInsufficientBalance = errors.New("insufficient points balance")
	// ErrInvalidAmount is returned for zero or negative amounts.
	ErrInvalidAmount = errors.New("points amount must be positive")
	// ErrInvalidAction is returned when the classification tag is unknown.
	ErrInvalidAction = errors.New("unknown points action")
	// ErrSelfTransfer is returned when sender and recipient are the same user.
	ErrSelfTransfer = errors.New("cannot transfer points to yourself")
	// ErrRecipientInactive is returned when transferring to a disabled user.
	ErrRecipientInactive = errors.New("recipient account is disabled")
)

// Balance is a snapshot of a user's economy after an operation.
type Balance struct {
	UserID      uint  `json:"user_id"`
	Points      int64 `json:"points"`
	TotalEarned int64 `json:"total_points_earned"`
}

// Credit adds Amount to the balance and to the lifetime total.
type Credit struct {
	UserID      uint
	Amount      int64
	Action      domain.PointAction
	Description string
	ReferenceID *uint
}

// Debit subtracts Amount from the balance only.
type Debit struct {
	UserID      uint
	Amount      int64
	Action      domain.PointAction
	Description string
	ReferenceID *uint
}

// Ledger applies Credit and Debit commands against the store.
type Ledger struct {
	db *gorm.DB
}

// NewLedger constructs a Ledger on db.
func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// Credit applies c in its own transaction.
func (l *Ledger) Credit(ctx context.Context, c Credit) (Balance, error) {
	var bal Balance
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		bal, err = ApplyCredit(tx, c)
		return err
	})
	if err := l.finish("credit", c.UserID, c.Action, c.Amount, bal, err); err != nil {
		return Balance{}, err
	}
	return bal, nil
}

// Debit applies d in its own transaction. On ErrInsufficientBalance the
// balance is left unchanged.
func (l *Ledger) Debit(ctx context.Context, d Debit) (Balance, error) {
	var bal Balance
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		bal, err = ApplyDebit(tx, d)
		return err
	})
	if err := l.finish("debit", d.UserID, d.Action, -d.Amount, bal, err); err != nil {
		return Balance{}, err
	}
	return bal, nil
}

// Adjust is the admin grant: a positive amount is credited, a negative one debited.
func (l *Ledger) Adjust(ctx context.Context, userID uint, amount int64, description string) (Balance, error) {
	switch {
	case amount > 0:
		return l.Credit(ctx, Credit{UserID: userID, Amount: amount, Action: domain.ActionAdminGrant, Description: description})
	case amount < 0:
		return l.Debit(ctx, Debit{UserID: userID, Amount: -amount, Action: domain.ActionAdminGrant, Description: description})
	default:
		return Balance{}, ErrInvalidAmount
	}
}

// Transfer moves amount from one user to another. Both balance changes and
// both audit records commit together. The sender's new balance is returned.
func (l *Ledger) Transfer(ctx context.Context, fromID, toID uint, amount int64, description string) (Balance, error) {
	if fromID == toID {
		return Balance{}, ErrSelfTransfer
	}
	var bal Balance
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock both rows in id order so opposing transfers cannot deadlock.
		var users []domain.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id IN ?", []uint{fromID, toID}).
			Order("id").
			Find(&users).Error; err != nil {
			return domain.StoreError("lock transfer parties", err)
		}
		var recipient *domain.User
		for i := range users {
			if users[i].ID == toID {
				recipient = &users[i]
			}
		}
		if len(users) != 2 || recipient == nil {
			return domain.ErrUserNotFound
		}
		if !recipient.IsActive {
			return ErrRecipientInactive
		}

		var err error
		bal, err = ApplyDebit(tx, Debit{
			UserID:      fromID,
			Amount:      amount,
			Action:      domain.ActionTransfer,
			Description: fmt.Sprintf("transfer to %s: %s", recipient.Username, description),
			ReferenceID: &toID,
		})
		if err != nil {
			return err
		}
		_, err = ApplyCredit(tx, Credit{
			UserID:      toID,
			Amount:      amount,
			Action:      domain.ActionTransfer,
			Description: description,
			ReferenceID: &fromID,
		})
		return err
	})
	if err := l.finish("transfer", fromID, domain.ActionTransfer, -amount, bal, err); err != nil {
		return Balance{}, err
	}
	return bal, nil
}

// Balance reads the current balance of a user.
func (l *Ledger) Balance(ctx context.Context, userID uint) (Balance, error) {
	return readBalance(l.db.WithContext(ctx), userID)
}

// History lists a user's audit records, newest first.
func (l *Ledger) History(ctx context.Context, userID uint, page, pageSize int) ([]domain.PointRecord, int64, error) {
	var total int64
	query := l.db.WithContext(ctx).Model(&domain.PointRecord{}).Where("user_id = ?", userID).Session(&gorm.Session{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, domain.StoreError("count point records", err)
	}
	var records []domain.PointRecord
	if err := query.Order("created_at desc, id desc").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&records).Error; err != nil {
		return nil, 0, domain.StoreError("list point records", err)
	}
	return records, total, nil
}

// ApplyCredit performs c inside tx. Callers own the transaction.
func ApplyCredit(tx *gorm.DB, c Credit) (Balance, error) {
	if c.Amount <= 0 {
		return Balance{}, ErrInvalidAmount
	}
	if !c.Action.Valid() {
		return Balance{}, ErrInvalidAction
	}
	res := tx.Model(&domain.User{}).Where("id = ?", c.UserID).Updates(map[string]any{
		"points":              gorm.Expr("points + ?", c.Amount),
		"total_points_earned": gorm.Expr("total_points_earned + ?", c.Amount),
	})
	if res.Error != nil {
		return Balance{}, domain.StoreError("credit points", res.Error)
	}
	if res.RowsAffected == 0 {
		return Balance{}, domain.ErrUserNotFound
	}
	bal, err := readBalance(tx, c.UserID)
	if err != nil {
		return Balance{}, err
	}
	return bal, writeRecord(tx, c.UserID, c.Action, c.Amount, bal.Points, c.Description, c.ReferenceID)
}

// ApplyDebit performs d inside tx. The balance check and the subtraction are
// one conditional UPDATE, so concurrent debits cannot overdraw.
func ApplyDebit(tx *gorm.DB, d Debit) (Balance, error) {
	if d.Amount <= 0 {
		return Balance{}, ErrInvalidAmount
	}
	if !d.Action.Valid() {
		return Balance{}, ErrInvalidAction
	}
	res := tx.Model(&domain.User{}).
		Where("id = ? AND points >= ?", d.UserID, d.Amount).
		Update("points", gorm.Expr("points - ?", d.Amount))
	if res.Error != nil {
		return Balance{}, domain.StoreError("debit points", res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := readBalance(tx, d.UserID); err != nil {
			return Balance{}, err
		}
		return Balance{}, ErrInsufficientBalance
	}
	bal, err := readBalance(tx, d.UserID)
	if err != nil {
		return Balance{}, err
	}
	return bal, writeRecord(tx, d.UserID, d.Action, -d.Amount, bal.Points, d.Description, d.ReferenceID)
}

// WriteRecord inserts an audit record for a balance that was set directly,
// such as the registration bonus on a freshly created user.
func WriteRecord(tx *gorm.DB, userID uint, action domain.PointAction, delta, balance int64, description string) error {
	return writeRecord(tx, userID, action, delta, balance, description, nil)
}

func writeRecord(tx *gorm.DB, userID uint, action domain.PointAction, delta, balance int64, description string, ref *uint) error {
	record := domain.PointRecord{
		UserID:      userID,
		Action:      action,
		Delta:       delta,
		Balance:     balance,
		Description: clip(description, domain.DescriptionSize),
		ReferenceID: ref,
	}
	if err := tx.Create(&record).Error; err != nil {
		return domain.StoreError("write point record", err)
	}
	return nil
}

func readBalance(tx *gorm.DB, userID uint) (Balance, error) {
	var u domain.User
	if err := tx.Select("id", "points", "total_points_earned").Take(&u, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Balance{}, domain.ErrUserNotFound
		}
		return Balance{}, domain.StoreError("read balance", err)
	}
	return Balance{UserID: u.ID, Points: u.Points, TotalEarned: u.TotalPointsEarned}, nil
}

// clip cuts s to at most n runes.
func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// Observe records the metrics of a balance change applied through ApplyCredit,
// ApplyDebit or WriteRecord by a caller that owns the transaction. Call it once
// the transaction has finished.
func Observe(kind string, action domain.PointAction, delta int64, err error) {
	switch {
	case err == nil:
		metrics.LedgerOperations.WithLabelValues(kind, "success").Inc()
		metrics.PointsMoved.WithLabelValues(string(action)).Add(float64(abs(delta)))
	case errors.Is(err, domain.ErrStore) || !isLedgerError(err):
		metrics.LedgerOperations.WithLabelValues(kind, "error").Inc()
	default:
		metrics.LedgerOperations.WithLabelValues(kind, "rejected").Inc()
	}
}

// finish classifies err, records metrics and logs the outcome.
func (l *Ledger) finish(kind string, userID uint, action domain.PointAction, delta int64, bal Balance, err error) error {
	if err == nil {
		Observe(kind, action, delta, nil)
		logrus.WithFields(logrus.Fields{
			"user_id": userID,
			"action":  action,
			"delta":   delta,
			"balance": bal.Points,
		}).Info("Points " + kind)
		return nil
	}
	if !isLedgerError(err) && !errors.Is(err, domain.ErrStore) {
		err = domain.StoreError(kind, err)
	}
	if errors.Is(err, domain.ErrStore) {
		logrus.WithFields(logrus.Fields{
			"user_id": userID,
			"action":  action,
			"delta":   delta,
			"error":   err.Error(),
		}).Error("Points " + kind + " failed")
	}
	Observe(kind, action, delta, err)
	return err
}

func isLedgerError(err error) bool {
	for _, target := range []error{
		ErrInsufficientBalance, ErrInvalidAmount, ErrInvalidAction,
		ErrSelfTransfer, ErrRecipientInactive, domain.ErrUserNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
