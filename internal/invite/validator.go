package invite

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"aigc_platform/internal/domain"
)

var (
	// ErrNotFound indicates no user owns the code.
	ErrNotFound = errors.New("invite code does not exist")
	// ErrInviterInactive indicates the owner of the code has been disabled.
	ErrInviterInactive = errors.New("inviter account is disabled")
	// ErrQuotaExhausted indicates the code may not sponsor more registrations.
	ErrQuotaExhausted = errors.New("invite code has reached its usage limit")
)

// Validator checks invite codes against their owner. It never mutates state.
type Validator struct {
	db *gorm.DB
}

// NewValidator constructs a Validator reading from db.
func NewValidator(db *gorm.DB) *Validator {
	return &Validator{db: db}
}

// Validate returns the inviter owning code, or one of ErrNotFound,
// ErrInviterInactive, ErrQuotaExhausted. A success is provisional: the quota
// must be consumed atomically at registration time.
func (v *Validator) Validate(ctx context.Context, code string) (*domain.User, error) {
	return Check(v.db.WithContext(ctx), code)
}

// Check runs the validation rules on any handle, including an open transaction.
func Check(tx *gorm.DB, code string) (*domain.User, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !WellFormed(code) {
		return nil, ErrNotFound
	}

	var inviter domain.User
	if err := tx.Where("invite_code = ?", code).Take(&inviter).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, domain.StoreError("find inviter", err)
	}
	if !inviter.IsActive {
		return nil, ErrInviterInactive
	}
	if inviter.InviteQuota <= 0 {
		return nil, ErrQuotaExhausted
	}
	return &inviter, nil
}

// Reason maps a validation error to the message shown to the person holding the code.
func Reason(err error) string {
	switch {
	case err == nil:
		return "invite code is valid"
	case errors.Is(err, ErrNotFound):
		return ErrNotFound.Error()
	case errors.Is(err, ErrInviterInactive):
		return ErrInviterInactive.Error()
	case errors.Is(err, ErrQuotaExhausted):
		return ErrQuotaExhausted.Error()
	default:
		return "invite code could not be checked"
	}
}
