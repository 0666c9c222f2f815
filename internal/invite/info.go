package invite

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"aigc_platform/internal/domain"
)

// Inspection is the public answer to "may I register with this code?".
type Inspection struct {
	Valid   bool               `json:"valid"`
	Reason  string             `json:"reason"`
	Inviter *domain.PublicUser `json:"inviter,omitempty"`
}

// Info describes a user's own invite code and whom it brought in.
type Info struct {
	Code           string              `json:"code"`
	RemainingQuota int                 `json:"remaining_quota"`
	InvitedUsers   []domain.PublicUser `json:"invited_users"`
}

// Inspect validates code and renders the outcome for display. Only store
// failures are returned as errors.
func (v *Validator) Inspect(ctx context.Context, code string) (Inspection, error) {
	inviter, err := v.Validate(ctx, code)
	if errors.Is(err, domain.ErrStore) {
		return Inspection{}, err
	}
	out := Inspection{Valid: err == nil, Reason: Reason(err)}
	if inviter != nil {
		pub := inviter.Public()
		out.Inviter = &pub
	}
	return out, nil
}

// Info returns the invite code, remaining quota and invited users of userID.
func (v *Validator) Info(ctx context.Context, userID uint) (Info, error) {
	db := v.db.WithContext(ctx)

	var owner domain.User
	if err := db.Select("id", "invite_code", "invite_quota").Take(&owner, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Info{}, domain.ErrUserNotFound
		}
		return Info{}, domain.StoreError("find invite owner", err)
	}

	var invited []domain.User
	if err := db.Where("invited_by_id = ?", userID).Order("id").Find(&invited).Error; err != nil {
		return Info{}, domain.StoreError("list invited users", err)
	}
	info := Info{
		Code:           owner.InviteCode,
		RemainingQuota: owner.InviteQuota,
		InvitedUsers:   make([]domain.PublicUser, 0, len(invited)),
	}
	for i := range invited {
		info.InvitedUsers = append(info.InvitedUsers, invited[i].Public())
	}
	return info, nil
}
