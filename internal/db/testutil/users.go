package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"aigc_platform/internal/domain"
)

var seq atomic.Int64

// MustCreateUser inserts u, filling unset identity fields with unique values.
// IsActive is taken as given; use ActiveUser for the common case.
func MustCreateUser(t *testing.T, db *gorm.DB, u domain.User) *domain.User {
	t.Helper()

	n := seq.Add(1)
	if u.Username == "" {
		u.Username = fmt.Sprintf("user%d", n)
	}
	if u.Email == "" {
		u.Email = u.Username + "@example.com"
	}
	if u.Password == "" {
		u.Password = "not-a-real-hash"
	}
	if u.Role == "" {
		u.Role = domain.RoleUser
	}
	if u.InviteCode == "" {
		u.InviteCode = fmt.Sprintf("T%07d", n)
	}
	require.NoError(t, db.Create(&u).Error)
	return &u
}

// ActiveUser returns an active user template with the given username, points and quota.
func ActiveUser(username string, points int64, quota int) domain.User {
	return domain.User{
		Username:          username,
		Points:            points,
		TotalPointsEarned: points,
		InviteQuota:       quota,
		IsActive:          true,
	}
}

// MustReload re-reads a user by id.
func MustReload(t *testing.T, db *gorm.DB, id uint) *domain.User {
	t.Helper()
	var u domain.User
	require.NoError(t, db.First(&u, id).Error)
	return &u
}
