package auth

import (
	"context"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"aigc_platform/internal/db/testutil"
	"aigc_platform/internal/domain"
	"aigc_platform/internal/metrics"
	"aigc_platform/internal/registration"
	"aigc_platform/internal/utils"
)

func seedLoginUser(t *testing.T, db *gorm.DB, active bool) *domain.User {
	t.Helper()
	hash, err := utils.HashPassword("password123")
	require.NoError(t, err)
	u := testutil.ActiveUser("alice", 100, 5)
	u.Email = "alice@example.com"
	u.Password = hash
	u.IsActive = active
	return testutil.MustCreateUser(t, db, u)
}

func TestLoginByUsernameOrEmail(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	user := seedLoginUser(t, db, true)
	svc := NewService(db, "secret", time.Hour, 0)

	for _, id := range []string{"alice", "alice@example.com"} {
		res, err := svc.Login(context.Background(), id, "password123")
		require.NoError(t, err)
		assert.Equal(t, user.ID, res.User.ID)

		claims, err := utils.ParseJWT(res.Token, "secret")
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.UserID)
		assert.Equal(t, "user", claims.Role)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	seedLoginUser(t, db, true)
	svc := NewService(db, "secret", time.Hour, 0)

	_, err := svc.Login(context.Background(), "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), "nobody", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginRejectsDisabledAccount(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	seedLoginUser(t, db, false)
	svc := NewService(db, "secret", time.Hour, 0)

	_, err := svc.Login(context.Background(), "alice", "password123")
	assert.ErrorIs(t, err, ErrAccountDisabled)
}

func TestDailyBonusOncePerDay(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	user := seedLoginUser(t, db, true)
	svc := NewService(db, "secret", time.Hour, 10)
	current := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return current }
	ctx := context.Background()
	moved := promtest.ToFloat64(metrics.PointsMoved.WithLabelValues(string(domain.ActionDailyLogin)))

	res, err := svc.Login(ctx, "alice", "password123")
	require.NoError(t, err)
	assert.Equal(t, int64(10), res.DailyBonus)
	assert.Equal(t, int64(110), res.User.Points)
	assert.Equal(t, moved+10, promtest.ToFloat64(metrics.PointsMoved.WithLabelValues(string(domain.ActionDailyLogin))))

	current = current.Add(6 * time.Hour)
	res, err = svc.Login(ctx, "alice", "password123")
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.DailyBonus)

	current = current.Add(24 * time.Hour)
	res, err = svc.Login(ctx, "alice", "password123")
	require.NoError(t, err)
	assert.Equal(t, int64(10), res.DailyBonus)

	reloaded := testutil.MustReload(t, db, user.ID)
	assert.Equal(t, int64(120), reloaded.Points)
	assert.Equal(t, int64(120), reloaded.TotalPointsEarned)

	var n int64
	require.NoError(t, db.Model(&domain.PointRecord{}).Where("user_id = ? AND action = ?", user.ID, domain.ActionDailyLogin).Count(&n).Error)
	assert.Equal(t, int64(2), n)
}

func TestLoginWithRegisteredEmailCasing(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	reg := registration.NewService(db, registration.Settings{InviteRequired: false, DefaultQuota: 5})
	bob, err := reg.Register(context.Background(), registration.Request{
		Username: "bob",
		Email:    "Bob@Example.com",
		Password: "secret123",
	})
	require.NoError(t, err)
	svc := NewService(db, "secret", time.Hour, 0)

	for _, id := range []string{"Bob@Example.com", " bob@example.com ", "BOB@EXAMPLE.COM"} {
		res, err := svc.Login(context.Background(), id, "secret123")
		require.NoError(t, err, id)
		assert.Equal(t, bob.ID, res.User.ID)
	}
}
