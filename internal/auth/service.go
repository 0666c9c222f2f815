// Package auth verifies credentials and issues tokens.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"aigc_platform/internal/domain"
	"aigc_platform/internal/points"
	"aigc_platform/internal/utils"
)

var (
	// ErrInvalidCredentials covers both unknown users and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrAccountDisabled is returned for deactivated users.
	ErrAccountDisabled = errors.New("account is disabled")
)

// Result is returned by a successful login.
type Result struct {
	Token      string       `json:"token"`
	User       *domain.User `json:"user"`
	DailyBonus int64        `json:"daily_bonus"`
}

// Service authenticates users.
type Service struct {
	db         *gorm.DB
	secret     string
	ttl        time.Duration
	dailyBonus int64
	now        func() time.Time
}

// NewService constructs a Service.
func NewService(db *gorm.DB, secret string, ttl time.Duration, dailyBonus int64) *Service {
	return &Service{db: db, secret: secret, ttl: ttl, dailyBonus: dailyBonus, now: time.Now}
}

// Login checks identifier (username or email) and password. The first login
// of each UTC day credits the daily bonus, at most once per day.
func (s *Service) Login(ctx context.Context, identifier, password string) (*Result, error) {
	identifier = strings.TrimSpace(identifier)
	var user domain.User
	err := s.db.WithContext(ctx).
		Where("username = ? OR email = ?", identifier, strings.ToLower(identifier)).
		Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, domain.StoreError("find user", err)
	}
	if !utils.CheckPassword(password, user.Password) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	bonus, err := s.touchLogin(ctx, &user)
	if err != nil {
		return nil, err
	}

	token, err := utils.GenerateJWT(user.ID, string(user.Role), s.secret, s.ttl)
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"user_id": user.ID, "daily_bonus": bonus}).Info("User logged in")
	return &Result{Token: token, User: &user, DailyBonus: bonus}, nil
}

// touchLogin stamps last_login_at and, if this is the first login today,
// credits the daily bonus in the same transaction.
func (s *Service) touchLogin(ctx context.Context, user *domain.User) (int64, error) {
	now := s.now().UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	var credited int64

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.User{}).
			Where("id = ? AND (last_login_at IS NULL OR last_login_at < ?)", user.ID, startOfDay).
			UpdateColumn("last_login_at", now)
		if res.Error != nil {
			return domain.StoreError("stamp login", res.Error)
		}
		if res.RowsAffected == 0 {
			if err := tx.Model(&domain.User{}).Where("id = ?", user.ID).UpdateColumn("last_login_at", now).Error; err != nil {
				return domain.StoreError("stamp login", err)
			}
			return nil
		}
		if s.dailyBonus <= 0 {
			return nil
		}
		bal, err := points.ApplyCredit(tx, points.Credit{
			UserID:      user.ID,
			Amount:      s.dailyBonus,
			Action:      domain.ActionDailyLogin,
			Description: "daily login " + startOfDay.Format("2006-01-02"),
		})
		if err != nil {
			return err
		}
		credited = s.dailyBonus
		user.Points = bal.Points
		user.TotalPointsEarned = bal.TotalEarned
		return nil
	})
	if err != nil {
		return 0, err
	}
	if credited > 0 {
		points.Observe("credit", domain.ActionDailyLogin, credited, nil)
	}
	user.LastLoginAt = &now
	return credited, nil
}
