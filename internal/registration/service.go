// Package registration creates users. Creating the user, consuming the
// inviter's quota and writing the registration bonus commit as one unit.
package registration

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"aigc_platform/internal/domain"
	"aigc_platform/internal/invite"
	"aigc_platform/internal/metrics"
	"aigc_platform/internal/points"
	"aigc_platform/internal/utils"
)

// maxInsertAttempts bounds retries when the insert itself hits a unique
// constraint that the in-transaction checks did not see.
const maxInsertAttempts = 3

var (
	// ErrDuplicateUsername indicates the username is taken.
	ErrDuplicateUsername = errors.New("username already taken")
	// ErrDuplicateEmail indicates the email is already registered.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrInvalidInvite wraps one of invite.ErrNotFound, invite.ErrInviterInactive
	// or invite.ErrQuotaExhausted.
	ErrInvalidInvite = errors.New("invalid invite code")
)

// Settings are the deployment constants the workflow depends on.
type Settings struct {
	InviteRequired    bool
	DefaultQuota      int
	RegistrationBonus int64
}

// Request is the RegisterUser command.
type Request struct {
	Username   string
	Email      string
	Password   string
	InviteCode string
}

// Hasher turns a plain password into a stored credential.
type Hasher func(password string) (string, error)

// Option customises a Service.
type Option func(*Service)

// WithGenerator replaces the invite code generator, mainly for tests.
func WithGenerator(gen invite.Generator) Option {
	return func(s *Service) {
		if gen != nil {
			s.generate = gen
		}
	}
}

// WithHasher replaces the credential hasher.
func WithHasher(h Hasher) Option {
	return func(s *Service) {
		if h != nil {
			s.hash = h
		}
	}
}

// Service runs the registration workflow.
type Service struct {
	db       *gorm.DB
	settings Settings
	generate invite.Generator
	hash     Hasher
}

// NewService constructs a Service.
func NewService(db *gorm.DB, settings Settings, opts ...Option) *Service {
	s := &Service{
		db:       db,
		settings: settings,
		generate: invite.GenerateCandidate,
		hash:     utils.HashPassword,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a user. Checks run in order and the first failure wins:
// duplicate username, duplicate email, invite validation. Nothing is
// persisted unless the whole unit commits.
func (s *Service) Register(ctx context.Context, req Request) (*domain.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.InviteCode = strings.ToUpper(strings.TrimSpace(req.InviteCode))

	user, err := s.register(ctx, req)
	result := outcome(err)
	metrics.Registrations.WithLabelValues(result).Inc()

	fields := logrus.Fields{"username": req.Username, "result": result}
	if err != nil {
		fields["error"] = err.Error()
		if result == "error" {
			logrus.WithFields(fields).Error("Registration failed")
		} else {
			logrus.WithFields(fields).Info("Registration rejected")
		}
		return nil, err
	}
	if s.settings.RegistrationBonus > 0 {
		points.Observe("credit", domain.ActionRegister, s.settings.RegistrationBonus, nil)
	}
	fields["user_id"] = user.ID
	if user.InvitedByID != nil {
		fields["inviter_id"] = *user.InvitedByID
	}
	logrus.WithFields(fields).Info("User registered")
	return user, nil
}

func (s *Service) register(ctx context.Context, req Request) (*domain.User, error) {
	db := s.db.WithContext(ctx)
	if err := checkIdentity(db, req.Username, req.Email); err != nil {
		return nil, err
	}

	var inviter *domain.User
	if s.settings.InviteRequired {
		var err error
		inviter, err = invite.Check(db, req.InviteCode)
		if err != nil {
			return nil, invalidInvite(err)
		}
	}

	hash, err := s.hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	for attempt := 1; ; attempt++ {
		user, err := s.create(ctx, req, hash, inviter)
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return user, err
		}
		// Lost a race on a unique column; report it if it was identity,
		// otherwise it was the invite code and a fresh candidate is drawn.
		if idErr := checkIdentity(db, req.Username, req.Email); idErr != nil {
			return nil, idErr
		}
		if attempt >= maxInsertAttempts {
			return nil, domain.StoreError("create user", err)
		}
	}
}

// create is the atomic unit: pick a free code, consume the inviter's quota,
// insert the user and the bonus record.
func (s *Service) create(ctx context.Context, req Request, hash string, inviter *domain.User) (*domain.User, error) {
	var user domain.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		code, err := s.freeCode(tx)
		if err != nil {
			return err
		}

		if inviter != nil {
			if err := consumeQuota(tx, inviter); err != nil {
				return err
			}
		}

		user = domain.User{
			Username:          req.Username,
			Email:             req.Email,
			Password:          hash,
			Nickname:          req.Username,
			Role:              domain.RoleUser,
			Points:            s.settings.RegistrationBonus,
			TotalPointsEarned: s.settings.RegistrationBonus,
			InviteCode:        code,
			InviteQuota:       s.settings.DefaultQuota,
			IsActive:          true,
		}
		if inviter != nil {
			user.InvitedByID = &inviter.ID
		}
		if err := tx.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return err
			}
			return domain.StoreError("create user", err)
		}

		if s.settings.RegistrationBonus > 0 {
			return points.WriteRecord(tx, user.ID, domain.ActionRegister,
				s.settings.RegistrationBonus, user.Points, "registration bonus")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// freeCode draws candidates until one is not owned by any user. The unique
// index still guards against a concurrent insert of the same candidate.
func (s *Service) freeCode(tx *gorm.DB) (string, error) {
	for {
		code, err := s.generate()
		if err != nil {
			return "", err
		}
		var n int64
		if err := tx.Model(&domain.User{}).Where("invite_code = ?", code).Count(&n).Error; err != nil {
			return "", domain.StoreError("check invite code", err)
		}
		if n == 0 {
			return code, nil
		}
	}
}

// consumeQuota decrements the inviter's quota only if it is still positive
// and the inviter still active, re-checking inside the transaction.
func consumeQuota(tx *gorm.DB, inviter *domain.User) error {
	res := tx.Model(&domain.User{}).
		Where("id = ? AND is_active = ? AND invite_quota > 0", inviter.ID, true).
		UpdateColumn("invite_quota", gorm.Expr("invite_quota - 1"))
	if res.Error != nil {
		return domain.StoreError("consume invite quota", res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}
	_, err := invite.Check(tx, inviter.InviteCode)
	if err == nil {
		err = invite.ErrQuotaExhausted
	}
	return invalidInvite(err)
}

func checkIdentity(db *gorm.DB, username, email string) error {
	taken, err := exists(db, "username = ?", username)
	if err != nil {
		return err
	}
	if taken {
		return ErrDuplicateUsername
	}
	taken, err = exists(db, "email = ?", email)
	if err != nil {
		return err
	}
	if taken {
		return ErrDuplicateEmail
	}
	return nil
}

func exists(db *gorm.DB, cond string, arg any) (bool, error) {
	var n int64
	if err := db.Model(&domain.User{}).Where(cond, arg).Count(&n).Error; err != nil {
		return false, domain.StoreError("check user", err)
	}
	return n > 0, nil
}

func invalidInvite(err error) error {
	if errors.Is(err, domain.ErrStore) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrInvalidInvite, err)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrDuplicateUsername):
		return "duplicate_username"
	case errors.Is(err, ErrDuplicateEmail):
		return "duplicate_email"
	case errors.Is(err, ErrInvalidInvite):
		return "invalid_invite"
	default:
		return "error"
	}
}
