// Package recharge sells points for money. Settlement is a stub: an admin
// confirms an order in place of a gateway callback.
package recharge

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"aigc_platform/internal/domain"
	"aigc_platform/internal/points"
)

var (
	// ErrUnknownPackage is returned for a package id that is not on sale.
	ErrUnknownPackage = errors.New("unknown recharge package")
	// ErrUnsupportedMethod is returned for a payment method other than alipay or wechat.
	ErrUnsupportedMethod = errors.New("unsupported payment method")
	// ErrOrderNotFound is returned when the order does not exist for the caller.
	ErrOrderNotFound = errors.New("recharge order not found")
	// ErrOrderNotPending is returned when confirming an order that already settled.
	ErrOrderNotPending = errors.New("recharge order is not pending")
)

// Package is a purchasable bundle of points.
type Package struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Points     int64  `json:"points"`
	PriceCents int64  `json:"price_cents"`
}

// DefaultPackages are the bundles on sale.
var DefaultPackages = []Package{
	{ID: 1, Name: "starter", Points: 100, PriceCents: 1000},
	{ID: 2, Name: "standard", Points: 550, PriceCents: 5000},
	{ID: 3, Name: "pro", Points: 1200, PriceCents: 10000},
}

var methods = map[string]bool{"alipay": true, "wechat": true}

// Service manages recharge orders.
type Service struct {
	db       *gorm.DB
	packages []Package
	now      func() time.Time
}

// NewService constructs a Service selling DefaultPackages.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db, packages: DefaultPackages, now: time.Now}
}

// Packages lists what is on sale.
func (s *Service) Packages() []Package {
	return s.packages
}

// CreateOrder opens a pending order for userID.
func (s *Service) CreateOrder(ctx context.Context, userID uint, packageID int, method string) (*domain.PaymentRecord, error) {
	method = strings.ToLower(strings.TrimSpace(method))
	if !methods[method] {
		return nil, ErrUnsupportedMethod
	}
	pkg, ok := s.lookup(packageID)
	if !ok {
		return nil, ErrUnknownPackage
	}
	order := domain.PaymentRecord{
		UserID:      userID,
		OrderNo:     "RC" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		AmountCents: pkg.PriceCents,
		Points:      pkg.Points,
		Method:      method,
		Status:      domain.PaymentPending,
	}
	if err := s.db.WithContext(ctx).Create(&order).Error; err != nil {
		return nil, domain.StoreError("create recharge order", err)
	}
	logrus.WithFields(logrus.Fields{"user_id": userID, "order_no": order.OrderNo, "points": order.Points}).Info("Recharge order created")
	return &order, nil
}

// Order returns one of userID's orders.
func (s *Service) Order(ctx context.Context, userID uint, orderNo string) (*domain.PaymentRecord, error) {
	var order domain.PaymentRecord
	err := s.db.WithContext(ctx).Where("order_no = ? AND user_id = ?", orderNo, userID).Take(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, domain.StoreError("find recharge order", err)
	}
	return &order, nil
}

// Confirm settles a pending order and credits its points in one transaction.
// An order can be confirmed only once.
func (s *Service) Confirm(ctx context.Context, orderNo, tradeNo string) (*domain.PaymentRecord, points.Balance, error) {
	var (
		order domain.PaymentRecord
		bal   points.Balance
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_no = ?", orderNo).Take(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return domain.StoreError("find recharge order", err)
		}

		paidAt := s.now()
		res := tx.Model(&domain.PaymentRecord{}).
			Where("id = ? AND status = ?", order.ID, domain.PaymentPending).
			Updates(map[string]any{"status": domain.PaymentSuccess, "trade_no": tradeNo, "paid_at": paidAt})
		if res.Error != nil {
			return domain.StoreError("settle recharge order", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrOrderNotPending
		}
		order.Status = domain.PaymentSuccess
		order.TradeNo = &tradeNo
		order.PaidAt = &paidAt

		var err error
		bal, err = points.ApplyCredit(tx, points.Credit{
			UserID:      order.UserID,
			Amount:      order.Points,
			Action:      domain.ActionRecharge,
			Description: "recharge " + order.OrderNo,
			ReferenceID: &order.ID,
		})
		return err
	})
	if err != nil {
		return nil, points.Balance{}, err
	}
	points.Observe("credit", domain.ActionRecharge, order.Points, nil)
	logrus.WithFields(logrus.Fields{
		"user_id":  order.UserID,
		"order_no": order.OrderNo,
		"points":   order.Points,
		"balance":  bal.Points,
	}).Info("Recharge order confirmed")
	return &order, bal, nil
}

func (s *Service) lookup(id int) (Package, bool) {
	for _, p := range s.packages {
		if p.ID == id {
			return p, true
		}
	}
	return Package{}, false
}
