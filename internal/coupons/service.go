package coupons

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ErrCouponNotFound is returned for unknown or inactive coupon codes.
var ErrCouponNotFound = errors.New("coupon not found")

// ErrCouponNotApplicable is returned when a coupon exists but cannot be
// applied to this total (expired, below minimum).
var ErrCouponNotApplicable = errors.New("coupon not applicable")

type Service interface {
	// Discount returns the discount amount for a coupon code against a
	// draft total. The returned amount never exceeds the total.
	Discount(ctx context.Context, total float64, code string) (float64, error)
}

type service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) Service {
	return &service{db: db}
}

func (s *service) Discount(ctx context.Context, total float64, code string) (float64, error) {
	var coupon Coupon
	err := s.db.WithContext(ctx).
		Where("code = ? AND active = ?", code, true).
		First(&coupon).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrCouponNotFound
		}
		return 0, fmt.Errorf("failed to look up coupon: %w", err)
	}

	now := time.Now().UTC()
	if coupon.ValidFrom != nil && now.Before(*coupon.ValidFrom) {
		return 0, ErrCouponNotApplicable
	}
	if coupon.ValidUntil != nil && now.After(*coupon.ValidUntil) {
		return 0, ErrCouponNotApplicable
	}
	if total < coupon.MinTotal {
		return 0, ErrCouponNotApplicable
	}

	var discount float64
	switch coupon.DiscountType {
	case DiscountPercent:
		discount = total * coupon.DiscountValue / 100
	default:
		discount = coupon.DiscountValue
	}
	if coupon.MaxDiscount > 0 && discount > coupon.MaxDiscount {
		discount = coupon.MaxDiscount
	}
	if discount > total {
		discount = total
	}
	return discount, nil
}
