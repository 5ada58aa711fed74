package coupons

import (
	"time"
)

// Discount types
const (
	DiscountFlat    = "FLAT"
	DiscountPercent = "PERCENT"
)

// Coupon is a promotional code applied against a draft total.
type Coupon struct {
	ID            int64      `gorm:"primaryKey" json:"id"`
	Code          string     `gorm:"uniqueIndex;not null" json:"code"`
	DiscountType  string     `gorm:"type:varchar(10);not null" json:"discount_type"`
	DiscountValue float64    `gorm:"not null" json:"discount_value"`
	MinTotal      float64    `gorm:"default:0" json:"min_total"`
	MaxDiscount   float64    `gorm:"default:0" json:"max_discount"`
	Active        bool       `gorm:"default:true" json:"active"`
	ValidFrom     *time.Time `json:"valid_from,omitempty"`
	ValidUntil    *time.Time `json:"valid_until,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func (Coupon) TableName() string { return "coupons" }
