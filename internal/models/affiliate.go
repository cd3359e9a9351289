package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type AffiliateStatus string

const (
	AffiliateStatusActive    AffiliateStatus = "active"
	AffiliateStatusPaused    AffiliateStatus = "paused"
	AffiliateStatusSuspended AffiliateStatus = "suspended"
)

type CommissionType string

const (
	CommissionTypePercentage CommissionType = "percentage"
	CommissionTypeFixed      CommissionType = "fixed"
)

// Affiliate is an approved partner. The Total* counters are a denormalized cache
// maintained by order ingestion and are never used to compute dashboard stats.
type Affiliate struct {
	ID                string            `json:"id" db:"id"`
	UserID            string            `json:"user_id" db:"user_id"`
	ApplicationID     *string           `json:"application_id,omitempty" db:"application_id"`
	FullName          string            `json:"full_name" db:"full_name"`
	Email             string            `json:"email" db:"email"`
	Phone             *string           `json:"phone,omitempty" db:"phone"`
	PromoCode         string            `json:"promo_code" db:"promo_code"`
	CommissionRate    decimal.Decimal   `json:"commission_rate" db:"commission_rate"`
	CommissionType    CommissionType    `json:"commission_type" db:"commission_type"`
	Status            AffiliateStatus   `json:"status" db:"status"`
	TotalClicks       int64             `json:"total_clicks" db:"total_clicks"`
	TotalOrders       int64             `json:"total_orders" db:"total_orders"`
	TotalRevenue      decimal.Decimal   `json:"total_revenue" db:"total_revenue"`
	TotalCommission   decimal.Decimal   `json:"total_commission" db:"total_commission"`
	PaymentMethod     *string           `json:"payment_method,omitempty" db:"payment_method"`
	PaymentDetails    json.RawMessage   `json:"payment_details,omitempty" db:"payment_details"`
	PreferredProducts []ProductInterest `json:"preferred_products,omitempty" db:"preferred_products"`
	CreatedAt         time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at" db:"updated_at"`
	LastLoginAt       *time.Time        `json:"last_login_at,omitempty" db:"last_login_at"`
}

// IsActive reports whether the affiliate may sign in to the dashboard.
func (a *Affiliate) IsActive() bool {
	return a.Status == AffiliateStatusActive
}
