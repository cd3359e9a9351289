package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusRefunded  OrderStatus = "refunded"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type CommissionStatus string

const (
	CommissionStatusPending CommissionStatus = "pending"
	CommissionStatusPaid    CommissionStatus = "paid"
)

// AffiliateOrder is a purchase attributed to an affiliate. CommissionAmount is the
// amount fixed when the order was ingested and is never recomputed from the
// affiliate's current rate.
type AffiliateOrder struct {
	ID                  string           `json:"id" db:"id"`
	AffiliateID         string           `json:"affiliate_id" db:"affiliate_id"`
	ExternalOrderID     string           `json:"external_order_id" db:"external_order_id"`
	ExternalOrderNumber *string          `json:"external_order_number,omitempty" db:"external_order_number"`
	CustomerEmail       *string          `json:"customer_email,omitempty" db:"customer_email"`
	CustomerName        *string          `json:"customer_name,omitempty" db:"customer_name"`
	OrderTotal          decimal.Decimal  `json:"order_total" db:"order_total"`
	DiscountAmount      decimal.Decimal  `json:"discount_amount" db:"discount_amount"`
	CommissionAmount    decimal.Decimal  `json:"commission_amount" db:"commission_amount"`
	Currency            string           `json:"currency" db:"currency"`
	OrderStatus         OrderStatus      `json:"order_status" db:"order_status"`
	CommissionStatus    CommissionStatus `json:"commission_status" db:"commission_status"`
	CommissionPaidAt    *time.Time       `json:"commission_paid_at,omitempty" db:"commission_paid_at"`
	OrderDate           time.Time        `json:"order_date" db:"order_date"`
	CreatedAt           time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at" db:"updated_at"`
}
