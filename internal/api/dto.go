package api

import (
	"time"

	"affiliate-portal/internal/models"
	"affiliate-portal/internal/stats"
)

type orderDTO struct {
	ID                  string     `json:"id"`
	ExternalOrderID     string     `json:"external_order_id"`
	ExternalOrderNumber *string    `json:"external_order_number,omitempty"`
	CustomerName        *string    `json:"customer_name,omitempty"`
	OrderTotal          float64    `json:"order_total"`
	DiscountAmount      float64    `json:"discount_amount"`
	CommissionAmount    float64    `json:"commission_amount"`
	Currency            string     `json:"currency"`
	OrderStatus         string     `json:"order_status"`
	CommissionStatus    string     `json:"commission_status"`
	CommissionPaidAt    *time.Time `json:"commission_paid_at,omitempty"`
	OrderDate           time.Time  `json:"order_date"`
	CreatedAt           time.Time  `json:"created_at"`
}

func toOrderDTOs(orders []models.AffiliateOrder) []orderDTO {
	out := make([]orderDTO, 0, len(orders))
	for _, o := range orders {
		out = append(out, orderDTO{
			ID:                  o.ID,
			ExternalOrderID:     o.ExternalOrderID,
			ExternalOrderNumber: o.ExternalOrderNumber,
			CustomerName:        o.CustomerName,
			OrderTotal:          stats.Money(o.OrderTotal),
			DiscountAmount:      stats.Money(o.DiscountAmount),
			CommissionAmount:    stats.Money(o.CommissionAmount),
			Currency:            o.Currency,
			OrderStatus:         string(o.OrderStatus),
			CommissionStatus:    string(o.CommissionStatus),
			CommissionPaidAt:    o.CommissionPaidAt,
			OrderDate:           o.OrderDate,
			CreatedAt:           o.CreatedAt,
		})
	}
	return out
}

type affiliateDTO struct {
	ID             string     `json:"id"`
	FullName       string     `json:"full_name"`
	Email          string     `json:"email"`
	Phone          *string    `json:"phone,omitempty"`
	PromoCode      string     `json:"promo_code"`
	CommissionRate float64    `json:"commission_rate"`
	CommissionType string     `json:"commission_type"`
	Status         string     `json:"status"`
	PaymentMethod  *string    `json:"payment_method,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
}

func toAffiliateDTO(a *models.Affiliate) affiliateDTO {
	return affiliateDTO{
		ID:             a.ID,
		FullName:       a.FullName,
		Email:          a.Email,
		Phone:          a.Phone,
		PromoCode:      a.PromoCode,
		CommissionRate: a.CommissionRate.InexactFloat64(),
		CommissionType: string(a.CommissionType),
		Status:         string(a.Status),
		PaymentMethod:  a.PaymentMethod,
		CreatedAt:      a.CreatedAt,
		LastLoginAt:    a.LastLoginAt,
	}
}
