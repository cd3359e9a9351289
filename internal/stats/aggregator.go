// Package stats reduces an affiliate's raw clicks and orders to dashboard metrics.
// Everything here is a pure function of its inputs.
package stats

import (
	"encoding/json"

	"affiliate-portal/internal/models"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Summary holds the dashboard counters.
type Summary struct {
	TotalClicks       int64
	TotalOrders       int
	TotalCommission   decimal.Decimal // paid only
	PendingCommission decimal.Decimal // pending only
	CommissionRate    decimal.Decimal
}

// Ratios are derived from a Summary and the full order history.
type Ratios struct {
	ConversionRate decimal.Decimal // percent
	AvgOrderValue  decimal.Decimal
	AvgCommission  decimal.Decimal
}

// Summarize computes the summary counters. Orders whose commission status is
// neither paid nor pending count towards TotalOrders but not towards either sum.
func Summarize(clicks int64, orders []models.AffiliateOrder, rate decimal.Decimal) Summary {
	if clicks < 0 {
		clicks = 0
	}

	s := Summary{
		TotalClicks:       clicks,
		TotalOrders:       len(orders),
		TotalCommission:   decimal.Zero,
		PendingCommission: decimal.Zero,
		CommissionRate:    rate,
	}

	for _, o := range orders {
		switch o.CommissionStatus {
		case models.CommissionStatusPaid:
			s.TotalCommission = s.TotalCommission.Add(o.CommissionAmount)
		case models.CommissionStatusPending:
			s.PendingCommission = s.PendingCommission.Add(o.CommissionAmount)
		}
	}

	return s
}

// Derive computes conversion rate and averages. Division by zero yields 0.
func Derive(s Summary, orders []models.AffiliateOrder) Ratios {
	r := Ratios{
		ConversionRate: decimal.Zero,
		AvgOrderValue:  decimal.Zero,
		AvgCommission:  decimal.Zero,
	}

	if s.TotalClicks > 0 {
		r.ConversionRate = decimal.NewFromInt(int64(s.TotalOrders)).
			Div(decimal.NewFromInt(s.TotalClicks)).
			Mul(hundred)
	}

	if len(orders) == 0 {
		return r
	}

	totalValue := decimal.Zero
	totalCommission := decimal.Zero
	for _, o := range orders {
		totalValue = totalValue.Add(o.OrderTotal)
		totalCommission = totalCommission.Add(o.CommissionAmount)
	}

	n := decimal.NewFromInt(int64(len(orders)))
	r.AvgOrderValue = totalValue.Div(n)
	r.AvgCommission = totalCommission.Div(n)
	return r
}

// Money renders a decimal as a JSON number rounded to two places.
func Money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func (s Summary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		TotalClicks       int64   `json:"total_clicks"`
		TotalOrders       int     `json:"total_orders"`
		TotalCommission   float64 `json:"total_commission"`
		PendingCommission float64 `json:"pending_commission"`
		CommissionRate    float64 `json:"commission_rate"`
	}{
		TotalClicks:       s.TotalClicks,
		TotalOrders:       s.TotalOrders,
		TotalCommission:   Money(s.TotalCommission),
		PendingCommission: Money(s.PendingCommission),
		CommissionRate:    s.CommissionRate.InexactFloat64(),
	})
}

func (r Ratios) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ConversionRate float64 `json:"conversion_rate"`
		AvgOrderValue  float64 `json:"avg_order_value"`
		AvgCommission  float64 `json:"avg_commission"`
	}{
		ConversionRate: Money(r.ConversionRate),
		AvgOrderValue:  Money(r.AvgOrderValue),
		AvgCommission:  Money(r.AvgCommission),
	})
}
