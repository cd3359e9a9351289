package stats

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"affiliate-portal/internal/models"

	"github.com/shopspring/decimal"
)

// DefaultMonthlyLimit is how many months the stats page shows.
const DefaultMonthlyLimit = 6

var bulgarianMonths = [...]string{
	"януари", "февруари", "март", "април", "май", "юни",
	"юли", "август", "септември", "октомври", "ноември", "декември",
}

// MonthBucket aggregates the orders of one calendar month.
type MonthBucket struct {
	Key        string // YYYY-MM in the configured zone
	Label      string
	Orders     int
	Commission decimal.Decimal
	// Clicks is always 0: clicks are only available as a lifetime total.
	Clicks int64
}

// AvgCommission is commission per order for the month, or 0 without orders.
func (b MonthBucket) AvgCommission() decimal.Decimal {
	if b.Orders == 0 {
		return decimal.Zero
	}
	return b.Commission.Div(decimal.NewFromInt(int64(b.Orders)))
}

func (b MonthBucket) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Month         string  `json:"month"`
		Label         string  `json:"label"`
		Orders        int     `json:"orders"`
		Commission    float64 `json:"commission"`
		Clicks        int64   `json:"clicks"`
		AvgCommission float64 `json:"avg_commission"`
	}{
		Month:         b.Key,
		Label:         b.Label,
		Orders:        b.Orders,
		Commission:    Money(b.Commission),
		Clicks:        b.Clicks,
		AvgCommission: Money(b.AvgCommission()),
	})
}

// MonthKey formats t as YYYY-MM in loc.
func MonthKey(t time.Time, loc *time.Location) string {
	local := t.In(loc)
	return fmt.Sprintf("%04d-%02d", local.Year(), int(local.Month()))
}

// MonthLabel renders the Bulgarian long month name with the year, e.g. "януари 2024 г.".
func MonthLabel(year int, month time.Month) string {
	return fmt.Sprintf("%s %d г.", bulgarianMonths[month-1], year)
}

// Monthly buckets orders by the local calendar month of CreatedAt, newest first,
// keeping at most limit months. Orders without any timestamp are skipped.
func Monthly(orders []models.AffiliateOrder, loc *time.Location, limit int) []MonthBucket {
	if loc == nil {
		loc = time.UTC
	}
	if limit <= 0 {
		limit = DefaultMonthlyLimit
	}

	buckets := make(map[string]*MonthBucket)
	for _, o := range orders {
		ts := o.CreatedAt
		if ts.IsZero() {
			ts = o.OrderDate
		}
		if ts.IsZero() {
			continue
		}

		key := MonthKey(ts, loc)
		b, ok := buckets[key]
		if !ok {
			local := ts.In(loc)
			b = &MonthBucket{
				Key:        key,
				Label:      MonthLabel(local.Year(), local.Month()),
				Commission: decimal.Zero,
			}
			buckets[key] = b
		}
		b.Orders++
		b.Commission = b.Commission.Add(o.CommissionAmount)
	}

	out := make([]MonthBucket, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}

	// YYYY-MM sorts lexically in chronological order
	sort.Slice(out, func(i, j int) bool { return out[i].Key > out[j].Key })

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
