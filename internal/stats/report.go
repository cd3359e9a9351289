package stats

import (
	"time"

	"affiliate-portal/internal/models"

	"github.com/shopspring/decimal"
)

// Report is everything the stats page renders.
type Report struct {
	Summary Summary       `json:"stats"`
	Ratios  Ratios        `json:"ratios"`
	Monthly []MonthBucket `json:"monthly"`
}

// Build computes the full report. orders must be the complete history, not a page of it.
func Build(clicks int64, orders []models.AffiliateOrder, rate decimal.Decimal, loc *time.Location, monthlyLimit int) Report {
	summary := Summarize(clicks, orders, rate)
	return Report{
		Summary: summary,
		Ratios:  Derive(summary, orders),
		Monthly: Monthly(orders, loc, monthlyLimit),
	}
}
