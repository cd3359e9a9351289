package stats

import (
	"encoding/json"
	"testing"
	"time"

	"affiliate-portal/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Fixtures
// ==========================

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func order(total, commission string, status models.CommissionStatus, createdAt time.Time) models.AffiliateOrder {
	return models.AffiliateOrder{
		ID:               "ord-" + createdAt.Format("20060102150405"),
		AffiliateID:      "aff-1",
		OrderTotal:       dec(total),
		CommissionAmount: dec(commission),
		CommissionStatus: status,
		Currency:         "BGN",
		CreatedAt:        createdAt,
		OrderDate:        createdAt,
	}
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 12, 0, 0, 0, time.UTC)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

// ==========================
// Summary
// ==========================

func TestSummarize_SplitsPaidAndPending(t *testing.T) {
	orders := []models.AffiliateOrder{
		order("100.00", "10.00", models.CommissionStatusPaid, day(2024, 1, 15)),
		order("50.00", "5.50", models.CommissionStatusPaid, day(2024, 1, 20)),
		order("80.00", "8.00", models.CommissionStatusPending, day(2024, 2, 1)),
		order("40.00", "4.00", models.CommissionStatus("reversed"), day(2024, 2, 3)),
	}

	s := Summarize(12, orders, dec("10"))

	assert.EqualValues(t, 12, s.TotalClicks)
	assert.Equal(t, 4, s.TotalOrders)
	assertDecimal(t, "15.50", s.TotalCommission)
	assertDecimal(t, "8.00", s.PendingCommission)
	assertDecimal(t, "10", s.CommissionRate)

	all := decimal.Zero
	for _, o := range orders {
		all = all.Add(o.CommissionAmount)
	}
	assert.True(t, s.TotalCommission.Add(s.PendingCommission).LessThanOrEqual(all))
}

func TestSummarize_ZeroCommissionCountsAsZero(t *testing.T) {
	orders := []models.AffiliateOrder{
		{CommissionStatus: models.CommissionStatusPaid, CreatedAt: day(2024, 3, 1)},
		order("10.00", "1.00", models.CommissionStatusPaid, day(2024, 3, 2)),
	}

	s := Summarize(0, orders, decimal.Zero)
	assertDecimal(t, "1.00", s.TotalCommission)
	assertDecimal(t, "0", s.PendingCommission)
}

func TestSummarize_NegativeClicksClamped(t *testing.T) {
	s := Summarize(-3, nil, decimal.Zero)
	assert.EqualValues(t, 0, s.TotalClicks)
	assert.Equal(t, 0, s.TotalOrders)
}

// ==========================
// Derived ratios
// ==========================

func TestDerive_ZeroClicksGivesZeroConversion(t *testing.T) {
	orders := []models.AffiliateOrder{
		order("100.00", "10.00", models.CommissionStatusPaid, day(2024, 1, 15)),
	}
	r := Derive(Summarize(0, orders, dec("10")), orders)

	assert.True(t, r.ConversionRate.IsZero())
	assertDecimal(t, "100", r.AvgOrderValue)
	assertDecimal(t, "10", r.AvgCommission)
}

func TestDerive_EmptyOrdersGivesZeroAverages(t *testing.T) {
	r := Derive(Summarize(25, nil, dec("10")), nil)

	assert.True(t, r.ConversionRate.IsZero())
	assert.True(t, r.AvgOrderValue.IsZero())
	assert.True(t, r.AvgCommission.IsZero())
}

func TestDerive_ConversionRateIsPercentage(t *testing.T) {
	orders := []models.AffiliateOrder{
		order("30.00", "3.00", models.CommissionStatusPaid, day(2024, 1, 1)),
		order("60.00", "6.00", models.CommissionStatusPending, day(2024, 1, 2)),
		order("90.00", "9.00", models.CommissionStatusPending, day(2024, 1, 3)),
	}
	r := Derive(Summarize(8, orders, dec("10")), orders)

	assertDecimal(t, "37.5", r.ConversionRate)
	assertDecimal(t, "60", r.AvgOrderValue)
	assertDecimal(t, "6", r.AvgCommission)
}

// ==========================
// Monthly rollup
// ==========================

func TestMonthly_PartitionsByCalendarMonth(t *testing.T) {
	orders := []models.AffiliateOrder{
		order("100.00", "10.00", models.CommissionStatusPaid, day(2024, 1, 15)),
		order("200.00", "20.00", models.CommissionStatusPending, day(2024, 1, 20)),
		order("50.00", "5.00", models.CommissionStatusPaid, day(2024, 2, 1)),
	}

	buckets := Monthly(orders, time.UTC, 6)
	require.Len(t, buckets, 2)

	assert.Equal(t, "2024-02", buckets[0].Key)
	assert.Equal(t, 1, buckets[0].Orders)
	assertDecimal(t, "5.00", buckets[0].Commission)

	assert.Equal(t, "2024-01", buckets[1].Key)
	assert.Equal(t, 2, buckets[1].Orders)
	assertDecimal(t, "30.00", buckets[1].Commission)
	assertDecimal(t, "15", buckets[1].AvgCommission())

	for _, b := range buckets {
		assert.EqualValues(t, 0, b.Clicks)
	}
}

func TestMonthly_KeepsSixMostRecentDescending(t *testing.T) {
	var orders []models.AffiliateOrder
	for m := time.March; m <= time.October; m++ {
		orders = append(orders, order("10.00", "1.00", models.CommissionStatusPaid, day(2023, m, 10)))
	}

	buckets := Monthly(orders, time.UTC, 6)
	require.Len(t, buckets, 6)

	want := []string{"2023-10", "2023-09", "2023-08", "2023-07", "2023-06", "2023-05"}
	for i, b := range buckets {
		assert.Equal(t, want[i], b.Key)
	}
}

func TestMonthly_UsesLocalZone(t *testing.T) {
	sofia, err := time.LoadLocation("Europe/Sofia")
	require.NoError(t, err)

	// 22:30 UTC on Jan 31 is already Feb 1 in Sofia
	o := order("10.00", "1.00", models.CommissionStatusPaid, time.Date(2024, 1, 31, 22, 30, 0, 0, time.UTC))

	assert.Equal(t, "2024-01", Monthly([]models.AffiliateOrder{o}, time.UTC, 6)[0].Key)

	local := Monthly([]models.AffiliateOrder{o}, sofia, 6)
	require.Len(t, local, 1)
	assert.Equal(t, "2024-02", local[0].Key)
	assert.Equal(t, "февруари 2024 г.", local[0].Label)
}

func TestMonthly_FallsBackToOrderDate(t *testing.T) {
	o := models.AffiliateOrder{OrderDate: day(2024, 5, 5), CommissionAmount: dec("2")}
	buckets := Monthly([]models.AffiliateOrder{o, {}}, time.UTC, 0)

	require.Len(t, buckets, 1)
	assert.Equal(t, "2024-05", buckets[0].Key)
}

func TestMonthBucket_AvgCommissionWithoutOrders(t *testing.T) {
	assert.True(t, MonthBucket{Commission: dec("5")}.AvgCommission().IsZero())
}

func TestMonthLabel(t *testing.T) {
	assert.Equal(t, "януари 2024 г.", MonthLabel(2024, time.January))
	assert.Equal(t, "декември 2023 г.", MonthLabel(2023, time.December))
}

// ==========================
// Report / JSON contract
// ==========================

func TestBuild_JSONShape(t *testing.T) {
	orders := []models.AffiliateOrder{
		order("99.99", "9.999", models.CommissionStatusPaid, day(2024, 1, 15)),
		order("10.00", "1.00", models.CommissionStatusPending, day(2024, 2, 1)),
	}

	report := Build(3, orders, dec("10"), time.UTC, 6)

	raw, err := json.Marshal(report)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))

	st := out["stats"].(map[string]interface{})
	assert.EqualValues(t, 3, st["total_clicks"])
	assert.EqualValues(t, 2, st["total_orders"])
	assert.EqualValues(t, 10, st["total_commission"])
	assert.EqualValues(t, 1, st["pending_commission"])
	assert.EqualValues(t, 10, st["commission_rate"])

	ratios := out["ratios"].(map[string]interface{})
	assert.EqualValues(t, 66.67, ratios["conversion_rate"])

	monthly := out["monthly"].([]interface{})
	require.Len(t, monthly, 2)
	first := monthly[0].(map[string]interface{})
	assert.Equal(t, "2024-02", first["month"])
	assert.Equal(t, "февруари 2024 г.", first["label"])
	assert.EqualValues(t, 0, first["clicks"])
}

func TestMoney_RoundsToCents(t *testing.T) {
	assert.Equal(t, 12.35, Money(dec("12.345")))
	assert.Equal(t, 0.1, Money(dec("0.1")))
	assert.Equal(t, float64(0), Money(decimal.Zero))
}
