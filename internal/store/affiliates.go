package store

import (
	"context"
	"database/sql"

	"affiliate-portal/internal/models"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const affiliateColumns = `id, user_id, application_id, full_name, email, phone, promo_code,
	commission_rate, commission_type, status, total_clicks, total_orders, total_revenue,
	total_commission, payment_method, payment_details, preferred_products,
	created_at, updated_at, last_login_at`

// GetActiveAffiliateByEmail returns the affiliate with this email only if its status is active.
func (s *Store) GetActiveAffiliateByEmail(ctx context.Context, email string) (*models.Affiliate, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	row := s.db.QueryRowContext(ctx, `
		SELECT `+affiliateColumns+`
		FROM affiliates
		WHERE lower(email) = lower($1) AND status = 'active'
		LIMIT 1`, email)

	a, err := scanAffiliate(row)
	if err != nil {
		return nil, mapError("get active affiliate", err)
	}
	return a, nil
}

// TouchLastLogin records a successful sign-in.
func (s *Store) TouchLastLogin(ctx context.Context, affiliateID string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		UPDATE affiliates SET last_login_at = NOW(), updated_at = NOW()
		WHERE id = $1`, affiliateID)
	return mapError("touch last login", err)
}

// CountClicks returns the lifetime number of tracked clicks for an affiliate.
func (s *Store) CountClicks(ctx context.Context, affiliateID string) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var count int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM affiliate_clicks WHERE affiliate_id = $1`, affiliateID).Scan(&count)
	if err != nil {
		return 0, mapError("count clicks", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAffiliate(row rowScanner) (*models.Affiliate, error) {
	var (
		a                models.Affiliate
		applicationID    sql.NullString
		phone            sql.NullString
		paymentMethod    sql.NullString
		paymentDetails   []byte
		products         pq.StringArray
		rate             decimal.NullDecimal
		revenue          decimal.NullDecimal
		commission       decimal.NullDecimal
		clicks, orders   sql.NullInt64
		lastLogin        sql.NullTime
		status, commType string
	)

	err := row.Scan(
		&a.ID, &a.UserID, &applicationID, &a.FullName, &a.Email, &phone, &a.PromoCode,
		&rate, &commType, &status, &clicks, &orders, &revenue,
		&commission, &paymentMethod, &paymentDetails, &products,
		&a.CreatedAt, &a.UpdatedAt, &lastLogin,
	)
	if err != nil {
		return nil, err
	}

	a.ApplicationID = nullString(applicationID)
	a.Phone = nullString(phone)
	a.PaymentMethod = nullString(paymentMethod)
	a.PaymentDetails = paymentDetails
	a.CommissionRate = orZero(rate)
	a.CommissionType = models.CommissionType(commType)
	a.Status = models.AffiliateStatus(status)
	a.TotalClicks = clicks.Int64
	a.TotalOrders = orders.Int64
	a.TotalRevenue = orZero(revenue)
	a.TotalCommission = orZero(commission)
	for _, p := range products {
		a.PreferredProducts = append(a.PreferredProducts, models.ProductInterest(p))
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		a.LastLoginAt = &t
	}
	return &a, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func orZero(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}
