package store

import (
	"context"
	"database/sql"

	"affiliate-portal/internal/models"

	"github.com/shopspring/decimal"
)

const orderColumns = `id, affiliate_id, external_order_id, external_order_number, customer_email,
	customer_name, order_total, discount_amount, commission_amount, currency, order_status,
	commission_status, commission_paid_at, order_date, created_at, updated_at`

// ListOrders returns the most recent orders of an affiliate, newest first.
func (s *Store) ListOrders(ctx context.Context, affiliateID string, limit int) ([]models.AffiliateOrder, error) {
	return s.listOrders(ctx, "list orders", affiliateID, limit)
}

// ListAllOrders returns the order history used for stats, capped at max rows.
func (s *Store) ListAllOrders(ctx context.Context, affiliateID string, max int) ([]models.AffiliateOrder, error) {
	return s.listOrders(ctx, "list all orders", affiliateID, max)
}

func (s *Store) listOrders(ctx context.Context, op, affiliateID string, limit int) ([]models.AffiliateOrder, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM affiliate_orders
		WHERE affiliate_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, affiliateID, limit)
	if err != nil {
		return nil, mapError(op, err)
	}
	defer rows.Close()

	orders := make([]models.AffiliateOrder, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, mapError(op, err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(op, err)
	}
	return orders, nil
}

func scanOrder(row rowScanner) (*models.AffiliateOrder, error) {
	var (
		o                models.AffiliateOrder
		number           sql.NullString
		customerEmail    sql.NullString
		customerName     sql.NullString
		total            decimal.NullDecimal
		discount         decimal.NullDecimal
		commission       decimal.NullDecimal
		currency         sql.NullString
		orderStatus      sql.NullString
		commissionStatus sql.NullString
		paidAt           sql.NullTime
		orderDate        sql.NullTime
		createdAt        sql.NullTime
		updatedAt        sql.NullTime
	)

	err := row.Scan(
		&o.ID, &o.AffiliateID, &o.ExternalOrderID, &number, &customerEmail,
		&customerName, &total, &discount, &commission, &currency, &orderStatus,
		&commissionStatus, &paidAt, &orderDate, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	o.ExternalOrderNumber = nullString(number)
	o.CustomerEmail = nullString(customerEmail)
	o.CustomerName = nullString(customerName)
	o.OrderTotal = orZero(total)
	o.DiscountAmount = orZero(discount)
	o.CommissionAmount = orZero(commission)
	o.Currency = currency.String
	o.OrderStatus = models.OrderStatus(orderStatus.String)
	o.CommissionStatus = models.CommissionStatus(commissionStatus.String)
	if paidAt.Valid {
		t := paidAt.Time
		o.CommissionPaidAt = &t
	}
	o.OrderDate = orderDate.Time
	o.CreatedAt = createdAt.Time
	o.UpdatedAt = updatedAt.Time
	return &o, nil
}
