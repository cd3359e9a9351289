package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"affiliate-portal/internal/models"

	"github.com/lib/pq"
)

// ApplicationExistsByEmail reports whether any application, in any status, uses this email.
func (s *Store) ApplicationExistsByEmail(ctx context.Context, email string) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM affiliate_applications WHERE lower(email) = lower($1))`,
		email).Scan(&exists)
	if err != nil {
		return false, mapError("application exists", err)
	}
	return exists, nil
}

// CreateApplication inserts app. A concurrent insert of the same email fails with ErrConflict.
func (s *Store) CreateApplication(ctx context.Context, app *models.AffiliateApplication) error {
	quiz, err := json.Marshal(app.QuizData)
	if err != nil {
		return fmt.Errorf("%w: marshal quiz data: %v", ErrQuery, err)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO affiliate_applications (
			id, full_name, email, phone, quiz_data,
			experience_level, promotion_channels, audience_size, interested_products, motivation,
			status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		app.ID, app.FullName, app.Email, app.Phone, quiz,
		string(app.QuizData.Experience), pq.Array(channelStrings(app.QuizData.Channels)),
		string(app.QuizData.AudienceSize), pq.Array(productStrings(app.QuizData.Products)),
		app.QuizData.Motivation,
		string(app.Status), app.CreatedAt, app.UpdatedAt,
	)
	return mapError("create application", err)
}

// GetApplication loads an application by id.
func (s *Store) GetApplication(ctx context.Context, id string) (*models.AffiliateApplication, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var (
		app        models.AffiliateApplication
		phone      sql.NullString
		quiz       []byte
		status     string
		reason     sql.NullString
		notes      sql.NullString
		reviewedBy sql.NullString
		reviewedAt sql.NullTime
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT id, full_name, email, phone, quiz_data, status, rejection_reason,
		       admin_notes, reviewed_by, reviewed_at, created_at, updated_at
		FROM affiliate_applications
		WHERE id = $1`, id).Scan(
		&app.ID, &app.FullName, &app.Email, &phone, &quiz, &status, &reason,
		&notes, &reviewedBy, &reviewedAt, &app.CreatedAt, &app.UpdatedAt,
	)
	if err != nil {
		return nil, mapError("get application", err)
	}

	if len(quiz) > 0 {
		if err := json.Unmarshal(quiz, &app.QuizData); err != nil {
			return nil, fmt.Errorf("%w: decode quiz data: %v", ErrQuery, err)
		}
	}
	app.Phone = nullString(phone)
	app.Status = models.ApplicationStatus(status)
	app.RejectionReason = nullString(reason)
	app.AdminNotes = nullString(notes)
	app.ReviewedBy = nullString(reviewedBy)
	if reviewedAt.Valid {
		t := reviewedAt.Time
		app.ReviewedAt = &t
	}
	return &app, nil
}

func channelStrings(in []models.PromotionChannel) []string {
	out := make([]string, len(in))
	for i, c := range in {
		out[i] = string(c)
	}
	return out
}

func productStrings(in []models.ProductInterest) []string {
	out := make([]string, len(in))
	for i, p := range in {
		out[i] = string(p)
	}
	return out
}
