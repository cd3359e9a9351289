// Package session keeps dashboard sessions in Redis.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"affiliate-portal/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrSessionNotFound = errors.New("SESSION_NOT_FOUND")
	ErrSessionStore    = errors.New("SESSION_STORE_FAILED")
)

// Store persists sessions as JSON values under <prefix>:<id> with a TTL.
type Store struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

func NewStore(client redis.Cmdable, prefix string, ttl time.Duration) *Store {
	if prefix == "" {
		prefix = "session"
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{client: client, prefix: prefix, ttl: ttl}
}

func (s *Store) key(id string) string {
	return fmt.Sprintf("%s:%s", s.prefix, id)
}

// TTL is the lifetime of new sessions.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Create stores a new session for the affiliate and returns it.
func (s *Store) Create(ctx context.Context, affiliate *models.Affiliate, refreshToken, userAgent, ip string) (*models.Session, error) {
	now := time.Now().UTC()
	sess := &models.Session{
		ID:           uuid.NewString(),
		AffiliateID:  affiliate.ID,
		Email:        affiliate.Email,
		RefreshToken: refreshToken,
		UserAgent:    userAgent,
		IPAddress:    ip,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.ttl),
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal: %v", ErrSessionStore, err)
	}

	if err := s.client.Set(ctx, s.key(sess.ID), data, s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("%w: set: %v", ErrSessionStore, err)
	}
	return sess, nil
}

// Get loads a session. Missing and expired sessions both yield ErrSessionNotFound.
func (s *Store) Get(ctx context.Context, id string) (*models.Session, error) {
	if id == "" {
		return nil, ErrSessionNotFound
	}

	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get: %v", ErrSessionStore, err)
	}

	var sess models.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrSessionStore, err)
	}
	if sess.IsExpired() {
		return nil, ErrSessionNotFound
	}
	return &sess, nil
}

// Delete removes a session. Deleting a missing session is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("%w: del: %v", ErrSessionStore, err)
	}
	return nil
}
