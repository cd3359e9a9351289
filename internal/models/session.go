package models

import "time"

// Session is the server-side record behind the dashboard session cookie.
type Session struct {
	ID           string    `json:"id"`
	AffiliateID  string    `json:"affiliateId"`
	Email        string    `json:"email"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	UserAgent    string    `json:"userAgent,omitempty"`
	IPAddress    string    `json:"ipAddress,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
