package model

import (
	"time"
)

type OAuthState struct {
	ID        string    `db:"id" json:"id"`
	State     string    `db:"state" json:"state"`
	Provider  Provider  `db:"provider" json:"provider"`
	SourceIP  string    `db:"source_ip" json:"sourceIp"`
	ExpiresAt time.Time `db:"expires_at" json:"expiresAt"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

func (s *OAuthState) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

type CreateOAuthStateParams struct {
	State     string
	Provider  Provider
	SourceIP  string
	ExpiresAt time.Time
}
