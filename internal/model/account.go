package model

import (
	"strings"
	"time"
)

// Account is a connected Facebook Page or Instagram Business Account.
type Account struct {
	ID                         string     `db:"id" json:"id"`
	Provider                   Provider   `db:"provider" json:"provider"`
	ExternalID                 string     `db:"external_id" json:"externalId"`
	Name                       string     `db:"name" json:"name"`
	AccessToken                string     `db:"access_token" json:"-"`
	Permissions                *string    `db:"permissions" json:"permissions,omitempty"`
	LinkedPageID               *string    `db:"linked_page_id" json:"linkedPageId,omitempty"`
	InstagramBusinessAccountID *string    `db:"instagram_business_account_id" json:"instagramBusinessAccountId,omitempty"`
	TokenObtainedAt            *time.Time `db:"token_obtained_at" json:"tokenObtainedAt,omitempty"`
	TokenExpiresAt             *time.Time `db:"token_expires_at" json:"tokenExpiresAt,omitempty"`
	CreatedAt                  time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt                  time.Time  `db:"updated_at" json:"updatedAt"`
}

// HasPermission reports whether the stored comma-joined permission list
// contains permission exactly. Only the wanted value is trimmed.
func (a *Account) HasPermission(permission string) bool {
	if a.Permissions == nil || *a.Permissions == "" {
		return false
	}
	wanted := strings.TrimSpace(permission)
	for _, p := range strings.Split(*a.Permissions, ",") {
		if p == wanted {
			return true
		}
	}
	return false
}

// TokenAge is the time since the access token was obtained; ok is false when unknown.
func (a *Account) TokenAge(now time.Time) (age time.Duration, ok bool) {
	if a.TokenObtainedAt == nil {
		return 0, false
	}
	return now.Sub(*a.TokenObtainedAt), true
}

// GraphUserID is the id used for Instagram Graph calls on behalf of the account.
func (a *Account) GraphUserID() string {
	if a.InstagramBusinessAccountID != nil && *a.InstagramBusinessAccountID != "" {
		return *a.InstagramBusinessAccountID
	}
	return a.ExternalID
}

type UpsertAccountParams struct {
	Provider                   Provider
	ExternalID                 string
	Name                       string
	AccessToken                string
	Permissions                *string
	InstagramBusinessAccountID *string
	TokenObtainedAt            *time.Time
	TokenExpiresAt             *time.Time
}

type UpdateTokenParams struct {
	AccessToken     string
	TokenObtainedAt time.Time
	TokenExpiresAt  *time.Time
}

// JoinPermissions joins a permission list the way it is stored.
func JoinPermissions(perms []string) string {
	return strings.Join(perms, ",")
}
