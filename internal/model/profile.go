package model

import (
	"encoding/json"
	"time"
)

// Profile is a denormalized snapshot of the provider profile, refreshed on each callback.
type Profile struct {
	ID             string          `db:"id" json:"id"`
	Provider       Provider        `db:"provider" json:"provider"`
	ExternalID     string          `db:"external_id" json:"externalId"`
	ProfileName    string          `db:"profile_name" json:"profileName"`
	UserID         *string         `db:"user_id" json:"userId,omitempty"`
	Username       *string         `db:"username" json:"username,omitempty"`
	ProfilePicture *string         `db:"profile_picture" json:"profilePicture,omitempty"`
	Bio            *string         `db:"bio" json:"bio,omitempty"`
	AccountType    *string         `db:"account_type" json:"accountType,omitempty"`
	FollowersCount *int64          `db:"followers_count" json:"followersCount,omitempty"`
	FollowsCount   *int64          `db:"follows_count" json:"followsCount,omitempty"`
	MediaCount     *int64          `db:"media_count" json:"mediaCount,omitempty"`
	Website        *string         `db:"website" json:"website,omitempty"`
	LastSyncedAt   time.Time       `db:"last_synced_at" json:"lastSyncedAt"`
	RawAPIResponse json.RawMessage `db:"raw_api_response" json:"rawApiResponse,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updatedAt"`
}

type UpsertProfileParams struct {
	Provider       Provider
	ExternalID     string
	ProfileName    string
	UserID         *string
	Username       *string
	ProfilePicture *string
	Bio            *string
	AccountType    *string
	FollowersCount *int64
	FollowsCount   *int64
	MediaCount     *int64
	Website        *string
	LastSyncedAt   time.Time
	RawAPIResponse json.RawMessage
}
