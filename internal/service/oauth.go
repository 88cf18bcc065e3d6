package service

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	apperrors "github.com/metabridge/graph-connector/internal/errors"
	"github.com/metabridge/graph-connector/internal/graph"
	"github.com/metabridge/graph-connector/internal/model"
)

var (
	ErrProviderNotConfigured = errors.New("OAuth provider not configured")
	ErrTokenExchange         = errors.New("token exchange failed")
	ErrProfileFetch          = errors.New("profile fetch failed")
	ErrPageFetch             = errors.New("page fetch failed")
	ErrTokenRefresh          = errors.New("token refresh failed")
)

// AuthRequest carries the optional inputs of an authorization URL.
type AuthRequest struct {
	Scopes   []string
	State    string
	SourceIP string
}

func scopesOrDefault(scopes, defaults []string) []string {
	if len(scopes) == 0 {
		return defaults
	}
	return scopes
}

func buildURL(base string, params url.Values) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + params.Encode()
}

// upstreamError logs a failed Graph call and converts it into a 502 AppError
// that still matches sentinel and the underlying *graph.APIError.
func upstreamError(provider model.Provider, sentinel, err error) error {
	event := log.Error().Err(err).Str("provider", provider.String())
	if apiErr, ok := graph.AsAPIError(err); ok {
		event = event.Int("status", apiErr.Status).Str("fbtraceId", apiErr.FBTraceID)
	}
	event.Msg(sentinel.Error())
	return apperrors.External(provider.String(), fmt.Errorf("%w: %w", sentinel, err))
}
