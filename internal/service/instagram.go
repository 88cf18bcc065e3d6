package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/metabridge/graph-connector/internal/audit"
	"github.com/metabridge/graph-connector/internal/config"
	"github.com/metabridge/graph-connector/internal/database"
	apperrors "github.com/metabridge/graph-connector/internal/errors"
	"github.com/metabridge/graph-connector/internal/graph"
	"github.com/metabridge/graph-connector/internal/model"
	"github.com/metabridge/graph-connector/internal/repository"
	"github.com/metabridge/graph-connector/internal/util"
)

var DefaultInstagramScopes = []string{
	"instagram_business_basic",
	"instagram_business_manage_messages",
	"instagram_business_manage_comments",
	"instagram_business_content_publish",
	"instagram_business_manage_insights",
}

const (
	callbackProfileFields = "id,user_id,username,account_type,media_count,followers_count,follows_count,name,profile_picture_url,biography"
	profileInfoFields     = "id,username,account_type,media_count,followers_count,follows_count,name,profile_picture_url,biography,website"
	userMediaFields       = "id,caption,media_type,media_url,thumbnail_url,timestamp,permalink,children{media_url,media_type}"
	mediaDetailFields     = "id,media_type,media_url,thumbnail_url,timestamp,username,caption,permalink,children{media_url,media_type}"
)

// Credentials identifies the Instagram user a call is made for.
type Credentials struct {
	UserID      string
	AccessToken string
}

// CredentialsFor returns the credentials stored on account.
func CredentialsFor(account *model.Account) Credentials {
	return Credentials{UserID: account.GraphUserID(), AccessToken: account.AccessToken}
}

// tokenGrant is the normalized result of the authorization code exchange.
type tokenGrant struct {
	AccessToken string
	UserID      string
	Permissions *string
}

// InstagramService connects Instagram Business Accounts through Instagram Login
// and manages their long-lived tokens.
type InstagramService struct {
	cfg         config.InstagramConfig
	clients     InstagramClients
	states      *StateService
	db          database.TxRunner
	accountRepo repository.AccountRepository
	profileRepo repository.ProfileRepository
	now         func() time.Time
}

func NewInstagramService(
	cfg config.InstagramConfig,
	clients InstagramClients,
	states *StateService,
	db database.TxRunner,
	accountRepo repository.AccountRepository,
	profileRepo repository.ProfileRepository,
) *InstagramService {
	return &InstagramService{
		cfg:         cfg,
		clients:     clients,
		states:      states,
		db:          db,
		accountRepo: accountRepo,
		profileRepo: profileRepo,
		now:         time.Now,
	}
}

func (s *InstagramService) GetAuthorizationURL(ctx context.Context, req AuthRequest) (string, error) {
	if s.cfg.ClientID == "" {
		return "", ErrProviderNotConfigured
	}

	state, err := s.states.Issue(ctx, model.ProviderInstagram, req.SourceIP, req.State)
	if err != nil {
		return "", err
	}
	log.Debug().Str("stateFingerprint", util.TokenFingerprint(state)).Msg("Instagram OAuth state stored")

	params := url.Values{
		"client_id":     {s.cfg.ClientID},
		"redirect_uri":  {s.cfg.RedirectURI},
		"scope":         {strings.Join(scopesOrDefault(req.Scopes, DefaultInstagramScopes), ",")},
		"response_type": {"code"},
		"state":         {state},
		"force_reauth":  {"true"},
	}
	return buildURL(s.cfg.AuthorizeURL, params), nil
}

// HandleCallback validates state, exchanges code for a token, fetches the
// profile and stores account and profile snapshot in one transaction.
func (s *InstagramService) HandleCallback(ctx context.Context, code, state string) (*model.Account, error) {
	if code == "" {
		return nil, apperrors.MissingRequired("code")
	}
	if err := s.states.Consume(ctx, model.ProviderInstagram, state); err != nil {
		return nil, err
	}

	grant, err := s.exchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}

	profileResp, err := s.clients.Graph.Get(ctx, "me", url.Values{
		"fields":       {callbackProfileFields},
		"access_token": {grant.AccessToken},
	})
	if err != nil {
		return nil, upstreamError(model.ProviderInstagram, ErrProfileFetch, err)
	}
	profile, err := profileResp.JSON()
	if err != nil {
		return nil, upstreamError(model.ProviderInstagram, ErrProfileFetch, err)
	}

	now := s.now()
	var account *model.Account
	err = s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		stored, err := s.accountRepo.WithTx(tx).Upsert(ctx, model.UpsertAccountParams{
			Provider:                   model.ProviderInstagram,
			ExternalID:                 grant.UserID,
			Name:                       profile.String("name"),
			AccessToken:                grant.AccessToken,
			Permissions:                grant.Permissions,
			InstagramBusinessAccountID: &grant.UserID,
			TokenObtainedAt:            &now,
		})
		if err != nil {
			return fmt.Errorf("upsert account: %w", err)
		}
		account = stored

		if len(profile) == 0 {
			return nil
		}
		if _, err := s.profileRepo.WithTx(tx).Upsert(ctx, snapshotParams(grant.UserID, profile, now)); err != nil {
			return fmt.Errorf("upsert profile: %w", err)
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("userId", grant.UserID).Msg("Instagram OAuth: failed to store account")
		return nil, apperrors.Database(err)
	}

	log.Info().
		Str("accountId", account.ID).
		Str("userId", grant.UserID).
		Msg("Instagram account connected")

	return account, nil
}

func (s *InstagramService) exchangeCode(ctx context.Context, code string) (*tokenGrant, error) {
	resp, err := s.clients.OAuth.Do(ctx, graph.Request{
		Method: http.MethodPost,
		Path:   "oauth/access_token",
		Body: graph.FormBody{
			"client_id":     {s.cfg.ClientID},
			"client_secret": {s.cfg.ClientSecret},
			"grant_type":    {"authorization_code"},
			"redirect_uri":  {s.cfg.RedirectURI},
			"code":          {code},
		},
	})
	if err != nil {
		return nil, upstreamError(model.ProviderInstagram, ErrTokenExchange, err)
	}
	body, err := resp.JSON()
	if err != nil {
		return nil, upstreamError(model.ProviderInstagram, ErrTokenExchange, err)
	}

	grant, err := normalizeTokenResponse(body)
	if err != nil {
		log.Error().Err(err).RawJSON("response", resp.Raw).Msg("Instagram OAuth: unusable token response")
		return nil, apperrors.External("instagram", fmt.Errorf("%w: %w", ErrTokenExchange, err))
	}
	return grant, nil
}

// normalizeTokenResponse accepts both the legacy {"data":[{...}]} shape and
// the flat {...} shape of the code exchange response.
func normalizeTokenResponse(body graph.JSON) (*tokenGrant, error) {
	source := body
	if items := body.Objects("data"); len(items) > 0 && items[0].String("access_token") != "" {
		source = items[0]
	} else if !body.Has("access_token") {
		return nil, errors.New("unexpected response format")
	}

	grant := &tokenGrant{
		AccessToken: source.String("access_token"),
		UserID:      source.String("user_id"),
		Permissions: source.StringList("permissions"),
	}
	if grant.AccessToken == "" || grant.UserID == "" {
		return nil, errors.New("access_token or user_id missing")
	}
	return grant, nil
}

func snapshotParams(externalID string, profile graph.JSON, now time.Time) model.UpsertProfileParams {
	return model.UpsertProfileParams{
		Provider:       model.ProviderInstagram,
		ExternalID:     externalID,
		ProfileName:    profile.String("name"),
		UserID:         profile.OptString("user_id"),
		Username:       profile.OptString("username"),
		ProfilePicture: profile.OptString("profile_picture_url"),
		Bio:            profile.OptString("biography"),
		AccountType:    profile.OptString("account_type"),
		FollowersCount: profile.OptInt64("followers_count"),
		FollowsCount:   profile.OptInt64("follows_count"),
		MediaCount:     profile.OptInt64("media_count"),
		Website:        profile.OptString("website"),
		LastSyncedAt:   now,
		RawAPIResponse: profile.Marshal(),
	}
}

func (s *InstagramService) GetProfileInfo(ctx context.Context, accessToken string) (graph.JSON, error) {
	if accessToken == "" {
		return nil, apperrors.MissingRequired("Access token")
	}
	return s.fetch(ctx, ErrProfileFetch, "me", url.Values{
		"fields":       {profileInfoFields},
		"access_token": {accessToken},
	})
}

func (s *InstagramService) GetUserMedia(ctx context.Context, creds Credentials) (graph.JSON, error) {
	if creds.UserID == "" || creds.AccessToken == "" {
		return nil, apperrors.New(apperrors.ErrCodeMissingRequired, "User ID and access token are required")
	}
	return s.fetch(ctx, ErrProfileFetch, creds.UserID+"/media", url.Values{
		"access_token": {creds.AccessToken},
		"fields":       {userMediaFields},
	})
}

func (s *InstagramService) GetMediaDetails(ctx context.Context, mediaID, accessToken string) (graph.JSON, error) {
	if accessToken == "" {
		return nil, apperrors.MissingRequired("Access token")
	}
	if mediaID == "" {
		return nil, apperrors.MissingRequired("Media ID")
	}
	return s.fetch(ctx, ErrProfileFetch, mediaID, url.Values{
		"access_token": {accessToken},
		"fields":       {mediaDetailFields},
	})
}

func (s *InstagramService) fetch(ctx context.Context, sentinel error, path string, query url.Values) (graph.JSON, error) {
	resp, err := s.clients.Graph.Get(ctx, path, query)
	if err != nil {
		return nil, upstreamError(model.ProviderInstagram, sentinel, err)
	}
	body, err := resp.JSON()
	if err != nil {
		return nil, upstreamError(model.ProviderInstagram, sentinel, err)
	}
	return body, nil
}

// ExchangeForLongLivedToken trades a short-lived token for a long-lived one.
// Nothing is persisted.
func (s *InstagramService) ExchangeForLongLivedToken(ctx context.Context, shortLivedToken string) (graph.JSON, error) {
	if shortLivedToken == "" {
		return nil, apperrors.MissingRequired("Access token")
	}

	resp, err := s.clients.Token.Get(ctx, "access_token", url.Values{
		"grant_type":    {"ig_exchange_token"},
		"client_secret": {s.cfg.ClientSecret},
		"access_token":  {shortLivedToken},
	})
	if err != nil {
		return nil, upstreamError(model.ProviderInstagram, ErrTokenExchange, err)
	}
	body, err := resp.JSON()
	if err != nil {
		return nil, upstreamError(model.ProviderInstagram, ErrTokenExchange, err)
	}

	audit.Log(ctx, audit.Event{
		Type:     audit.EventTokenExchange,
		Provider: model.ProviderInstagram.String(),
		Details:  map[string]interface{}{"tokenFingerprint": util.TokenFingerprint(shortLivedToken)},
	})
	return body, nil
}

// RefreshLongLivedToken refreshes a stored long-lived token. The provider is
// only called when the token is at least 24 hours old and the account holds
// the instagram_business_basic permission.
func (s *InstagramService) RefreshLongLivedToken(ctx context.Context, longLivedToken string) (graph.JSON, error) {
	if longLivedToken == "" {
		return nil, apperrors.MissingRequired("Access token")
	}

	account, err := s.accountRepo.FindByAccessToken(ctx, model.ProviderInstagram, longLivedToken)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if err := s.checkRefreshAllowed(ctx, account); err != nil {
		return nil, err
	}

	resp, err := s.clients.Token.Get(ctx, "refresh_access_token", url.Values{
		"grant_type":   {"ig_refresh_token"},
		"access_token": {longLivedToken},
	})
	if err != nil {
		return nil, upstreamError(model.ProviderInstagram, ErrTokenRefresh, err)
	}
	body, err := resp.JSON()
	if err != nil {
		return nil, upstreamError(model.ProviderInstagram, ErrTokenRefresh, err)
	}
	return body, nil
}

func (s *InstagramService) checkRefreshAllowed(ctx context.Context, account *model.Account) error {
	var reason string
	switch age, known := ageOf(account, s.now()); {
	case account == nil:
		reason = "account not found"
	case !known:
		reason = "token obtained time unknown"
	case age < config.MinTokenAgeForRefresh:
		reason = "token must be at least 24 hours old"
	case !account.HasPermission(config.RefreshPermission):
		reason = "missing " + config.RefreshPermission + " permission"
	default:
		return nil
	}

	details := map[string]interface{}{"reason": reason}
	event := audit.Event{Type: audit.EventTokenRefreshDenied, Provider: model.ProviderInstagram.String(), Details: details}
	if account != nil {
		event.AccountID = account.ID
	}
	audit.Log(ctx, event)
	return apperrors.RefreshNotAllowed(reason)
}

func ageOf(account *model.Account, now time.Time) (time.Duration, bool) {
	if account == nil {
		return 0, false
	}
	return account.TokenAge(now)
}

// RefreshAccountToken refreshes the token of a stored account and persists the
// new token with its obtained and expiry times.
func (s *InstagramService) RefreshAccountToken(ctx context.Context, accountID string) (*model.Account, error) {
	if !util.IsValidUUID(accountID) {
		return nil, apperrors.NotFound("Instagram account")
	}
	account, err := s.accountRepo.FindByID(ctx, accountID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if account == nil || account.Provider != model.ProviderInstagram {
		return nil, apperrors.NotFound("Instagram account")
	}

	body, err := s.RefreshLongLivedToken(ctx, account.AccessToken)
	if err != nil {
		return nil, err
	}

	token := body.String("access_token")
	if token == "" {
		log.Error().Str("accountId", accountID).Msg("refresh response has no access_token")
		return nil, apperrors.External("instagram", fmt.Errorf("%w: access_token missing", ErrTokenRefresh))
	}

	now := s.now()
	params := model.UpdateTokenParams{AccessToken: token, TokenObtainedAt: now}
	if expiresIn := body.OptInt64("expires_in"); expiresIn != nil {
		expiresAt := now.Add(time.Duration(*expiresIn) * time.Second)
		params.TokenExpiresAt = &expiresAt
	}

	var updated *model.Account
	err = s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		updated, err = s.accountRepo.WithTx(tx).UpdateToken(ctx, accountID, params)
		return err
	})
	if err != nil {
		log.Error().Err(err).Str("accountId", accountID).Msg("failed to store refreshed token")
		return nil, apperrors.Database(err)
	}
	if updated == nil {
		return nil, apperrors.NotFound("Instagram account")
	}

	audit.Log(ctx, audit.Event{Type: audit.EventTokenRefresh, Provider: model.ProviderInstagram.String(), AccountID: accountID})
	return updated, nil
}

// LinkWithFacebookPage records the Facebook Page an Instagram account belongs to.
func (s *InstagramService) LinkWithFacebookPage(ctx context.Context, accountID, pageID string) (*model.Account, error) {
	if pageID == "" {
		return nil, apperrors.MissingRequired("Facebook page ID")
	}
	if !util.IsValidUUID(accountID) {
		return nil, apperrors.NotFound("Instagram account")
	}

	existing, err := s.accountRepo.FindByID(ctx, accountID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if existing == nil || existing.Provider != model.ProviderInstagram {
		return nil, apperrors.NotFound("Instagram account")
	}

	account, err := s.accountRepo.LinkPage(ctx, accountID, pageID)
	if err != nil {
		log.Error().Err(err).Str("accountId", accountID).Msg("failed to link Facebook page")
		return nil, apperrors.Database(err)
	}
	if account == nil {
		return nil, apperrors.NotFound("Instagram account")
	}

	audit.Log(ctx, audit.Event{
		Type:      audit.EventAccountLink,
		Provider:  model.ProviderInstagram.String(),
		AccountID: accountID,
		Details:   map[string]interface{}{"facebookPageId": pageID},
	})
	return account, nil
}
