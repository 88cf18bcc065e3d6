package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/metabridge/graph-connector/internal/config"
	"github.com/metabridge/graph-connector/internal/database"
	apperrors "github.com/metabridge/graph-connector/internal/errors"
	"github.com/metabridge/graph-connector/internal/graph"
	"github.com/metabridge/graph-connector/internal/model"
	"github.com/metabridge/graph-connector/internal/repository"
)

var DefaultFacebookScopes = []string{"pages_show_list", "pages_read_engagement", "pages_messaging"}

const facebookPageFields = "id,name,access_token,tasks,instagram_business_account"

// FacebookService connects Facebook Pages through the Facebook Login dialog.
type FacebookService struct {
	cfg         config.FacebookConfig
	client      *graph.Client
	states      *StateService
	db          database.TxRunner
	accountRepo repository.AccountRepository
	now         func() time.Time
}

func NewFacebookService(
	cfg config.FacebookConfig,
	client *graph.Client,
	states *StateService,
	db database.TxRunner,
	accountRepo repository.AccountRepository,
) *FacebookService {
	return &FacebookService{
		cfg:         cfg,
		client:      client,
		states:      states,
		db:          db,
		accountRepo: accountRepo,
		now:         time.Now,
	}
}

func (s *FacebookService) GetAuthorizationURL(ctx context.Context, req AuthRequest) (string, error) {
	if s.cfg.ClientID == "" {
		return "", ErrProviderNotConfigured
	}

	state, err := s.states.Issue(ctx, model.ProviderFacebook, req.SourceIP, req.State)
	if err != nil {
		return "", err
	}

	params := url.Values{
		"client_id":     {s.cfg.ClientID},
		"redirect_uri":  {s.cfg.RedirectURI},
		"scope":         {strings.Join(scopesOrDefault(req.Scopes, DefaultFacebookScopes), ",")},
		"response_type": {"code"},
		"state":         {state},
	}

	base := fmt.Sprintf("%s/%s/dialog/oauth", strings.TrimRight(s.cfg.DialogBaseURL, "/"), s.cfg.Version)
	return buildURL(base, params), nil
}

// HandleCallback exchanges code for a user token and stores every Page the
// user manages. Nothing is written unless all remote calls succeed.
func (s *FacebookService) HandleCallback(ctx context.Context, code, state string) ([]*model.Account, error) {
	if code == "" {
		return nil, apperrors.MissingRequired("code")
	}
	if err := s.states.Consume(ctx, model.ProviderFacebook, state); err != nil {
		return nil, err
	}

	tokenResp, err := s.client.Get(ctx, "oauth/access_token", url.Values{
		"client_id":     {s.cfg.ClientID},
		"client_secret": {s.cfg.ClientSecret},
		"redirect_uri":  {s.cfg.RedirectURI},
		"code":          {code},
	})
	if err != nil {
		return nil, upstreamError(model.ProviderFacebook, ErrTokenExchange, err)
	}
	token, err := tokenResp.JSON()
	if err != nil {
		return nil, upstreamError(model.ProviderFacebook, ErrTokenExchange, err)
	}
	userToken := token.String("access_token")
	if userToken == "" {
		log.Error().RawJSON("response", tokenResp.Raw).Msg("Facebook OAuth: access_token missing")
		return nil, apperrors.External("facebook", fmt.Errorf("%w: access_token missing", ErrTokenExchange))
	}

	pagesResp, err := s.client.Get(ctx, "me/accounts", url.Values{
		"fields":       {facebookPageFields},
		"access_token": {userToken},
	})
	if err != nil {
		return nil, upstreamError(model.ProviderFacebook, ErrPageFetch, err)
	}
	body, err := pagesResp.JSON()
	if err != nil {
		return nil, upstreamError(model.ProviderFacebook, ErrPageFetch, err)
	}
	pages := body.Objects("data")
	if len(pages) == 0 {
		log.Warn().Msg("Facebook OAuth: no pages returned for user")
		return nil, apperrors.NotFound("Facebook page")
	}

	now := s.now()
	accounts := make([]*model.Account, 0, len(pages))
	err = s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		repo := s.accountRepo.WithTx(tx)
		for _, page := range pages {
			account, err := repo.Upsert(ctx, pageParams(page, now))
			if err != nil {
				return fmt.Errorf("upsert page %s: %w", page.String("id"), err)
			}
			accounts = append(accounts, account)
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("Facebook OAuth: failed to store pages")
		return nil, apperrors.Database(err)
	}

	log.Info().Int("pages", len(accounts)).Msg("Facebook pages connected")
	return accounts, nil
}

func pageParams(page graph.JSON, now time.Time) model.UpsertAccountParams {
	params := model.UpsertAccountParams{
		Provider:        model.ProviderFacebook,
		ExternalID:      page.String("id"),
		Name:            page.String("name"),
		AccessToken:     page.String("access_token"),
		Permissions:     page.StringList("tasks"),
		TokenObtainedAt: &now,
	}
	if ig := page.Object("instagram_business_account"); ig != nil {
		params.InstagramBusinessAccountID = ig.OptString("id")
	}
	return params
}
