package service

import (
	"github.com/metabridge/graph-connector/internal/config"
	"github.com/metabridge/graph-connector/internal/graph"
	"github.com/metabridge/graph-connector/internal/metrics"
	"github.com/metabridge/graph-connector/internal/model"
)

// InstagramClients groups the three hosts the Instagram flow talks to.
type InstagramClients struct {
	// Graph is the versioned graph.instagram.com client.
	Graph *graph.Client
	// Token is graph.instagram.com without a version segment (long-lived token endpoints).
	Token *graph.Client
	// OAuth is api.instagram.com, used for the authorization code exchange.
	OAuth *graph.Client
}

func NewFacebookClient(cfg config.FacebookConfig, m *metrics.Metrics) *graph.Client {
	return graph.NewClient(graph.Options{
		Provider:      model.ProviderFacebook.String(),
		BaseURL:       cfg.BaseURL,
		Version:       cfg.Version,
		Timeout:       cfg.Timeout(),
		RetryAttempts: cfg.RetryAttempts,
		RetryBackoff:  cfg.RetryBackoff(),
		Metrics:       m,
	})
}

func NewInstagramClients(cfg config.InstagramConfig, m *metrics.Metrics) InstagramClients {
	opts := graph.Options{
		Provider:      model.ProviderInstagram.String(),
		Timeout:       cfg.Timeout(),
		RetryAttempts: cfg.RetryAttempts,
		RetryBackoff:  cfg.RetryBackoff(),
		Metrics:       m,
	}

	versioned := opts
	versioned.BaseURL = cfg.GraphBaseURL
	versioned.Version = cfg.Version

	token := opts
	token.BaseURL = cfg.GraphBaseURL

	oauth := opts
	oauth.BaseURL = cfg.OAuthBaseURL

	return InstagramClients{
		Graph: graph.NewClient(versioned),
		Token: graph.NewClient(token),
		OAuth: graph.NewClient(oauth),
	}
}
