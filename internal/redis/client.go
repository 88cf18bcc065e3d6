package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type Client struct {
	*redis.Client
}

func NewClient(ctx context.Context, redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Client{client}, nil
}

func (c *Client) Close() error {
	return c.Client.Close()
}

// WebhookChannel is the pub/sub channel carrying stored webhook events of a provider.
func WebhookChannel(provider string) string {
	return fmt.Sprintf("webhooks:%s", provider)
}

func OAuthStateKey(provider, state string) string {
	return fmt.Sprintf("oauth_state:%s:%s", provider, state)
}

func RateLimitKey(key string) string {
	return fmt.Sprintf("ratelimit:%s", key)
}

// PublishEvent publishes payload on channel.
func (c *Client) PublishEvent(ctx context.Context, channel string, payload []byte) error {
	return c.Publish(ctx, channel, payload).Err()
}
