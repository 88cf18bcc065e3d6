package sse

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	redisclient "github.com/metabridge/graph-connector/internal/redis"
)

const (
	HeartbeatInterval = 30 * time.Second
	clientBufferSize  = 100
)

type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type Client struct {
	Provider string
	Events   chan Event
	Done     chan struct{}
}

// Broker fans the webhook event channel of each provider out to SSE clients.
// One Redis subscription is held per provider while it has clients.
type Broker struct {
	redis   *redisclient.Client
	clients map[string]map[*Client]bool // provider -> set of clients
	stops   map[string]context.CancelFunc
	mu      sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewBroker(redisClient *redisclient.Client) *Broker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Broker{
		redis:   redisClient,
		clients: make(map[string]map[*Client]bool),
		stops:   make(map[string]context.CancelFunc),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (b *Broker) Subscribe(provider string) *Client {
	client := &Client{
		Provider: provider,
		Events:   make(chan Event, clientBufferSize),
		Done:     make(chan struct{}),
	}

	b.mu.Lock()
	if b.clients[provider] == nil {
		b.clients[provider] = make(map[*Client]bool)
		subCtx, stop := context.WithCancel(b.ctx)
		b.stops[provider] = stop
		go b.subscribeToRedis(subCtx, provider)
	}
	b.clients[provider][client] = true
	clientCount := len(b.clients[provider])
	b.mu.Unlock()

	log.Info().
		Str("provider", provider).
		Int("clientCount", clientCount).
		Msg("sse client subscribed")

	return client
}

func (b *Broker) Unsubscribe(client *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if clients, ok := b.clients[client.Provider]; ok {
		if _, present := clients[client]; !present {
			return
		}
		delete(clients, client)
		close(client.Done)

		if len(clients) == 0 {
			delete(b.clients, client.Provider)
			if stop, ok := b.stops[client.Provider]; ok {
				stop()
				delete(b.stops, client.Provider)
			}
		}

		log.Info().
			Str("provider", client.Provider).
			Int("clientCount", len(clients)).
			Msg("sse client unsubscribed")
	}
}

func (b *Broker) subscribeToRedis(ctx context.Context, provider string) {
	channel := redisclient.WebhookChannel(provider)
	pubsub := b.redis.Subscribe(ctx, channel)
	defer pubsub.Close()

	log.Debug().
		Str("provider", provider).
		Str("channel", channel).
		Msg("redis pubsub subscribed")

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}
			if !json.Valid([]byte(msg.Payload)) {
				log.Error().Str("channel", channel).Msg("dropping non-JSON webhook event")
				continue
			}

			b.broadcast(provider, Event{Type: "webhook_event", Data: json.RawMessage(msg.Payload)})
		}
	}
}

func (b *Broker) broadcast(provider string, event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for client := range b.clients[provider] {
		select {
		case client.Events <- event:
		default:
			log.Warn().
				Str("provider", provider).
				Msg("client event buffer full, dropping event")
		}
	}
}

func (b *Broker) Close() {
	b.cancel()

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, clients := range b.clients {
		for client := range clients {
			close(client.Done)
		}
	}
	b.clients = make(map[string]map[*Client]bool)
	b.stops = make(map[string]context.CancelFunc)
}

func (b *Broker) ClientCount(provider string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients[provider])
}

func (b *Broker) TotalClients() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	total := 0
	for _, clients := range b.clients {
		total += len(clients)
	}
	return total
}
