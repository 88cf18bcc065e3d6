package model

type Provider string

const (
	ProviderFacebook  Provider = "facebook"
	ProviderInstagram Provider = "instagram"
)

var Providers = []Provider{ProviderFacebook, ProviderInstagram}

func (p Provider) Valid() bool {
	return p == ProviderFacebook || p == ProviderInstagram
}

func (p Provider) String() string {
	return string(p)
}

func ParseProvider(s string) (Provider, bool) {
	p := Provider(s)
	return p, p.Valid()
}

// WebhookEventType classifies one messaging item of a webhook delivery.
type WebhookEventType string

const (
	EventTypeMessage  WebhookEventType = "message"
	EventTypeEcho     WebhookEventType = "echo"
	EventTypePostback WebhookEventType = "postback"
	EventTypeRead     WebhookEventType = "read"
	EventTypeReaction WebhookEventType = "reaction"
	EventTypeChange   WebhookEventType = "change"
	EventTypeUnknown  WebhookEventType = "unknown"
)
