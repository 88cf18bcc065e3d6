package service

import (
	"github.com/metabridge/graph-connector/internal/model"
)

const (
	ButtonTypeWebURL   = "web_url"
	ButtonTypePostback = "postback"

	DefaultWebviewHeightRatio = "full"
)

// PersistentMenu is one locale entry of the persistent_menu field.
// Nil pointers and slices mean the field was absent.
type PersistentMenu struct {
	Locale                string       `json:"locale"`
	ComposerInputDisabled *bool        `json:"composer_input_disabled"`
	CallToActions         []MenuButton `json:"call_to_actions"`
}

type MenuButton struct {
	Type               string `json:"type"`
	Title              string `json:"title"`
	URL                string `json:"url,omitempty"`
	WebviewHeightRatio string `json:"webview_height_ratio,omitempty"`
	Payload            string `json:"payload,omitempty"`
}

// IceBreaker is one locale entry of the ice_breakers field.
type IceBreaker struct {
	Locale        string             `json:"locale"`
	CallToActions []IceBreakerAction `json:"call_to_actions"`
}

type IceBreakerAction struct {
	Question string `json:"question"`
	Payload  string `json:"payload"`
}

// Target is the Instagram user whose messenger profile is changed.
type Target struct {
	UserID      string
	AccessToken string
}

// TargetFor addresses the messenger profile of a stored account.
func TargetFor(account *model.Account) Target {
	return Target{UserID: account.GraphUserID(), AccessToken: account.AccessToken}
}

func CreateLocalizedMenu(locale string, composerInputDisabled bool, actions []MenuButton) PersistentMenu {
	if actions == nil {
		actions = []MenuButton{}
	}
	return PersistentMenu{
		Locale:                locale,
		ComposerInputDisabled: &composerInputDisabled,
		CallToActions:         actions,
	}
}

// CreateURLButton builds a web_url button; ratio defaults to "full".
func CreateURLButton(title, url, webviewHeightRatio string) MenuButton {
	if webviewHeightRatio == "" {
		webviewHeightRatio = DefaultWebviewHeightRatio
	}
	return MenuButton{
		Type:               ButtonTypeWebURL,
		Title:              title,
		URL:                url,
		WebviewHeightRatio: webviewHeightRatio,
	}
}

func CreatePostbackButton(title, payload string) MenuButton {
	return MenuButton{Type: ButtonTypePostback, Title: title, Payload: payload}
}

func CreateIceBreaker(locale string, actions []IceBreakerAction) IceBreaker {
	if actions == nil {
		actions = []IceBreakerAction{}
	}
	return IceBreaker{Locale: locale, CallToActions: actions}
}

func CreateIceBreakerAction(question, payload string) IceBreakerAction {
	return IceBreakerAction{Question: question, Payload: payload}
}
