package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	apperrors "github.com/metabridge/graph-connector/internal/errors"
	"github.com/metabridge/graph-connector/internal/graph"
	"github.com/metabridge/graph-connector/internal/model"
)

const (
	messengerPlatform = "instagram"

	maxMenuButtons        = 5
	maxButtonTitleLength  = 30
	maxIceBreakers        = 4
	maxQuestionLength     = 100
	fieldPersistentMenu   = "persistent_menu"
	fieldIceBreakers      = "ice_breakers"
	messengerProfileError = "messenger profile request failed"
)

var ErrMessengerProfile = errors.New(messengerProfileError)

// MessengerProfileService validates and manages the persistent menu and ice
// breakers of an Instagram messaging account.
type MessengerProfileService struct {
	client *graph.Client
}

func NewMessengerProfileService(client *graph.Client) *MessengerProfileService {
	return &MessengerProfileService{client: client}
}

func (s *MessengerProfileService) SetPersistentMenu(ctx context.Context, target Target, menus []PersistentMenu) (graph.JSON, error) {
	if err := target.validate(); err != nil {
		return nil, err
	}
	if err := ValidatePersistentMenu(menus); err != nil {
		return nil, err
	}

	body := map[string]any{"platform": messengerPlatform, fieldPersistentMenu: menus}
	return s.call(ctx, target, "set persistent menu", graph.Request{
		Method:     http.MethodPost,
		Body:       graph.JSONBody{Value: body},
		ExtraQuery: url.Values{"access_token": {target.AccessToken}},
	})
}

func (s *MessengerProfileService) GetPersistentMenu(ctx context.Context, target Target) (graph.JSON, error) {
	return s.get(ctx, target, fieldPersistentMenu)
}

func (s *MessengerProfileService) DeletePersistentMenu(ctx context.Context, target Target) (graph.JSON, error) {
	if err := target.validate(); err != nil {
		return nil, err
	}
	return s.call(ctx, target, "delete persistent menu", graph.Request{
		Method: http.MethodDelete,
		ExtraQuery: url.Values{
			"access_token": {target.AccessToken},
			"fields":       {fieldPersistentMenu},
			"platform":     {messengerPlatform},
		},
	})
}

func (s *MessengerProfileService) SetIceBreakers(ctx context.Context, target Target, iceBreakers []IceBreaker) (graph.JSON, error) {
	if err := target.validate(); err != nil {
		return nil, err
	}
	if err := ValidateIceBreakers(iceBreakers); err != nil {
		return nil, err
	}

	body := map[string]any{"platform": messengerPlatform, fieldIceBreakers: iceBreakers}
	return s.call(ctx, target, "set ice breakers", graph.Request{
		Method:     http.MethodPost,
		Body:       graph.JSONBody{Value: body},
		ExtraQuery: url.Values{"access_token": {target.AccessToken}},
	})
}

func (s *MessengerProfileService) GetIceBreakers(ctx context.Context, target Target) (graph.JSON, error) {
	return s.get(ctx, target, fieldIceBreakers)
}

func (s *MessengerProfileService) DeleteIceBreakers(ctx context.Context, target Target) (graph.JSON, error) {
	if err := target.validate(); err != nil {
		return nil, err
	}
	return s.call(ctx, target, "delete ice breakers", graph.Request{
		Method: http.MethodDelete,
		Body:   graph.JSONBody{Value: map[string]any{"fields": []string{fieldIceBreakers}}},
		ExtraQuery: url.Values{
			"access_token": {target.AccessToken},
			"platform":     {messengerPlatform},
		},
	})
}

func (s *MessengerProfileService) get(ctx context.Context, target Target, field string) (graph.JSON, error) {
	if err := target.validate(); err != nil {
		return nil, err
	}
	return s.call(ctx, target, "get "+field, graph.Request{
		Method: http.MethodGet,
		ExtraQuery: url.Values{
			"access_token": {target.AccessToken},
			"fields":       {field},
			"platform":     {messengerPlatform},
		},
	})
}

func (s *MessengerProfileService) call(ctx context.Context, target Target, op string, req graph.Request) (graph.JSON, error) {
	req.Path = target.UserID + "/messenger_profile"

	resp, err := s.client.Do(ctx, req)
	if err != nil {
		log.Error().Err(err).Str("userId", target.UserID).Str("operation", op).Msg(messengerProfileError)
		return nil, apperrors.External(model.ProviderInstagram.String(), fmt.Errorf("%w: %w", ErrMessengerProfile, err))
	}
	body, err := resp.JSON()
	if err != nil {
		return nil, apperrors.External(model.ProviderInstagram.String(), fmt.Errorf("%w: %w", ErrMessengerProfile, err))
	}

	log.Info().Str("userId", target.UserID).Str("operation", op).Msg("messenger profile request succeeded")
	return body, nil
}

func (t Target) validate() error {
	if t.AccessToken == "" {
		return apperrors.New(apperrors.ErrCodeMissingRequired, "Access token is required")
	}
	if t.UserID == "" {
		return apperrors.New(apperrors.ErrCodeMissingRequired, "Instagram user ID is required")
	}
	return nil
}

// ValidatePersistentMenu checks menus against the Messenger Platform rules
// and reports the first violated rule.
func ValidatePersistentMenu(menus []PersistentMenu) error {
	if menus == nil {
		return apperrors.ValidationError("persistent_menu must be an array")
	}
	for _, menu := range menus {
		if menu.Locale == "" {
			return apperrors.ValidationError("each menu must have a locale")
		}
		if menu.ComposerInputDisabled == nil {
			return apperrors.ValidationError("each menu must have composer_input_disabled")
		}
		if menu.CallToActions == nil {
			return apperrors.ValidationError("each menu must have a call_to_actions array")
		}
		if len(menu.CallToActions) > maxMenuButtons {
			return apperrors.ValidationError("menu cannot have more than 5 items")
		}

		for _, button := range menu.CallToActions {
			if err := validateButton(button); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateButton(button MenuButton) error {
	if button.Type != ButtonTypeWebURL && button.Type != ButtonTypePostback {
		return apperrors.ValidationError("invalid button type: only web_url and postback are allowed")
	}
	if button.Title == "" {
		return apperrors.ValidationError("each button must have a title")
	}
	if utf8.RuneCountInString(button.Title) > maxButtonTitleLength {
		return apperrors.ValidationError("button title cannot exceed 30 characters")
	}

	switch button.Type {
	case ButtonTypeWebURL:
		if button.URL == "" {
			return apperrors.ValidationError("web_url buttons require a url")
		}
		if button.WebviewHeightRatio == "" {
			return apperrors.ValidationError("web_url buttons require webview_height_ratio")
		}
	case ButtonTypePostback:
		if button.Payload == "" {
			return apperrors.ValidationError("postback buttons require a payload")
		}
	}
	return nil
}

func ValidateIceBreakers(iceBreakers []IceBreaker) error {
	if iceBreakers == nil {
		return apperrors.ValidationError("ice_breakers must be an array")
	}
	for _, iceBreaker := range iceBreakers {
		if iceBreaker.Locale == "" {
			return apperrors.ValidationError("each ice breaker must have a locale")
		}
		if iceBreaker.CallToActions == nil {
			return apperrors.ValidationError("each ice breaker must have a call_to_actions array")
		}
		if len(iceBreaker.CallToActions) > maxIceBreakers {
			return apperrors.ValidationError("each ice breaker cannot have more than 4 questions")
		}

		for _, action := range iceBreaker.CallToActions {
			if action.Question == "" {
				return apperrors.ValidationError("each action must have a question")
			}
			if action.Payload == "" {
				return apperrors.ValidationError("each action must have a payload")
			}
			if utf8.RuneCountInString(action.Question) > maxQuestionLength {
				return apperrors.ValidationError("question cannot exceed 100 characters")
			}
		}
	}
	return nil
}
