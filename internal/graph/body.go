package graph

import (
	"encoding/json"
	"net/url"
)

// Body is a request payload that knows its own encoding.
type Body interface {
	ContentType() string
	Encode() ([]byte, error)
}

// JSONBody sends Value as application/json.
type JSONBody struct {
	Value any
}

func (b JSONBody) ContentType() string {
	return "application/json"
}

func (b JSONBody) Encode() ([]byte, error) {
	return json.Marshal(b.Value)
}

// FormBody sends the values as application/x-www-form-urlencoded,
// as the OAuth token endpoints require.
type FormBody url.Values

func (b FormBody) ContentType() string {
	return "application/x-www-form-urlencoded"
}

func (b FormBody) Encode() ([]byte, error) {
	return []byte(url.Values(b).Encode()), nil
}
