package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	apperrors "github.com/metabridge/graph-connector/internal/errors"
	"github.com/metabridge/graph-connector/internal/httputil"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

// writeServiceError logs err unless it is a plain client error and writes it
// through the AppError status mapping.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	status := httputil.StatusFromCode(apperrors.GetCode(err))
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Msg(msg)
	} else {
		log.Warn().Err(err).Str("path", r.URL.Path).Msg(msg)
	}
	httputil.WriteError(w, err)
}

func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return apperrors.InvalidInput("body", "request body is empty")
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperrors.InvalidInput("body", "request body too large")
		}
		return apperrors.InvalidInput("body", "malformed JSON")
	}
	return nil
}
