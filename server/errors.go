package server

import (
	"net/http"

	"github.com/jrsteele09/go-cloud-gateway/auth"
	gwerrors "github.com/jrsteele09/go-cloud-gateway/internal/errors"
	"github.com/rs/zerolog/hlog"
)

func writeError(w http.ResponseWriter, status int, code, description string) {
	auth.WriteJSON(w, status, auth.ErrorResponse{Error: code, ErrorDescription: description})
}

// writeGatewayError maps a failure to its response. The cause is only ever logged.
func writeGatewayError(w http.ResponseWriter, r *http.Request, err error) {
	logger := hlog.FromRequest(r)
	switch {
	case gwerrors.Is(err, gwerrors.ErrUpstreamTimeout):
		logger.Warn().Err(err).Msg("upstream timeout")
		writeError(w, http.StatusGatewayTimeout, "gateway_timeout", "Upstream service timed out")
	case gwerrors.Is(err, gwerrors.ErrUpstreamUnavailable):
		logger.Warn().Err(err).Msg("upstream unavailable")
		writeError(w, http.StatusBadGateway, "bad_gateway", "Upstream service unavailable")
	case gwerrors.Is(err, gwerrors.ErrUnknownUpstream):
		logger.Debug().Err(err).Msg("unknown upstream")
		writeError(w, http.StatusNotFound, "not_found", "Not found")
	case gwerrors.Is(err, gwerrors.ErrAuthenticationFailed), gwerrors.Is(err, gwerrors.ErrStateInvalid):
		logger.Debug().Err(err).Msg("sso login rejected")
		auth.WriteUnauthorized(w)
	default:
		logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "server_error", "Internal server error")
	}
}
