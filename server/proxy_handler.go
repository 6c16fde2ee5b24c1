package server

import (
	"io"
	"net/http"

	"github.com/jrsteele09/go-cloud-gateway/auth"
	gwerrors "github.com/jrsteele09/go-cloud-gateway/internal/errors"
	"github.com/jrsteele09/go-cloud-gateway/upstream"
	"github.com/rs/zerolog/hlog"
)

// forwardedRequestHeaders are the only inbound headers passed upstream. Cookies and
// credentials belong to the gateway and never leave it.
var forwardedRequestHeaders = []string{
	"Accept",
	"Accept-Language",
	"Accept-Version",
	"Content-Type",
	"If-Match",
	"If-None-Match",
	"If-Modified-Since",
	"X-Request-Id",
}

var droppedResponseHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
	"Set-Cookie",
	"Content-Length",
}

// ProxyHandler forwards /api/{upstream}/{path...} to the named upstream, signed with the
// operator key on behalf of the authenticated identity
func (s *Server) ProxyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("upstream")
		client, ok := s.upstreams.Get(name)
		if !ok {
			writeGatewayError(w, r, gwerrors.Wrapf(gwerrors.ErrUnknownUpstream, "upstream %q", name))
			return
		}
		id, _ := auth.IdentityFromContext(r.Context())

		req, err := client.NewRequest(r.Context(), r.Method, r.PathValue("path"), r.URL.Query(), r.Body)
		if err != nil {
			writeGatewayError(w, r, err)
			return
		}
		req.ContentLength = r.ContentLength
		for _, h := range forwardedRequestHeaders {
			if v := r.Header.Values(h); len(v) > 0 {
				req.Header[h] = v
			}
		}

		resp, err := client.Do(req, id)
		if err != nil {
			writeGatewayError(w, r, err)
			return
		}
		defer resp.Body.Close()

		if suppressedStatus(resp.StatusCode) {
			// Error bodies may echo request or signing material; they are never forwarded
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
			writeGatewayError(w, r, gwerrors.Wrapf(gwerrors.ErrUpstreamUnavailable, "%s returned %d", name, resp.StatusCode))
			return
		}
		s.copyResponse(w, r, client, resp)
	}
}

// suppressedStatus reports upstream statuses the caller only sees as a gateway error.
// A 401 or 403 from an upstream rejects the operator signature, not the caller.
func suppressedStatus(code int) bool {
	return code == http.StatusUnauthorized || code == http.StatusForbidden || code >= http.StatusInternalServerError
}

func (s *Server) copyResponse(w http.ResponseWriter, r *http.Request, client *upstream.Client, resp *http.Response) {
	header := w.Header()
	for name, values := range resp.Header {
		header[name] = values
	}
	for _, name := range droppedResponseHeaders {
		header.Del(name)
	}
	s.applySecurityHeaders(header)

	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		hlog.FromRequest(r).Debug().Err(err).Str("upstream", client.Name()).Msg("response copy interrupted")
	}
}
