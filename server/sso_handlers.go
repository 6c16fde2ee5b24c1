package server

import (
	"net/http"

	"github.com/jrsteele09/go-cloud-gateway/sso"
	"github.com/rs/zerolog/hlog"
)

// LoginHandler starts an SSO login. ?returnTo must be a path on this site.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		returnTo := sso.SafeReturnTo(r.URL.Query().Get("returnTo"))
		if err := s.sso.Begin(w, r, returnTo); err != nil {
			writeGatewayError(w, r, err)
		}
	}
}

// CallbackHandler completes the exchange with the identity provider
func (s *Server) CallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		returnTo, err := s.sso.Complete(w, r)
		if err != nil {
			writeGatewayError(w, r, err)
			return
		}
		http.Redirect(w, r, returnTo, http.StatusSeeOther)
	}
}

func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.sso.Logout(w)
		hlog.FromRequest(r).Debug().Msg("session cleared")
		http.Redirect(w, r, sso.SafeReturnTo(r.URL.Query().Get("returnTo")), http.StatusSeeOther)
	}
}
