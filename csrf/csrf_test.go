package csrf_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/go-cloud-gateway/csrf"
	gwerrors "github.com/jrsteele09/go-cloud-gateway/internal/errors"
	"github.com/stretchr/testify/require"
)

const sessionToken = "session-token-value"

func request(method, cookie, header string) *http.Request {
	r := httptest.NewRequest(method, "/tsg/api/cloudapi/my/machines", nil)
	if cookie != "" {
		r.AddCookie(&http.Cookie{Name: csrf.DefaultCookieName, Value: cookie})
	}
	if header != "" {
		r.Header.Set(csrf.DefaultHeaderName, header)
	}
	return r
}

func TestGuard_Verify(t *testing.T) {
	g := csrf.New(csrf.Options{})

	testCases := []struct {
		name   string
		method string
		cookie string
		header string
		ok     bool
	}{
		{"safe method without token", http.MethodGet, "", "", true},
		{"head without token", http.MethodHead, "", "", true},
		{"post with matching token", http.MethodPost, sessionToken, sessionToken, true},
		{"delete with matching token", http.MethodDelete, sessionToken, sessionToken, true},
		{"post without anything", http.MethodPost, "", "", false},
		{"put without header", http.MethodPut, sessionToken, "", false},
		{"patch without cookie", http.MethodPatch, "", sessionToken, false},
		{"header differs from cookie", http.MethodPost, sessionToken, "other", false},
		{"cookie and header agree but not with session", http.MethodPost, "forged", "forged", false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := g.Verify(request(tc.method, tc.cookie, tc.header), sessionToken)
			if tc.ok {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, gwerrors.ErrCSRF)
		})
	}

	t.Run("session without token", func(t *testing.T) {
		err := g.Verify(request(http.MethodPost, "x", "x"), "")
		require.ErrorIs(t, err, gwerrors.ErrCSRF)
	})
}

func TestGuard_Cookies(t *testing.T) {
	g := csrf.New(csrf.Options{Domain: "example.com", Secure: true, TTL: 4 * time.Hour})
	token, err := csrf.NewToken()
	require.NoError(t, err)
	other, err := csrf.NewToken()
	require.NoError(t, err)
	require.NotEqual(t, token, other)

	rec := httptest.NewRecorder()
	g.SetCookie(rec, token)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "crumb", cookies[0].Name)
	require.Equal(t, token, cookies[0].Value)
	require.False(t, cookies[0].HttpOnly)
	require.True(t, cookies[0].Secure)
	require.Equal(t, 4*60*60, cookies[0].MaxAge)

	rec = httptest.NewRecorder()
	g.ClearCookie(rec)
	require.Equal(t, -1, rec.Result().Cookies()[0].MaxAge)

	require.True(t, g.HasCookie(request(http.MethodGet, token, "")))
	require.False(t, g.HasCookie(request(http.MethodGet, "", "")))
	require.Equal(t, "X-CSRF-Token", g.HeaderName())
	require.Equal(t, "crumb", g.CookieName())
}
