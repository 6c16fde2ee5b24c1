package sso_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-cloud-gateway/auth"
	"github.com/jrsteele09/go-cloud-gateway/csrf"
	gwerrors "github.com/jrsteele09/go-cloud-gateway/internal/errors"
	"github.com/jrsteele09/go-cloud-gateway/sso"
	"github.com/stretchr/testify/require"
)

const idpURL = "https://idp.example.com/authorize"

type fakeExchanger struct {
	account   *sso.Account
	err       error
	block     bool
	gotNonce  string
	gotState  string
	authNonce string
}

func (f *fakeExchanger) AuthURL(state, nonce string) (string, error) {
	f.gotState = state
	f.authNonce = nonce
	return idpURL + "?state=" + url.QueryEscape(state), nil
}

func (f *fakeExchanger) Exchange(ctx context.Context, _ *http.Request, nonce string) (*sso.Account, error) {
	f.gotNonce = nonce
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.account, f.err
}

type testFixture struct {
	strategy  *sso.Strategy
	exchanger *fakeExchanger
	registry  *auth.Registry
	now       time.Time
	mu        sync.Mutex
}

func (f *testFixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *testFixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func setupTestFixture(t *testing.T, opts sso.Options) *testFixture {
	t.Helper()
	f := &testFixture{
		exchanger: &fakeExchanger{account: &sso.Account{Login: "alice", Token: "upstream-token"}},
		now:       testNow,
	}
	opts.Password = testPassword
	if opts.TTL == 0 {
		opts.TTL = time.Hour
	}
	opts.HTTPOnly = true
	opts.Secure = true
	strategy, err := sso.New(f.exchanger, csrf.New(csrf.Options{Secure: true, TTL: opts.TTL}), opts)
	require.NoError(t, err)
	f.strategy = strategy.WithClock(f.clock)

	f.registry, err = auth.NewRegistry(f.strategy)
	require.NoError(t, err)
	return f
}

// login drives Begin and Complete and returns the cookies a browser would now hold
func (f *testFixture) login(t *testing.T) map[string]*http.Cookie {
	t.Helper()
	begin := httptest.NewRecorder()
	require.NoError(t, f.strategy.Begin(begin, httptest.NewRequest(http.MethodGet, "/tsg/login", nil), "/tsg/api/cloudapi/my"))
	require.Equal(t, http.StatusFound, begin.Code)

	callback := httptest.NewRequest(http.MethodGet, "/tsg/_sso?token=abc&state="+url.QueryEscape(f.exchanger.gotState), nil)
	for _, c := range begin.Result().Cookies() {
		callback.AddCookie(c)
	}
	w := httptest.NewRecorder()
	returnTo, err := f.strategy.Complete(w, callback)
	require.NoError(t, err)
	require.Equal(t, "/tsg/api/cloudapi/my", returnTo)

	jar := map[string]*http.Cookie{}
	for _, c := range w.Result().Cookies() {
		jar[c.Name] = c
	}
	return jar
}

func (f *testFixture) serve(r *http.Request) *httptest.ResponseRecorder {
	mw, err := f.registry.Middleware(auth.Default())
	if err != nil {
		panic(err)
	}
	w := httptest.NewRecorder()
	mw(func(w http.ResponseWriter, r *http.Request) {
		id, _ := auth.IdentityFromContext(r.Context())
		w.Header().Set("X-Principal", id.Principal)
		w.WriteHeader(http.StatusOK)
	})(w, r)
	return w
}

func withCookies(r *http.Request, cookies ...*http.Cookie) *http.Request {
	for _, c := range cookies {
		r.AddCookie(c)
	}
	return r
}

func TestStrategy_LoginFlow(t *testing.T) {
	f := setupTestFixture(t, sso.Options{})
	jar := f.login(t)

	require.Equal(t, f.exchanger.authNonce, f.exchanger.gotNonce)

	session := jar[sso.DefaultCookieName]
	require.NotNil(t, session)
	require.True(t, session.HttpOnly)
	require.True(t, session.Secure)
	require.Equal(t, 3600, session.MaxAge)

	crumb := jar[csrf.DefaultCookieName]
	require.NotNil(t, crumb)
	require.False(t, crumb.HttpOnly)
	require.NotEmpty(t, crumb.Value)

	state := jar[sso.DefaultStateCookieName]
	require.NotNil(t, state)
	require.Equal(t, -1, state.MaxAge)

	w := f.serve(withCookies(httptest.NewRequest(http.MethodGet, "/tsg/api/cloudapi/my", nil), session, crumb))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "alice", w.Header().Get("X-Principal"))
}

func TestStrategy_Authenticate_Identity(t *testing.T) {
	f := setupTestFixture(t, sso.Options{})
	jar := f.login(t)

	r := withCookies(httptest.NewRequest(http.MethodGet, "/", nil), jar[sso.DefaultCookieName], jar[csrf.DefaultCookieName])
	id, err := f.strategy.Authenticate(httptest.NewRecorder(), r)
	require.NoError(t, err)
	require.Equal(t, "alice", id.Principal)
	require.Equal(t, auth.MechanismSSO, id.Mechanism)
	require.Equal(t, "upstream-token", id.Token)
	require.Equal(t, jar[csrf.DefaultCookieName].Value, id.CSRFToken)
	require.NotEmpty(t, id.SessionID)
}

func TestStrategy_TTLBoundary(t *testing.T) {
	f := setupTestFixture(t, sso.Options{TTL: time.Hour})
	jar := f.login(t)
	request := func() *http.Request {
		return withCookies(httptest.NewRequest(http.MethodPost, "/tsg/api/cloudapi/my/machines", nil),
			jar[sso.DefaultCookieName], jar[csrf.DefaultCookieName])
	}
	authenticate := func() error {
		r := request()
		r.Header.Set(csrf.DefaultHeaderName, jar[csrf.DefaultCookieName].Value)
		_, err := f.strategy.Authenticate(httptest.NewRecorder(), r)
		return err
	}

	require.NoError(t, authenticate())
	f.advance(time.Hour - time.Second)
	require.NoError(t, authenticate())
	f.advance(time.Second)
	require.ErrorIs(t, authenticate(), gwerrors.ErrNoCredentials)
}

func TestStrategy_LoweredTTLShortensIssuedSessions(t *testing.T) {
	issuer := setupTestFixture(t, sso.Options{TTL: 4 * time.Hour})
	jar := issuer.login(t)

	// Same cookie password, redeployed with a shorter session lifetime
	f := setupTestFixture(t, sso.Options{TTL: time.Hour})
	r := func() *http.Request {
		return withCookies(httptest.NewRequest(http.MethodGet, "/tsg/api/cloudapi/my", nil),
			jar[sso.DefaultCookieName], jar[csrf.DefaultCookieName])
	}

	_, err := f.strategy.Authenticate(httptest.NewRecorder(), r())
	require.NoError(t, err)

	f.advance(time.Hour)
	_, err = f.strategy.Authenticate(httptest.NewRecorder(), r())
	require.ErrorIs(t, err, gwerrors.ErrNoCredentials)

	issuer.advance(time.Hour)
	_, err = issuer.strategy.Authenticate(httptest.NewRecorder(), r())
	require.NoError(t, err)
}

func TestStrategy_InvalidCookieIsAnonymous(t *testing.T) {
	f := setupTestFixture(t, sso.Options{})

	testCases := []struct {
		name   string
		cookie *http.Cookie
	}{
		{"no cookie", nil},
		{"garbage", &http.Cookie{Name: sso.DefaultCookieName, Value: "garbage"}},
		{"empty", &http.Cookie{Name: sso.DefaultCookieName, Value: ""}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/tsg/api/cloudapi/my", nil)
			if tc.cookie != nil {
				r.AddCookie(tc.cookie)
			}
			_, err := f.strategy.Authenticate(httptest.NewRecorder(), r)
			require.ErrorIs(t, err, gwerrors.ErrNoCredentials)

			w := f.serve(r)
			require.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestStrategy_CSRF(t *testing.T) {
	f := setupTestFixture(t, sso.Options{})
	jar := f.login(t)
	session, crumb := jar[sso.DefaultCookieName], jar[csrf.DefaultCookieName]

	testCases := []struct {
		name     string
		method   string
		cookies  []*http.Cookie
		header   string
		expected int
	}{
		{"post with matching token", http.MethodPost, []*http.Cookie{session, crumb}, crumb.Value, http.StatusOK},
		{"delete with matching token", http.MethodDelete, []*http.Cookie{session, crumb}, crumb.Value, http.StatusOK},
		{"post without header", http.MethodPost, []*http.Cookie{session, crumb}, "", http.StatusForbidden},
		{"put without crumb cookie", http.MethodPut, []*http.Cookie{session}, crumb.Value, http.StatusForbidden},
		{"patch with mismatched header", http.MethodPatch, []*http.Cookie{session, crumb}, "forged", http.StatusForbidden},
		{"get needs no token", http.MethodGet, []*http.Cookie{session}, "", http.StatusOK},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := withCookies(httptest.NewRequest(tc.method, "/tsg/api/cloudapi/my", nil), tc.cookies...)
			if tc.header != "" {
				r.Header.Set(csrf.DefaultHeaderName, tc.header)
			}
			w := f.serve(r)
			require.Equal(t, tc.expected, w.Code)
		})
	}
}

func TestStrategy_CSRFTokenFromOtherSession(t *testing.T) {
	f := setupTestFixture(t, sso.Options{})
	first := f.login(t)
	second := f.login(t)
	require.NotEqual(t, first[csrf.DefaultCookieName].Value, second[csrf.DefaultCookieName].Value)

	// A token that matches its own cookie but belongs to another session is still rejected
	r := withCookies(httptest.NewRequest(http.MethodPost, "/tsg/api/cloudapi/my", nil),
		first[sso.DefaultCookieName], second[csrf.DefaultCookieName])
	r.Header.Set(csrf.DefaultHeaderName, second[csrf.DefaultCookieName].Value)
	require.Equal(t, http.StatusForbidden, f.serve(r).Code)
}

func TestStrategy_ReissuesLostCSRFCookie(t *testing.T) {
	f := setupTestFixture(t, sso.Options{})
	jar := f.login(t)

	w := httptest.NewRecorder()
	r := withCookies(httptest.NewRequest(http.MethodGet, "/", nil), jar[sso.DefaultCookieName])
	_, err := f.strategy.Authenticate(w, r)
	require.NoError(t, err)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, csrf.DefaultCookieName, cookies[0].Name)
	require.Equal(t, jar[csrf.DefaultCookieName].Value, cookies[0].Value)
}

func TestStrategy_ConcurrentReadsDoNotMutateSession(t *testing.T) {
	f := setupTestFixture(t, sso.Options{})
	jar := f.login(t)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := httptest.NewRecorder()
			r := withCookies(httptest.NewRequest(http.MethodGet, "/", nil), jar[sso.DefaultCookieName], jar[csrf.DefaultCookieName])
			id, err := f.strategy.Authenticate(w, r)
			if err != nil || id.Principal != "alice" {
				t.Errorf("unexpected identity %v: %v", id, err)
			}
			if len(w.Result().Cookies()) != 0 {
				t.Errorf("read must not rewrite cookies")
			}
		}()
	}
	wg.Wait()
}

func TestStrategy_KeepAlive(t *testing.T) {
	f := setupTestFixture(t, sso.Options{TTL: time.Hour, KeepAlive: true})
	jar := f.login(t)

	f.advance(50 * time.Minute)
	w := httptest.NewRecorder()
	r := withCookies(httptest.NewRequest(http.MethodGet, "/", nil), jar[sso.DefaultCookieName], jar[csrf.DefaultCookieName])
	_, err := f.strategy.Authenticate(w, r)
	require.NoError(t, err)

	var refreshed *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == sso.DefaultCookieName {
			refreshed = c
		}
	}
	require.NotNil(t, refreshed)

	// The first cookie expires on schedule; the refreshed one lives on
	f.advance(20 * time.Minute)
	_, err = f.strategy.Authenticate(httptest.NewRecorder(),
		withCookies(httptest.NewRequest(http.MethodGet, "/", nil), jar[sso.DefaultCookieName]))
	require.ErrorIs(t, err, gwerrors.ErrNoCredentials)
	_, err = f.strategy.Authenticate(httptest.NewRecorder(),
		withCookies(httptest.NewRequest(http.MethodGet, "/", nil), refreshed, jar[csrf.DefaultCookieName]))
	require.NoError(t, err)
}

func TestStrategy_Unauthorized(t *testing.T) {
	f := setupTestFixture(t, sso.Options{})

	t.Run("browser navigation is redirected", func(t *testing.T) {
		w := f.serve(httptest.NewRequest(http.MethodGet, "/tsg/api/cloudapi/my?x=1", nil))
		require.Equal(t, http.StatusFound, w.Code)
		location, err := url.Parse(w.Header().Get("Location"))
		require.NoError(t, err)
		require.Equal(t, "idp.example.com", location.Host)
		require.Equal(t, f.exchanger.gotState, location.Query().Get("state"))

		var state *http.Cookie
		for _, c := range w.Result().Cookies() {
			if c.Name == sso.DefaultStateCookieName {
				state = c
			}
		}
		require.NotNil(t, state)
		require.True(t, state.HttpOnly)
	})

	t.Run("api writes get 401", func(t *testing.T) {
		w := f.serve(httptest.NewRequest(http.MethodPost, "/tsg/api/cloudapi/my", nil))
		require.Equal(t, http.StatusUnauthorized, w.Code)
		require.JSONEq(t, `{"error":"unauthorized","error_description":"Authentication required"}`, w.Body.String())
	})
}

func TestStrategy_Complete_Failures(t *testing.T) {
	begin := func(t *testing.T, f *testFixture) []*http.Cookie {
		w := httptest.NewRecorder()
		require.NoError(t, f.strategy.Begin(w, httptest.NewRequest(http.MethodGet, "/tsg/login", nil), "/"))
		return w.Result().Cookies()
	}

	t.Run("missing state cookie", func(t *testing.T) {
		f := setupTestFixture(t, sso.Options{})
		_, err := f.strategy.Complete(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/tsg/_sso?state=x", nil))
		require.ErrorIs(t, err, gwerrors.ErrStateInvalid)
	})

	t.Run("state mismatch", func(t *testing.T) {
		f := setupTestFixture(t, sso.Options{})
		r := withCookies(httptest.NewRequest(http.MethodGet, "/tsg/_sso?state=forged", nil), begin(t, f)...)
		_, err := f.strategy.Complete(httptest.NewRecorder(), r)
		require.ErrorIs(t, err, gwerrors.ErrStateInvalid)
	})

	t.Run("expired state", func(t *testing.T) {
		f := setupTestFixture(t, sso.Options{})
		cookies := begin(t, f)
		f.advance(sso.DefaultStateTTL + time.Second)
		r := withCookies(httptest.NewRequest(http.MethodGet, "/tsg/_sso?state="+url.QueryEscape(f.exchanger.gotState), nil), cookies...)
		_, err := f.strategy.Complete(httptest.NewRecorder(), r)
		require.ErrorIs(t, err, gwerrors.ErrStateInvalid)
	})

	t.Run("exchange rejected", func(t *testing.T) {
		f := setupTestFixture(t, sso.Options{})
		f.exchanger.err = gwerrors.ErrAuthenticationFailed
		cookies := begin(t, f)
		w := httptest.NewRecorder()
		r := withCookies(httptest.NewRequest(http.MethodGet, "/tsg/_sso?state="+url.QueryEscape(f.exchanger.gotState), nil), cookies...)
		_, err := f.strategy.Complete(w, r)
		require.ErrorIs(t, err, gwerrors.ErrAuthenticationFailed)
		for _, c := range w.Result().Cookies() {
			require.NotEqual(t, sso.DefaultCookieName, c.Name)
		}
	})

	t.Run("exchange timeout", func(t *testing.T) {
		f := setupTestFixture(t, sso.Options{ExchangeTimeout: 20 * time.Millisecond})
		f.exchanger.block = true
		cookies := begin(t, f)
		r := withCookies(httptest.NewRequest(http.MethodGet, "/tsg/_sso?state="+url.QueryEscape(f.exchanger.gotState), nil), cookies...)
		_, err := f.strategy.Complete(httptest.NewRecorder(), r)
		require.ErrorIs(t, err, gwerrors.ErrUpstreamTimeout)
	})
}

func TestStrategy_Logout(t *testing.T) {
	f := setupTestFixture(t, sso.Options{})
	w := httptest.NewRecorder()
	f.strategy.Logout(w)

	cleared := map[string]int{}
	for _, c := range w.Result().Cookies() {
		cleared[c.Name] = c.MaxAge
	}
	require.Equal(t, map[string]int{sso.DefaultCookieName: -1, csrf.DefaultCookieName: -1}, cleared)
}

func TestNew_Configuration(t *testing.T) {
	guard := csrf.New(csrf.Options{})

	_, err := sso.New(nil, guard, sso.Options{Password: testPassword})
	require.ErrorIs(t, err, gwerrors.ErrConfiguration)

	_, err = sso.New(&fakeExchanger{}, guard, sso.Options{Password: "short"})
	require.ErrorIs(t, err, gwerrors.ErrConfiguration)

	s, err := sso.New(&fakeExchanger{}, guard, sso.Options{Password: testPassword})
	require.NoError(t, err)
	require.Equal(t, "sso", s.Name())
	require.Equal(t, auth.KindSSO, s.Kind())
}
