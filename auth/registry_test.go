package auth_test

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/jrsteele09/go-cloud-gateway/auth"
	gwerrors "github.com/jrsteele09/go-cloud-gateway/internal/errors"
	"github.com/stretchr/testify/require"
)

type fakeStrategy struct {
	name  string
	kind  auth.Kind
	id    *auth.Identity
	err   error
	calls atomic.Int32
}

func (f *fakeStrategy) Name() string { return f.name }
func (f *fakeStrategy) Kind() auth.Kind { return f.kind }

func (f *fakeStrategy) Authenticate(http.ResponseWriter, *http.Request) (*auth.Identity, error) {
	f.calls.Add(1)
	return f.id, f.err
}

func (f *fakeStrategy) Unauthorized(w http.ResponseWriter, _ *http.Request) {
	auth.WriteUnauthorized(w)
}

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []string
}

func (o *recordingObserver) AuthAttempt(strategy, outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, strategy+":"+outcome)
}

func principalHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		_, _ = w.Write([]byte("anonymous"))
		return
	}
	_, _ = w.Write([]byte(id.Principal + "/" + string(id.Mechanism)))
}

func serveBinding(t *testing.T, reg *auth.Registry, b auth.Binding, method string) *httptest.ResponseRecorder {
	t.Helper()
	mw, err := reg.Middleware(b)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	mw(principalHandler)(rec, httptest.NewRequest(method, "/tsg/thing", nil))
	return rec
}

func TestRegistry_Bindings(t *testing.T) {
	sso := &fakeStrategy{name: "sso", kind: auth.KindSSO, id: &auth.Identity{Principal: "alice", Mechanism: auth.MechanismSSO}}
	bearer := &fakeStrategy{name: "bearer", kind: auth.KindBearer, id: &auth.Identity{Principal: "bot", Mechanism: auth.MechanismBearer}}
	obs := &recordingObserver{}
	reg, err := auth.NewRegistry(sso, bearer)
	require.NoError(t, err)
	reg.WithObserver(obs)
	require.Same(t, sso, reg.DefaultStrategy())

	t.Run("default binding consults only the default", func(t *testing.T) {
		rec := serveBinding(t, reg, auth.Default(), http.MethodGet)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "alice/sso", rec.Body.String())
		require.EqualValues(t, 1, sso.calls.Load())
		require.EqualValues(t, 0, bearer.calls.Load())
	})

	t.Run("named binding consults only the alternate", func(t *testing.T) {
		rec := serveBinding(t, reg, auth.Named("bearer"), http.MethodGet)
		require.Equal(t, "bot/bearer", rec.Body.String())
		require.EqualValues(t, 1, sso.calls.Load())
		require.EqualValues(t, 1, bearer.calls.Load())
	})

	t.Run("disabled binding consults nothing", func(t *testing.T) {
		rec := serveBinding(t, reg, auth.Disabled(), http.MethodGet)
		require.Equal(t, "anonymous", rec.Body.String())
		require.EqualValues(t, 1, sso.calls.Load())
		require.EqualValues(t, 1, bearer.calls.Load())
	})

	require.Equal(t, []string{"sso:success", "bearer:success"}, obs.outcomes)
}

func TestRegistry_Failures(t *testing.T) {
	testCases := []struct {
		name    string
		err     error
		status  int
		outcome string
	}{
		{"no credentials", gwerrors.ErrNoCredentials, http.StatusUnauthorized, auth.OutcomeNoCredentials},
		{"rejected", gwerrors.Wrapf(gwerrors.ErrAuthenticationFailed, "bad"), http.StatusUnauthorized, auth.OutcomeRejected},
		{"csrf", gwerrors.Wrapf(gwerrors.ErrCSRF, "mismatch"), http.StatusForbidden, auth.OutcomeCSRF},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := &fakeStrategy{name: "sso", kind: auth.KindSSO, err: tc.err}
			obs := &recordingObserver{}
			reg, err := auth.NewRegistry(s)
			require.NoError(t, err)
			reg.WithObserver(obs)

			rec := serveBinding(t, reg, auth.Default(), http.MethodPost)
			require.Equal(t, tc.status, rec.Code)
			require.NotContains(t, rec.Body.String(), "anonymous")
			require.Equal(t, []string{"sso:" + tc.outcome}, obs.outcomes)
		})
	}
}

func TestRegistry_Configuration(t *testing.T) {
	a := &fakeStrategy{name: "sso"}

	_, err := auth.NewRegistry(nil)
	require.ErrorIs(t, err, gwerrors.ErrConfiguration)

	_, err = auth.NewRegistry(a, &fakeStrategy{name: "sso"})
	require.ErrorIs(t, err, gwerrors.ErrDuplicateStrategy)

	reg, err := auth.NewRegistry(a)
	require.NoError(t, err)
	_, err = reg.Middleware(auth.Named("nope"))
	require.ErrorIs(t, err, gwerrors.ErrUnknownStrategy)

	require.Equal(t, "auth:default", auth.Default().String())
	require.Equal(t, "auth:bearer", auth.Named("bearer").String())
	require.Equal(t, "auth:disabled", auth.Disabled().String())
}

func TestIdentity_StringRedactsToken(t *testing.T) {
	id := &auth.Identity{Principal: "alice", Mechanism: auth.MechanismSSO, Token: "secret-token"}
	require.NotContains(t, id.String(), "secret-token")
	require.Contains(t, id.String(), "alice")

	var nilID *auth.Identity
	require.Equal(t, "<nil>", nilID.String())
}
