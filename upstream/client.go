// Package upstream signs and sends requests to the cloud APIs behind the gateway.
//
// Every call is signed with the operator key configured for that upstream, whatever
// mechanism authenticated the inbound request. The end user never holds a signing key.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/jrsteele09/go-cloud-gateway/auth"
	gwerrors "github.com/jrsteele09/go-cloud-gateway/internal/errors"
	"github.com/jrsteele09/go-cloud-gateway/signature"
)

const (
	// DefaultTimeout bounds every upstream call
	DefaultTimeout = 30 * time.Second
	// HeaderAuthToken carries the SSO token of the end user to cloudapi
	HeaderAuthToken = "X-Auth-Token"
)

// SigningContext is the immutable per-upstream signing configuration
type SigningContext struct {
	Name    string // e.g. "cloudapi"
	KeyID   string // e.g. "/account/keys/aa:bb:..."
	KeyPath string // Operator private key
	BaseURL string
}

// Observer receives per-call outcomes, typically for metrics
type Observer interface {
	UpstreamRequest(upstream string, code int, errClass string, d time.Duration)
}

// Options are shared by every client in a Set
type Options struct {
	Timeout   time.Duration
	Algorithm signature.Algorithm
	Transport http.RoundTripper
	Observer  Observer
}

// Client talks to one upstream
type Client struct {
	name     string
	base     *url.URL
	signer   *signature.RequestSigner
	http     *http.Client
	timeout  time.Duration
	observer Observer
}

// NewClient creates a client for one upstream from an already loaded key pair
func NewClient(name, baseURL string, keyPair *signature.KeyPair, opts Options) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, gwerrors.Configurationf("upstream %s: invalid base url %q", name, baseURL)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &Client{
		name:     name,
		base:     base,
		signer:   signature.NewRequestSigner(keyPair),
		http:     &http.Client{Transport: transport, Timeout: opts.Timeout},
		timeout:  opts.Timeout,
		observer: opts.Observer,
	}, nil
}

// Name returns the upstream name
func (c *Client) Name() string { return c.name }

// Signer returns the request signer bound to this upstream's key
func (c *Client) Signer() *signature.RequestSigner { return c.signer }

// URL resolves p (and query) against the upstream base URL. p cannot climb above the
// base path.
func (c *Client) URL(p string, query url.Values) *url.URL {
	u := *c.base
	u.Path = strings.TrimSuffix(c.base.Path, "/") + path.Clean("/"+p)
	u.RawPath = ""
	u.RawQuery = query.Encode()
	return &u
}

// NewRequest builds an unsigned request to the upstream
func (c *Client) NewRequest(ctx context.Context, method, p string, query url.Values, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.URL(p, query).String(), body)
	if err != nil {
		return nil, fmt.Errorf("[upstream %s] failed to build request: %w", c.name, err)
	}
	return req, nil
}

// Do signs req with the operator key and sends it. id, when it carries an SSO token,
// is forwarded so the upstream applies the end user's permissions. The caller must
// close the response body.
func (c *Client) Do(req *http.Request, id *auth.Identity) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(req.Context(), c.timeout)
	req = req.WithContext(ctx)

	if id != nil && id.Token != "" {
		req.Header.Set(HeaderAuthToken, id.Token)
	}
	if err := c.signer.SignRequest(req); err != nil {
		cancel()
		return nil, fmt.Errorf("[upstream %s] failed to sign request: %w", c.name, err)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		cancel()
		classified, class := c.classify(err)
		c.observe(0, class, time.Since(start))
		return nil, classified
	}
	c.observe(resp.StatusCode, "", time.Since(start))
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

func (c *Client) classify(err error) (error, string) {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %s: %v", gwerrors.ErrUpstreamTimeout, c.name, err), "timeout"
	}
	return fmt.Errorf("%w: %s: %v", gwerrors.ErrUpstreamUnavailable, c.name, err), "unavailable"
}

func (c *Client) observe(code int, class string, d time.Duration) {
	if c.observer != nil {
		c.observer.UpstreamRequest(c.name, code, class, d)
	}
}

// cancelOnClose releases the per-call timeout once the body is consumed
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}
