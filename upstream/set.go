package upstream

import (
	"sort"

	gwerrors "github.com/jrsteele09/go-cloud-gateway/internal/errors"
	"github.com/jrsteele09/go-cloud-gateway/signature"
)

// Set holds one client per configured upstream
type Set struct {
	clients map[string]*Client
}

// NewSet loads each distinct key file once and builds a client per signing context
func NewSet(contexts []SigningContext, opts Options) (*Set, error) {
	if opts.Algorithm == "" {
		opts.Algorithm = signature.SHA256
	}
	loaded := make(map[string]*signature.KeyPair)
	s := &Set{clients: make(map[string]*Client, len(contexts))}

	for _, sc := range contexts {
		if _, dup := s.clients[sc.Name]; dup {
			return nil, gwerrors.Configurationf("duplicate upstream %s", sc.Name)
		}
		kp, ok := loaded[sc.KeyPath]
		if !ok {
			var err error
			kp, err = signature.LoadKeyPair(sc.KeyID, sc.KeyPath, opts.Algorithm)
			if err != nil {
				return nil, err
			}
			loaded[sc.KeyPath] = kp
		}
		if kp.KeyID != sc.KeyID {
			var err error
			if kp, err = signature.NewKeyPair(sc.KeyID, kp.PrivateKey, opts.Algorithm); err != nil {
				return nil, err
			}
		}
		c, err := NewClient(sc.Name, sc.BaseURL, kp, opts)
		if err != nil {
			return nil, err
		}
		s.clients[sc.Name] = c
	}
	return s, nil
}

// Get returns the named upstream
func (s *Set) Get(name string) (*Client, bool) {
	c, ok := s.clients[name]
	return c, ok
}

// Names lists the configured upstreams
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.clients))
	for name := range s.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
