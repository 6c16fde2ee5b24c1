package tenants

import (
	gwerrors "github.com/jrsteele09/go-cloud-gateway/internal/errors"
)

// Repo looks up tenants by the key id presented in a signature
type Repo interface {
	Find(keyID string) (*Tenant, bool)
	List() []*Tenant
}

var _ Repo = (*Store)(nil)

// Store is the operator configured allow-list. It is built once at startup and never
// modified afterwards, so it needs no locking.
type Store struct {
	tenants []*Tenant
}

// NewStore creates a store from the configured tenants
func NewStore(tenants ...*Tenant) (*Store, error) {
	if len(tenants) == 0 {
		return nil, gwerrors.Configurationf("at least one tenant is required")
	}
	seen := make(map[string]struct{}, len(tenants))
	for _, t := range tenants {
		if t == nil || t.Identity == "" {
			return nil, gwerrors.Configurationf("tenant identity is required")
		}
		if _, dup := seen[t.KeyID]; dup {
			return nil, gwerrors.Configurationf("duplicate tenant key id %s", t.KeyID)
		}
		seen[t.KeyID] = struct{}{}
	}
	return &Store{tenants: append([]*Tenant(nil), tenants...)}, nil
}

// Find scans every tenant. The scan does not stop early so a hit and a miss cost the same.
func (s *Store) Find(keyID string) (*Tenant, bool) {
	var found *Tenant
	for _, t := range s.tenants {
		if t.Matches(keyID) && found == nil {
			found = t
		}
	}
	return found, found != nil
}

// List returns the configured tenants
func (s *Store) List() []*Tenant {
	return append([]*Tenant(nil), s.tenants...)
}
