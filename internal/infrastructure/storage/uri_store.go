package storage

import (
	"context"
	"fmt"
	"net/url"

	"github.com/garyjia/benefit-approval/internal/application/port"
)

// URIStore validates attachment references without assuming any content
// semantics. The actual blob store is an external collaborator; the engine
// only records opaque URIs.
type URIStore struct {
	allowedSchemes map[string]bool
}

// NewURIStore creates an attachment store accepting the given URI schemes.
// With no schemes, any parseable absolute URI is accepted.
func NewURIStore(schemes ...string) *URIStore {
	allowed := make(map[string]bool, len(schemes))
	for _, s := range schemes {
		allowed[s] = true
	}
	return &URIStore{allowedSchemes: allowed}
}

// Validate checks each URI is absolute and, when schemes are configured,
// uses an allowed scheme
func (s *URIStore) Validate(ctx context.Context, uris []string) error {
	for _, raw := range uris {
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("attachment %q: %w", raw, err)
		}
		if u.Scheme == "" {
			return fmt.Errorf("attachment %q: missing scheme", raw)
		}
		if len(s.allowedSchemes) > 0 && !s.allowedSchemes[u.Scheme] {
			return fmt.Errorf("attachment %q: scheme %s not allowed", raw, u.Scheme)
		}
	}
	return nil
}

// Verify interface compliance
var _ port.AttachmentStore = (*URIStore)(nil)
