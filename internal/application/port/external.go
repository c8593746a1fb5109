package port

import (
	"context"

	"github.com/garyjia/benefit-approval/internal/domain/workflow"
)

// RoleProvider resolves an actor into the set of roles they hold. Consulted
// on every stage-gated call; the identity system behind it is external.
type RoleProvider interface {
	RolesOf(ctx context.Context, actorID string) ([]workflow.Role, error)
}

// HasRole reports whether roles contains the wanted role
func HasRole(roles []workflow.Role, want workflow.Role) bool {
	for _, r := range roles {
		if r == want {
			return true
		}
	}
	return false
}

// AttachmentStore validates opaque attachment URIs supplied with a request.
// The engine assumes no content semantics; storage itself is external.
type AttachmentStore interface {
	Validate(ctx context.Context, uris []string) error
}
