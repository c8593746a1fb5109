package identity

import (
	"context"

	"github.com/garyjia/benefit-approval/internal/application/port"
	"github.com/garyjia/benefit-approval/internal/domain/workflow"
)

// StaticRoleProvider resolves actor roles from a fixed grant table loaded at
// startup. It stands in for the external identity system; the engine only
// sees the port.RoleProvider interface.
type StaticRoleProvider struct {
	grants map[string][]workflow.Role
}

// NewStaticRoleProvider creates a role provider from actor -> role names
func NewStaticRoleProvider(grants map[string][]string) *StaticRoleProvider {
	resolved := make(map[string][]workflow.Role, len(grants))
	for actorID, names := range grants {
		roles := make([]workflow.Role, 0, len(names))
		for _, name := range names {
			roles = append(roles, workflow.Role(name))
		}
		resolved[actorID] = roles
	}
	return &StaticRoleProvider{grants: resolved}
}

// RolesOf returns the roles granted to actorID. Unknown actors hold no roles.
func (p *StaticRoleProvider) RolesOf(ctx context.Context, actorID string) ([]workflow.Role, error) {
	roles := p.grants[actorID]
	out := make([]workflow.Role, len(roles))
	copy(out, roles)
	return out, nil
}

// Verify interface compliance
var _ port.RoleProvider = (*StaticRoleProvider)(nil)
