package auth

import (
	"fmt"
	"strings"
)

// Role classifies an identity and determines the permission set it derives.
// The set of roles is closed per deployment; every identity carries exactly
// one role at a time.
type Role string

const (
	RoleProviderAdmin  Role = "provider-admin"
	RoleServiceManager Role = "service-manager"
	RoleSupportWorker  Role = "support-worker"
	RoleParticipant    Role = "participant"
	RoleFinance        Role = "finance"
	RoleIT             Role = "it"
	RoleDataEntry      Role = "data-entry"
	RoleManager        Role = "manager"
	RoleCoordinator    Role = "coordinator"
	RoleViewer         Role = "viewer"
)

var knownRoles = map[Role]struct{}{
	RoleProviderAdmin:  {},
	RoleServiceManager: {},
	RoleSupportWorker:  {},
	RoleParticipant:    {},
	RoleFinance:        {},
	RoleIT:             {},
	RoleDataEntry:      {},
	RoleManager:        {},
	RoleCoordinator:    {},
	RoleViewer:         {},
}

// ParseRole normalizes and validates a role value. Unknown values are
// rejected here, at the boundary, so business logic never sees them.
func ParseRole(s string) (Role, error) {
	role := Role(strings.TrimSpace(strings.ToLower(s)))
	if _, ok := knownRoles[role]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
	return role, nil
}

// Roles lists every role known to this deployment.
func Roles() []Role {
	return []Role{
		RoleProviderAdmin,
		RoleServiceManager,
		RoleSupportWorker,
		RoleParticipant,
		RoleFinance,
		RoleIT,
		RoleDataEntry,
		RoleManager,
		RoleCoordinator,
		RoleViewer,
	}
}

func (r Role) String() string { return string(r) }

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) { return []byte(r), nil }

// UnmarshalText implements encoding.TextUnmarshaler. JSON decoding of a role
// field fails on values outside the closed set.
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
