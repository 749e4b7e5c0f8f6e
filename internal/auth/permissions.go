package auth

import "sort"

// Permission is an atomic capability tag. Permissions are never granted to an
// identity directly, only derived through its role.
type Permission string

const (
	PermViewBilling       Permission = "view-billing"
	PermApproveInvoice    Permission = "approve-invoice"
	PermViewCarePlan      Permission = "view-care-plan"
	PermEditCarePlan      Permission = "edit-care-plan"
	PermViewRoster        Permission = "view-roster"
	PermManageRoster      Permission = "manage-roster"
	PermViewParticipants  Permission = "view-participants"
	PermEditParticipants  Permission = "edit-participants"
	PermManageUsers       Permission = "manage-users"
	PermManageDynamicData Permission = "manage-dynamic-data"
	PermViewReports       Permission = "view-reports"
	PermManageSystem      Permission = "manage-system"
)

// Bindings maps each role to the set of permissions it grants. A role
// without an entry resolves to the empty set: deny-by-default, never an
// error that could be mistaken for allow.
type Bindings map[Role]map[Permission]struct{}

// DefaultBindings returns the built-in role binding table for a deployment.
func DefaultBindings() Bindings {
	return Bindings{
		RoleProviderAdmin: permSet(
			PermViewBilling, PermApproveInvoice,
			PermViewCarePlan, PermEditCarePlan,
			PermViewRoster, PermManageRoster,
			PermViewParticipants, PermEditParticipants,
			PermManageUsers, PermManageDynamicData,
			PermViewReports, PermManageSystem,
		),
		RoleServiceManager: permSet(
			PermViewCarePlan, PermEditCarePlan,
			PermViewRoster, PermManageRoster,
			PermViewParticipants, PermEditParticipants,
			PermManageUsers, PermViewReports,
		),
		RoleSupportWorker: permSet(
			PermViewCarePlan, PermViewRoster, PermViewParticipants,
		),
		RoleParticipant: permSet(
			PermViewCarePlan,
		),
		RoleFinance: permSet(
			PermViewBilling, PermApproveInvoice, PermViewReports,
		),
		RoleIT: permSet(
			PermManageSystem, PermManageUsers,
		),
		RoleDataEntry: permSet(
			PermViewParticipants, PermEditParticipants, PermManageDynamicData,
		),
		RoleManager: permSet(
			PermViewRoster, PermManageRoster, PermViewParticipants, PermViewReports,
		),
		RoleCoordinator: permSet(
			PermViewCarePlan, PermEditCarePlan, PermViewRoster, PermViewParticipants,
		),
		RoleViewer: permSet(
			PermViewParticipants, PermViewRoster,
		),
	}
}

// PermissionsFor returns the sorted permissions granted to role. Unknown
// roles return an empty slice.
func (b Bindings) PermissionsFor(role Role) []Permission {
	set := b[role]
	out := make([]Permission, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Has reports whether role grants perm.
func (b Bindings) Has(role Role, perm Permission) bool {
	_, ok := b[role][perm]
	return ok
}

// Grant returns a copy of the bindings with perms added to role. The
// receiver is left untouched so an installed table stays immutable.
func (b Bindings) Grant(role Role, perms ...Permission) Bindings {
	next := b.clone()
	set := next[role]
	if set == nil {
		set = make(map[Permission]struct{}, len(perms))
		next[role] = set
	}
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return next
}

// Revoke returns a copy of the bindings with perms removed from role.
func (b Bindings) Revoke(role Role, perms ...Permission) Bindings {
	next := b.clone()
	set := next[role]
	for _, p := range perms {
		delete(set, p)
	}
	return next
}

func (b Bindings) clone() Bindings {
	next := make(Bindings, len(b))
	for role, set := range b {
		copied := make(map[Permission]struct{}, len(set))
		for p := range set {
			copied[p] = struct{}{}
		}
		next[role] = copied
	}
	return next
}

func permSet(perms ...Permission) map[Permission]struct{} {
	set := make(map[Permission]struct{}, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}
