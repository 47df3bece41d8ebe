package authorize

import (
	"strings"

	"github.com/google/uuid"
)

type Action string
type Resource string
type Role string
type Domain string
type PolicyEffect string

// ----------------------------
// Actions
// ----------------------------

const (
	ActionRead    Action = "read"
	ActionCreate  Action = "create"
	ActionExecute Action = "execute" // run a batch operation

	WildcardAction Action = "*"
)

var KnownActions = map[Action]struct{}{
	ActionRead: {}, ActionCreate: {}, ActionExecute: {},
}

// ----------------------------
// Resources
// ----------------------------

const (
	WildcardResource Resource = "*"

	// ResourceSessionBatch is recurring session generation (preview and commit).
	ResourceSessionBatch Resource = "session_batch"
	ResourceSession      Resource = "session"
)

var KnownResources = map[Resource]struct{}{
	ResourceSessionBatch: {}, ResourceSession: {},
}

// ----------------------------
// Roles
// ----------------------------
//
// Policy subjects. Tenant membership lives in the database; the member's
// role column is mapped onto one of these.

const (
	RoleTenantOwner Role = "role:tenant:owner"
	RoleTenantAdmin Role = "role:tenant:admin"
	RoleTenantTutor Role = "role:tenant:tutor"
	RoleTenantStaff Role = "role:tenant:staff"
)

var KnownRoles = map[Role]struct{}{
	RoleTenantOwner: {}, RoleTenantAdmin: {}, RoleTenantTutor: {}, RoleTenantStaff: {},
}

// Member role strings stored in tenant_members.role.
const (
	MemberRoleOwner = "OWNER"
	MemberRoleAdmin = "ADMIN"
	MemberRoleTutor = "TUTOR"
	MemberRoleStaff = "STAFF"
)

var MemberRoleToRBACRole = map[string]Role{
	MemberRoleOwner: RoleTenantOwner,
	MemberRoleAdmin: RoleTenantAdmin,
	MemberRoleTutor: RoleTenantTutor,
	MemberRoleStaff: RoleTenantStaff,
}

// RoleForMember maps a stored member role, case-insensitively.
func RoleForMember(memberRole string) (Role, bool) {
	r, ok := MemberRoleToRBACRole[strings.ToUpper(strings.TrimSpace(memberRole))]
	return r, ok
}

// ----------------------------
// Domains
// ----------------------------

const (
	DomainPrefixTenant Domain = "tenant:"
	WildcardDomain     Domain = "*"
)

func TenantDomain(tenantID uuid.UUID) Domain {
	return DomainPrefixTenant + Domain(tenantID.String())
}

func IsValidDomain(d Domain) bool {
	if d == WildcardDomain {
		return true
	}
	id, ok := strings.CutPrefix(string(d), string(DomainPrefixTenant))
	if !ok {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

// ----------------------------
// Effects
// ----------------------------

const (
	EffectAllow PolicyEffect = "allow"
	EffectDeny  PolicyEffect = "deny"
)

// PermissionPolicy is one p line: role, domain, object, action, effect.
type PermissionPolicy struct {
	Subject Role
	Domain  Domain
	Object  Resource
	Action  Action
	Effect  PolicyEffect
}
