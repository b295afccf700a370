// Package authz is the single place that decides whether a caller may act on
// a resource.
//
// Rules are a table keyed by resource type and operation. The super_admin
// capability is checked once, before any rule runs, and only for the rows that
// grant it. Every other rule starts from the tenant boundary: a caller outside
// the resource's tenant is denied with Hide, which the service layer reports as
// not found so a foreign tenant's resources are never confirmed to exist.
// Denials inside the caller's own tenant are Deny (forbidden).
package authz

import (
	"github.com/suteetoe/taskhub/internal/apperr"
	"github.com/suteetoe/taskhub/internal/model"
)

// Caller is the identity carried by a verified session token
type Caller struct {
	UserID   string
	TenantID *string
	Role     model.Role
}

// IsSuperAdmin reports whether the caller holds the tenant-independent capability
func (c Caller) IsSuperAdmin() bool {
	return c.Role == model.RoleSuperAdmin
}

// InTenant reports whether the caller belongs to tenantID
func (c Caller) InTenant(tenantID string) bool {
	return c.TenantID != nil && tenantID != "" && *c.TenantID == tenantID
}

// ResourceType names the kind of entity being acted on
type ResourceType string

const (
	TenantResource  ResourceType = "tenant"
	UserResource    ResourceType = "user"
	ProjectResource ResourceType = "project"
	TaskResource    ResourceType = "task"
)

// Operation is what the caller wants to do
type Operation string

const (
	Read   Operation = "read"
	List   Operation = "list"
	Create Operation = "create"
	Update Operation = "update"
	Delete Operation = "delete"
)

// Updatable field names, as they appear in request bodies
const (
	FieldName             = "name"
	FieldStatus           = "status"
	FieldSubscriptionPlan = "subscriptionPlan"
	FieldMaxUsers         = "maxUsers"
	FieldMaxProjects      = "maxProjects"
	FieldFullName         = "fullName"
	FieldRole             = "role"
	FieldIsActive         = "isActive"
)

// Resource describes the target of an operation.
//
// For create and list operations TenantID is the tenant the new or listed
// entities belong to. For a tenant, ID and TenantID are the same.
type Resource struct {
	Type     ResourceType
	ID       string
	TenantID string
	OwnerID  string
	Fields   []string
}

// Effect is the outcome of a rule
type Effect int

const (
	Allow Effect = iota
	Deny
	Hide
)

// Decision is an effect plus the reason shown to the caller on Deny
type Decision struct {
	Effect Effect
	Reason string
}

// Allowed reports whether the decision permits the operation
func (d Decision) Allowed() bool { return d.Effect == Allow }

// Denial reasons
const (
	ReasonInsufficient       = "Insufficient permissions"
	ReasonTenantNameOnly     = "Tenant admin can only update name"
	ReasonSelfFullNameOnly   = "You can only update your full name"
	ReasonAdminUserFields    = "Tenant admin can only update fullName, role and isActive"
	ReasonDeleteSelf         = "Cannot delete yourself"
	ReasonSuperAdminProjects = "Super Admin cannot create projects directly"
	ReasonNotProjectOwner    = "Only the project creator or a tenant admin can modify this project"
	ReasonSuperAdminOnly     = "Only super admins can list tenants"
)

type rule struct {
	// superAdmin grants the row to the super_admin capability outright
	superAdmin bool
	check      func(c Caller, r Resource) Decision
}

type key struct {
	rt ResourceType
	op Operation
}

var (
	allow = Decision{Effect: Allow}
	hide  = Decision{Effect: Hide}
)

func deny(reason string) Decision { return Decision{Effect: Deny, Reason: reason} }

// sameTenant is the base predicate of most rows
func sameTenant(c Caller, r Resource) Decision {
	if c.InTenant(r.TenantID) {
		return allow
	}
	return hide
}

var table = map[key]rule{
	{TenantResource, Read}: {superAdmin: true, check: sameTenant},
	{TenantResource, Update}: {superAdmin: true, check: func(c Caller, r Resource) Decision {
		if !c.InTenant(r.TenantID) {
			return hide
		}
		if c.Role != model.RoleTenantAdmin {
			return deny(ReasonInsufficient)
		}
		if !subset(r.Fields, FieldName) {
			return deny(ReasonTenantNameOnly)
		}
		return allow
	}},
	{TenantResource, List}: {superAdmin: true, check: func(Caller, Resource) Decision {
		return deny(ReasonSuperAdminOnly)
	}},

	{UserResource, List}: {superAdmin: true, check: sameTenant},
	{UserResource, Create}: {check: func(c Caller, r Resource) Decision {
		if !c.InTenant(r.TenantID) {
			return hide
		}
		if c.Role != model.RoleTenantAdmin {
			return deny(ReasonInsufficient)
		}
		return allow
	}},
	{UserResource, Update}: {check: func(c Caller, r Resource) Decision {
		self := c.UserID != "" && c.UserID == r.ID
		if self && subset(r.Fields, FieldFullName) {
			return allow
		}
		admin := c.Role == model.RoleTenantAdmin && c.InTenant(r.TenantID)
		if admin {
			if subset(r.Fields, FieldFullName, FieldRole, FieldIsActive) {
				return allow
			}
			return deny(ReasonAdminUserFields)
		}
		if self {
			return deny(ReasonSelfFullNameOnly)
		}
		if !c.InTenant(r.TenantID) {
			return hide
		}
		return deny(ReasonInsufficient)
	}},
	{UserResource, Delete}: {check: func(c Caller, r Resource) Decision {
		if !c.InTenant(r.TenantID) {
			return hide
		}
		if c.Role != model.RoleTenantAdmin {
			return deny(ReasonInsufficient)
		}
		if c.UserID == r.ID {
			return deny(ReasonDeleteSelf)
		}
		return allow
	}},

	{ProjectResource, Create}: {check: func(c Caller, r Resource) Decision {
		if c.TenantID == nil {
			return deny(ReasonSuperAdminProjects)
		}
		return sameTenant(c, r)
	}},
	{ProjectResource, Read}:   {superAdmin: true, check: sameTenant},
	{ProjectResource, List}:   {superAdmin: true, check: sameTenant},
	{ProjectResource, Update}: {superAdmin: true, check: projectWrite},
	{ProjectResource, Delete}: {superAdmin: true, check: projectWrite},

	{TaskResource, Create}: {superAdmin: true, check: sameTenant},
	{TaskResource, Read}:   {superAdmin: true, check: sameTenant},
	{TaskResource, List}:   {superAdmin: true, check: sameTenant},
	{TaskResource, Update}: {superAdmin: true, check: sameTenant},
	{TaskResource, Delete}: {superAdmin: true, check: sameTenant},
}

func projectWrite(c Caller, r Resource) Decision {
	if !c.InTenant(r.TenantID) {
		return hide
	}
	if c.Role == model.RoleTenantAdmin || (r.OwnerID != "" && c.UserID == r.OwnerID) {
		return allow
	}
	return deny(ReasonNotProjectOwner)
}

// CanAct evaluates the decision table for op on r.
// Unknown combinations are denied.
func CanAct(c Caller, r Resource, op Operation) Decision {
	rl, ok := table[key{r.Type, op}]
	if !ok {
		return deny(ReasonInsufficient)
	}
	if rl.superAdmin && c.IsSuperAdmin() {
		return allow
	}
	d := rl.check(c, r)
	// A super admin can already see every tenant, so hiding is pointless.
	if d.Effect == Hide && c.IsSuperAdmin() {
		return deny(ReasonInsufficient)
	}
	return d
}

// Authorize runs CanAct and converts a denial into the error the caller sees
func Authorize(c Caller, r Resource, op Operation) error {
	d := CanAct(c, r, op)
	switch d.Effect {
	case Allow:
		return nil
	case Hide:
		return apperr.NotFound(notFoundMessage(r, op))
	}
	return apperr.Forbidden(d.Reason)
}

// notFoundMessage names the entity whose existence is being hidden. For create
// and list operations that is the parent the caller addressed.
func notFoundMessage(r Resource, op Operation) string {
	parentScoped := op == Create || op == List
	switch r.Type {
	case TenantResource:
		return "Tenant not found"
	case UserResource:
		if parentScoped {
			return "Tenant not found"
		}
		return "User not found"
	case ProjectResource:
		return "Project not found"
	case TaskResource:
		if parentScoped {
			return "Project not found"
		}
		return "Task not found"
	}
	return "Not found"
}

func subset(fields []string, allowed ...string) bool {
	for _, f := range fields {
		found := false
		for _, a := range allowed {
			if f == a {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
