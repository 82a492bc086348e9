// Package authz decides who may perform which operation on events, RSVPs and users.
//
// Decide is pure: callers load any resource state the rule needs (an event's owner,
// a user's role) and pass it in. Role checks always run before ownership checks, so
// an actor whose role is disqualified never learns anything about the resource.
package authz

import (
	"github.com/google/uuid"

	"github.com/aura-events/backend/internal/models"
)

// Kind names a resource type.
type Kind string

const (
	KindEvent Kind = "event"
	KindRSVP  Kind = "rsvp"
	KindUser  Kind = "user"
)

// Action names an operation on a resource.
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionList   Action = "list"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Actor is the authenticated identity making a request. A nil *Actor is anonymous.
type Actor struct {
	ID   uuid.UUID
	Role models.Role
}

// Resource carries the loaded state a rule may need.
type Resource struct {
	Kind Kind
	// OwnerID is the owning identity of an event.
	OwnerID uuid.UUID
	// Role is the role of a target user.
	Role models.Role
}

// Event returns the resource view of e.
func Event(e *models.Event) Resource {
	return Resource{Kind: KindEvent, OwnerID: e.OwnerID}
}

// User returns the resource view of u.
func User(u *models.User) Resource {
	return Resource{Kind: KindUser, Role: u.Role}
}

// Reason explains a decision.
type Reason string

const (
	ReasonAllowed         Reason = "allowed"
	ReasonUnauthenticated Reason = "unauthenticated"
	ReasonRole            Reason = "role"
	ReasonNotOwner        Reason = "not_owner"
	ReasonProtectedAdmin  Reason = "protected_admin"
	ReasonUnknown         Reason = "unknown_operation"
)

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	Reason  Reason
	Kind    Kind
	Action  Action
}

// Message is the short client-facing text for a denial.
func (d Decision) Message() string {
	switch d.Reason {
	case ReasonAllowed:
		return ""
	case ReasonUnauthenticated:
		return "Unauthorized"
	case ReasonNotOwner:
		return "Forbidden: Not your event"
	case ReasonProtectedAdmin:
		if d.Action == ActionDelete {
			return "Cannot delete ADMIN user"
		}
		return "Cannot modify ADMIN user"
	default:
		return "Forbidden"
	}
}

// Unauthenticated reports whether the denial is due to a missing identity.
func (d Decision) Unauthenticated() bool {
	return d.Reason == ReasonUnauthenticated
}

type rule struct {
	anonymous bool
	// roles allowed; nil means any authenticated identity.
	roles []models.Role
}

var rules = map[Kind]map[Action]rule{
	KindEvent: {
		ActionCreate: {roles: []models.Role{models.RoleAdmin, models.RoleEventOwner}},
		ActionRead:   {anonymous: true},
		ActionList:   {anonymous: true},
		ActionUpdate: {roles: []models.Role{models.RoleAdmin, models.RoleStaff, models.RoleEventOwner}},
		ActionDelete: {roles: []models.Role{models.RoleAdmin, models.RoleEventOwner}},
	},
	KindRSVP: {
		ActionCreate: {anonymous: true},
		ActionList:   {},
		ActionRead:   {},
		ActionDelete: {},
	},
	KindUser: {
		ActionCreate: {roles: []models.Role{models.RoleAdmin}},
		ActionRead:   {roles: []models.Role{models.RoleAdmin}},
		ActionList:   {roles: []models.Role{models.RoleAdmin}},
		ActionUpdate: {roles: []models.Role{models.RoleAdmin}},
		ActionDelete: {roles: []models.Role{models.RoleAdmin}},
	},
}

// Precheck evaluates only the role column of the rule table. Handlers call it before
// loading a resource; a passing precheck is not an authorization.
func Precheck(actor *Actor, kind Kind, action Action) Decision {
	r, ok := rules[kind][action]
	if !ok {
		return deny(kind, action, ReasonUnknown)
	}
	if r.anonymous {
		return allow(kind, action)
	}
	if actor == nil || !actor.Role.Valid() {
		return deny(kind, action, ReasonUnauthenticated)
	}
	if r.roles != nil && !hasRole(r.roles, actor.Role) {
		return deny(kind, action, ReasonRole)
	}
	return allow(kind, action)
}

// Decide returns the authorization decision for actor performing action on res.
func Decide(actor *Actor, action Action, res Resource) Decision {
	d := Precheck(actor, res.Kind, action)
	if !d.Allowed {
		return d
	}
	switch {
	case res.Kind == KindEvent && (action == ActionUpdate || action == ActionDelete):
		if actor.Role == models.RoleEventOwner && res.OwnerID != actor.ID {
			return deny(res.Kind, action, ReasonNotOwner)
		}
	case res.Kind == KindUser && (action == ActionUpdate || action == ActionDelete):
		// Updates may only assign STAFF or EVENT_OWNER, so an update of an ADMIN
		// is a demotion that would open the way to deleting it.
		if res.Role == models.RoleAdmin {
			return deny(res.Kind, action, ReasonProtectedAdmin)
		}
	}
	return d
}

func hasRole(roles []models.Role, role models.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func allow(kind Kind, action Action) Decision {
	return Decision{Allowed: true, Reason: ReasonAllowed, Kind: kind, Action: action}
}

func deny(kind Kind, action Action, reason Reason) Decision {
	return Decision{Allowed: false, Reason: reason, Kind: kind, Action: action}
}
