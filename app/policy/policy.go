// Package policy decides whether a requester may perform an action on a
// resource. Decide is pure: callers resolve identity and trust first.
package policy

import (
	"fmt"

	"github.com/shashiranjanraj/cafe/app/models"
)

// Owned is implemented by every entity that can belong to a user.
type Owned interface {
	// OwnerUserID returns nil when no user is linked.
	OwnerUserID() *uint
}

type Action string

const (
	ActionList      Action = "list"
	ActionRetrieve  Action = "retrieve"
	ActionCreate    Action = "create"
	ActionUpdate    Action = "update"
	ActionDelete    Action = "delete"
	ActionSetStatus Action = "set_status"
	ActionExport    Action = "export"
)

func (a Action) IsRead() bool {
	return a == ActionList || a == ActionRetrieve
}

type Kind string

const (
	KindCategory  Kind = "category"
	KindMenuItem  Kind = "menu_item"
	KindCustomer  Kind = "customer"
	KindOrder     Kind = "order"
	KindOrderItem Kind = "order_item"
)

// Rules are the per-kind knobs of the decision.
type Rules struct {
	// ReadRequiresAuth denies anonymous list/retrieve.
	ReadRequiresAuth bool
	// SelfScoped lets regular users write their own instances.
	SelfScoped bool
}

// DefaultRules is the production table.
var DefaultRules = map[Kind]Rules{
	KindCategory:  {},
	KindMenuItem:  {},
	KindCustomer:  {ReadRequiresAuth: true, SelfScoped: true},
	KindOrder:     {ReadRequiresAuth: true, SelfScoped: true},
	KindOrderItem: {ReadRequiresAuth: true, SelfScoped: true},
}

// Requester is the resolved identity of a caller. UserID 0 is anonymous.
// Trusted is only meaningful for elevated requesters.
type Requester struct {
	UserID  uint
	Role    models.Role
	Trusted bool
}

func Anonymous() Requester { return Requester{} }

func (r Requester) Authenticated() bool { return r.UserID != 0 }
func (r Requester) Elevated() bool      { return r.Authenticated() && r.Role == models.RoleElevated }

// Resource names the target of an action. Object is nil for collection
// level actions such as list or create.
type Resource struct {
	Kind   Kind
	Object Owned
}

// Outcome is the terminal state of one authorization.
type Outcome string

const (
	AllowSelf            Outcome = "self"
	AllowElevatedTrusted Outcome = "elevated_trusted"
	AllowRead            Outcome = "read"
	Deny                 Outcome = "denied"
)

// Decision is the result of Decide.
type Decision struct {
	Outcome Outcome
	Reason  string
}

func (d Decision) Allowed() bool { return d.Outcome != Deny }

const (
	ReasonUnauthenticated = "authentication required"
	ReasonUntrusted       = "second factor verification required"
	ReasonStaffOnly       = "staff only"
	ReasonNotOwner        = "not the owner of this resource"
	ReasonNoOwner         = "resource has no owner"
)

// Decider evaluates requests against a rules table.
type Decider struct {
	rules map[Kind]Rules
}

func NewDecider(rules map[Kind]Rules) *Decider {
	return &Decider{rules: rules}
}

// Default uses DefaultRules.
var Default = NewDecider(DefaultRules)

// Decide authorizes requester to perform action on res.
func (d *Decider) Decide(req Requester, action Action, res Resource) Decision {
	rules := d.rules[res.Kind]

	if action.IsRead() {
		if rules.ReadRequiresAuth && !req.Authenticated() {
			return deny(ReasonUnauthenticated)
		}
		return Decision{Outcome: AllowRead}
	}

	if !req.Authenticated() {
		return deny(ReasonUnauthenticated)
	}

	// Exports are staff only and need no second factor.
	if action == ActionExport {
		if !req.Elevated() {
			return deny(ReasonStaffOnly)
		}
		return Decision{Outcome: AllowRead}
	}

	if req.Elevated() {
		if !req.Trusted {
			return deny(ReasonUntrusted)
		}
		return Decision{Outcome: AllowElevatedTrusted}
	}

	// Regular users below this point.
	if action == ActionSetStatus || !rules.SelfScoped {
		return deny(ReasonStaffOnly)
	}
	if res.Object == nil {
		return Decision{Outcome: AllowSelf}
	}

	owner := res.Object.OwnerUserID()
	switch {
	case owner == nil:
		return deny(ReasonNoOwner)
	case *owner != req.UserID:
		return deny(ReasonNotOwner)
	}
	return Decision{Outcome: AllowSelf}
}

// Decide runs the default decider.
func Decide(req Requester, action Action, res Resource) Decision {
	return Default.Decide(req, action, res)
}

// CanAccess reports whether a non-destructive object read by req should see
// obj; elevated users see everything, others only what they own.
func CanAccess(req Requester, obj Owned) bool {
	if req.Elevated() {
		return true
	}
	owner := obj.OwnerUserID()
	return req.Authenticated() && owner != nil && *owner == req.UserID
}

func deny(reason string) Decision {
	return Decision{Outcome: Deny, Reason: reason}
}

func (d Decision) String() string {
	if d.Reason == "" {
		return string(d.Outcome)
	}
	return fmt.Sprintf("%s: %s", d.Outcome, d.Reason)
}
