package auth

// Decision is the outcome of evaluating a policy for one request.
type Decision struct {
	Allowed bool
	Reason  Reason
	Message string
}

// Allow is the passing decision.
var Allow = Decision{Allowed: true}

func deny(reason Reason, msg string) Decision {
	return Decision{Reason: reason, Message: msg}
}

// Err converts a failing decision into an *Error; it returns nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &Error{Reason: d.Reason, Message: d.Message}
}

// Check is a single authorization predicate. Checks only read their inputs.
type Check func(p *Principal, t Target) Decision

// RequireAuthenticated passes when a principal has been resolved.
func RequireAuthenticated(p *Principal, _ Target) Decision {
	if p == nil {
		return deny(ReasonUnauthenticated, "authentication required")
	}
	return Allow
}

// RequireRole passes when the principal holds role.
func RequireRole(role Role) Check {
	return func(p *Principal, _ Target) Decision {
		if p == nil {
			return deny(ReasonUnauthenticated, "authentication required")
		}
		if p.Role != role {
			if role == RoleAdmin {
				return deny(ReasonForbidden, MsgAdminRequired)
			}
			return deny(ReasonForbidden, MsgForbidden)
		}
		return Allow
	}
}

// RequireSameTenant passes only when the principal belongs to the target
// tenant. Role does not matter: admins are isolated like everyone else.
func RequireSameTenant(p *Principal, t Target) Decision {
	if p == nil {
		return deny(ReasonUnauthenticated, "authentication required")
	}
	if t.TenantID == "" || p.TenantID != t.TenantID {
		return deny(ReasonForbidden, MsgForbidden)
	}
	return Allow
}

// RequireSelfOrAdmin passes when the principal is the target user or an admin.
func RequireSelfOrAdmin(p *Principal, t Target) Decision {
	if p == nil {
		return deny(ReasonUnauthenticated, "authentication required")
	}
	if p.Role == RoleAdmin {
		return Allow
	}
	if t.UserID == "" || p.ID != t.UserID {
		return deny(ReasonForbidden, "cannot act on other users")
	}
	return Allow
}

// ForbidSelfDeletion rejects an operation whose target is the principal itself.
func ForbidSelfDeletion(p *Principal, t Target) Decision {
	if p == nil {
		return deny(ReasonUnauthenticated, "authentication required")
	}
	if p.ID == t.UserID {
		return deny(ReasonInvalidOperation, MsgSelfDeletion)
	}
	return Allow
}

// Policy is a conjunction of checks evaluated in order.
type Policy []Check

// NewPolicy builds a Policy from checks.
func NewPolicy(checks ...Check) Policy {
	return Policy(checks)
}

// Evaluate returns the first failing decision, or Allow.
func (p Policy) Evaluate(principal *Principal, target Target) Decision {
	for _, check := range p {
		if d := check(principal, target); !d.Allowed {
			return d
		}
	}
	return Allow
}

// Authorize is Evaluate returning an error for the first failing check.
func (p Policy) Authorize(principal *Principal, target Target) error {
	return p.Evaluate(principal, target).Err()
}
