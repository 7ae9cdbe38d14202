package command

import "personagrid/pkg/model"

// Scope names the persona set a caller may act on. The admin flow sees only
// global personas; an organization sees its own plus the global ones.
type Scope struct {
	OrganizationID string
	GlobalOnly     bool
}

// ScopePolicy picks what a confirm does with an out-of-scope persona id.
// The admin flow aborts the whole confirm; the organization flow silently
// skips the entry. The asymmetry is inherited behavior, kept deliberately.
type ScopePolicy int

const (
	ScopeAbortAll ScopePolicy = iota
	ScopeSkipInvalid
)

// InScope reports whether the persona is visible under the scope.
func InScope(p model.Persona, sc Scope) bool {
	if p.Global() {
		return true
	}
	if sc.GlobalOnly {
		return false
	}
	return p.OrganizationID == sc.OrganizationID
}
