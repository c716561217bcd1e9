package tool

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// Authorizer decides whether an identity may execute a tool. Gates are
// cumulative and evaluated in a fixed order; the first failing gate
// produces the deny reason.
type Authorizer struct{}

// NewAuthorizer creates an Authorizer.
func NewAuthorizer() *Authorizer {
	return &Authorizer{}
}

// Authorize checks the identity against the tool's permission policy.
// Returns (true, "") on allow, (false, reason) on deny. The reason is
// human readable and safe to surface to the caller.
//
// Gate order: public short-circuits to allow; system level requires
// the "system" role; admin level requires the "admin" role; then the
// role set (any-of) and the scope set (any-of) must each be satisfied
// when non-empty.
func (a *Authorizer) Authorize(def *Definition, identity Identity) (bool, string) {
	perm := def.Permissions

	if perm.Level == LevelPublic {
		return true, ""
	}

	if perm.Level == LevelSystem && !identity.HasRole("system") {
		return a.deny(def, identity, "System-level access required")
	}

	if perm.Level == LevelAdmin && !identity.HasRole("admin") {
		return a.deny(def, identity, "Admin access required")
	}

	if len(perm.Roles) > 0 && !identity.HasAnyRole(perm.Roles) {
		return a.deny(def, identity, fmt.Sprintf("Required roles: %s", strings.Join(perm.Roles, ", ")))
	}

	if len(perm.Scopes) > 0 && !identity.HasAnyScope(perm.Scopes) {
		return a.deny(def, identity, fmt.Sprintf("Required scopes: %s", strings.Join(perm.Scopes, ", ")))
	}

	return true, ""
}

func (a *Authorizer) deny(def *Definition, identity Identity, reason string) (bool, string) {
	log.Warn().
		Str("tool", def.QualifiedName()).
		Str("user_id", identity.ID).
		Str("reason", reason).
		Msg("Authorization denied")
	return false, reason
}

// CheckRateLimit is a hook for per-identity throttling. The current
// policy always allows; the signature is stable so a real limiter can
// slot in without touching the pipeline.
func (a *Authorizer) CheckRateLimit(identity Identity, toolName string) bool {
	return true
}
