package rbac

import (
	"context"
	"fmt"
	"strings"

	"github.com/austral-labs/austral/internal/shared"
)

// Decider is the authorization decision function consumed by gates.
type Decider interface {
	HasPermission(ctx context.Context, p *shared.Principal, code string) bool
}

type gateMode int

const (
	gateAll gateMode = iota
	gateAny
)

// Gate is a reusable predicate deciding whether a principal may proceed.
// Gates hold no state beyond the code list and the decider reference, so
// they are constructible and evaluable without an HTTP layer.
type Gate struct {
	decider Decider
	codes   []string
	mode    gateMode
	label   string
	message string
}

// RequirePermission builds a gate that grants iff the principal holds code.
func RequirePermission(d Decider, code string) Gate {
	return Gate{
		decider: d,
		codes:   []string{code},
		mode:    gateAll,
		label:   fmt.Sprintf("RequirePermission(%q)", code),
		message: fmt.Sprintf("Permiso denegado. Se requiere: %q.", code),
	}
}

// RequireAnyPermission builds a gate that grants iff the principal holds at
// least one of the codes.
func RequireAnyPermission(d Decider, codes ...string) Gate {
	return Gate{
		decider: d,
		codes:   append([]string(nil), codes...),
		mode:    gateAny,
		label:   fmt.Sprintf("RequireAnyPermission(%s)", strings.Join(quoteAll(codes), " | ")),
		message: fmt.Sprintf("Permiso denegado. Se requiere alguno de: %s.", strings.Join(quoteAll(codes), " | ")),
	}
}

// RequireAllPermissions builds a gate that grants iff the principal holds
// every code.
func RequireAllPermissions(d Decider, codes ...string) Gate {
	return Gate{
		decider: d,
		codes:   append([]string(nil), codes...),
		mode:    gateAll,
		label:   fmt.Sprintf("RequireAllPermissions(%s)", strings.Join(quoteAll(codes), " & ")),
		message: fmt.Sprintf("Permiso denegado. Se requieren todos: %s.", strings.Join(quoteAll(codes), " & ")),
	}
}

// Allow evaluates the gate for the principal. Codes are checked left to
// right; the checks have no side effects, so the order is unobservable.
// An empty code list grants.
func (g Gate) Allow(ctx context.Context, p *shared.Principal) bool {
	if len(g.codes) == 0 {
		return true
	}
	switch g.mode {
	case gateAny:
		for _, code := range g.codes {
			if g.decider.HasPermission(ctx, p, code) {
				return true
			}
		}
		return false
	default:
		for _, code := range g.codes {
			if !g.decider.HasPermission(ctx, p, code) {
				return false
			}
		}
		return true
	}
}

// Label returns a descriptive name for logs and tooling.
func (g Gate) Label() string { return g.label }

// Message returns the human-readable denial message embedding the evaluated
// codes, suitable for a 403 response body.
func (g Gate) Message() string { return g.message }

// Codes returns a copy of the permission codes the gate evaluates.
func (g Gate) Codes() []string { return append([]string(nil), g.codes...) }

func quoteAll(codes []string) []string {
	quoted := make([]string, len(codes))
	for i, code := range codes {
		quoted[i] = fmt.Sprintf("%q", code)
	}
	return quoted
}
