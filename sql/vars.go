package sql

import "context"

// ctxVarsKey is the key used for attaching and reading session variables,
// adapted from velox/dialect/sql/driver.go's WithVar/VarFromContext.
type ctxVarsKey struct{}

type sessionVars struct {
	vars []struct{ k, v string }
}

// WithVar returns a new context carrying a session variable a fetch-
// boundary implementation may apply before issuing the planner's
// Fragment (SPEC_FULL §4: per-request SQL session variables such as
// statement_timeout).
func WithVar(ctx context.Context, name, value string) context.Context {
	sv, _ := ctx.Value(ctxVarsKey{}).(sessionVars)
	sv.vars = append(sv.vars, struct{ k, v string }{k: name, v: value})
	return context.WithValue(ctx, ctxVarsKey{}, sv)
}

// VarFromContext returns the session variable value stashed by WithVar.
func VarFromContext(ctx context.Context, name string) (string, bool) {
	sv, _ := ctx.Value(ctxVarsKey{}).(sessionVars)
	for _, s := range sv.vars {
		if s.k == name {
			return s.v, true
		}
	}
	return "", false
}

// AllVars returns every session variable stashed on ctx as a map from name
// to value, for a fetch-boundary implementation to apply before issuing the
// planner's Fragment. A name set more than once maps to its last value; the
// order of the WithVar calls is not kept.
func AllVars(ctx context.Context) map[string]string {
	sv, _ := ctx.Value(ctxVarsKey{}).(sessionVars)
	if len(sv.vars) == 0 {
		return nil
	}
	out := make(map[string]string, len(sv.vars))
	for _, s := range sv.vars {
		out[s.k] = s.v
	}
	return out
}
