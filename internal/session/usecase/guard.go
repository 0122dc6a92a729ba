package usecase

import (
	"fmt"
	"strings"

	"photoshoot-studio/internal/session/config"

	"github.com/google/cel-go/cel"
)

type guardRule struct {
	target  string
	expr    string
	program cel.Program
}

// Guard decides where a session transition should send the client. Rules
// are CEL expressions over route (string), public (bool) and authenticated
// (bool), compiled once.
type Guard struct {
	public  map[string]bool
	landing string
	rules   []guardRule
}

// NewGuard compiles the rules of cfg.
func NewGuard(cfg *config.Config) (*Guard, error) {
	env, err := cel.NewEnv(
		cel.Variable("route", cel.StringType),
		cel.Variable("public", cel.BoolType),
		cel.Variable("authenticated", cel.BoolType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create guard environment: %w", err)
	}

	g := &Guard{public: make(map[string]bool, len(cfg.PublicRoutes)), landing: cfg.LandingRoute}
	for _, r := range cfg.PublicRoutes {
		g.public[normalizeRoute(r)] = true
	}

	for _, r := range []struct{ target, expr string }{
		{cfg.HomeRoute, cfg.HomeRule},
		{cfg.LandingRoute, cfg.LandingRule},
	} {
		ast, issues := env.Compile(r.expr)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("guard rule %q: %w", r.expr, issues.Err())
		}
		if !ast.OutputType().IsExactType(cel.BoolType) {
			return nil, fmt.Errorf("guard rule %q must yield a bool", r.expr)
		}
		program, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("guard rule %q: %w", r.expr, err)
		}
		g.rules = append(g.rules, guardRule{target: normalizeRoute(r.target), expr: r.expr, program: program})
	}
	return g, nil
}

// Landing returns the landing route.
func (g *Guard) Landing() string { return g.landing }

// IsPublic reports whether route is reachable without a session.
func (g *Guard) IsPublic(route string) bool {
	return g.public[normalizeRoute(route)]
}

// Redirect returns the route the client should move to, if any.
func (g *Guard) Redirect(route string, authenticated bool) (string, bool, error) {
	route = normalizeRoute(route)
	vars := map[string]interface{}{
		"route":         route,
		"public":        g.public[route],
		"authenticated": authenticated,
	}
	for _, r := range g.rules {
		out, _, err := r.program.Eval(vars)
		if err != nil {
			return "", false, fmt.Errorf("guard rule %q: %w", r.expr, err)
		}
		hit, ok := out.Value().(bool)
		if !ok {
			return "", false, fmt.Errorf("guard rule %q did not return a bool", r.expr)
		}
		if hit && r.target != route {
			return r.target, true, nil
		}
	}
	return "", false, nil
}

// normalizeRoute drops the query, fragment and trailing slash.
func normalizeRoute(route string) string {
	if i := strings.IndexAny(route, "?#"); i >= 0 {
		route = route[:i]
	}
	if route == "" {
		return "/"
	}
	if len(route) > 1 {
		route = strings.TrimRight(route, "/")
		if route == "" {
			return "/"
		}
	}
	return route
}
