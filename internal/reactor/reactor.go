// Package reactor is the Dependency Reactor: it loads recipes, checks
// semantic-version constraints against the Catalog and Recipe Store, and
// produces a topologically ordered build plan (or rejects the request) via
// a depth-first traversal with three-color cycle detection.
package reactor

import (
	"context"
	"fmt"

	"raven/internal/catalog"
	"raven/internal/recipe"
	"raven/internal/reciperepo"
	"raven/internal/semver"
)

// color marks a node's DFS visitation state.
type color int

const (
	white color = iota // unvisited
	gray               // in progress
	black              // done
)

// InstalledLookup is the subset of Catalog the Reactor needs.
type InstalledLookup interface {
	Get(ctx context.Context, name string) (*catalog.InstalledPackage, error)
	ReverseDeps(ctx context.Context, name string) ([]string, error)
}

// RecipeLookup is the subset of the Recipe Store the Reactor needs.
type RecipeLookup interface {
	Load(name string) (*recipe.Recipe, error)
}

// Reactor resolves a target recipe and its transitive dependencies into a
// build plan.
type Reactor struct {
	catalog InstalledLookup
	recipes RecipeLookup
}

// New returns a Reactor backed by the given Catalog and Recipe Store views.
func New(catalog InstalledLookup, recipes RecipeLookup) *Reactor {
	return &Reactor{catalog: catalog, recipes: recipes}
}

// BuildPlan is the topologically ordered list of recipes the Planner must
// build, children before parents.
type BuildPlan struct {
	Recipes []*recipe.Recipe
}

type visitor struct {
	ctx     context.Context
	reactor *Reactor
	colors  map[string]color
	stack   []string
	need    []*recipe.Recipe
	inNeed  map[string]bool
}

// Resolve builds the plan needed to install targetName, honoring already
// installed packages that already satisfy every inbound constraint. The
// target itself is always included in the plan — callers are responsible
// for short-circuiting an already-installed, same-version request with
// AlreadyInstalled before calling Resolve.
func (r *Reactor) Resolve(ctx context.Context, targetName string) (*BuildPlan, error) {
	v := &visitor{
		ctx:     ctx,
		reactor: r,
		colors:  make(map[string]color),
		inNeed:  make(map[string]bool),
	}

	// The top-level target is always visited as if unconstrained: any
	// version its recipe declares is acceptable, and it is always added to
	// the build plan (rebuild-on-request semantics).
	if err := v.visit(targetName, semver.Constraint{Name: targetName, Bound: false}, true); err != nil {
		return nil, err
	}

	return &BuildPlan{Recipes: v.need}, nil
}

func (v *visitor) visit(name string, constraint semver.Constraint, isTarget bool) error {
	switch v.colors[name] {
	case gray:
		path := append(append([]string{}, v.stack...), name)
		return &CycleError{Path: path}
	case black:
		return nil
	}

	if !isTarget {
		installed, err := v.reactor.catalog.Get(v.ctx, name)
		if err != nil {
			return fmt.Errorf("catalog lookup for %s: %w", name, err)
		}
		if installed != nil {
			iv, err := semver.Parse(installed.Version)
			if err != nil {
				return fmt.Errorf("corrupt installed version for %s: %w", name, err)
			}
			if constraint.Satisfies(iv) {
				return nil
			}
		}
	}

	v.colors[name] = gray
	v.stack = append(v.stack, name)

	rec, err := v.reactor.recipes.Load(name)
	if err != nil {
		if _, ok := err.(*reciperepo.NotFoundError); ok {
			return &UnresolvedError{Name: name, Constraint: constraint.String()}
		}
		return &RecipeParseErrorWrap{Name: name, Err: err}
	}

	if !isTarget {
		if !constraint.Satisfies(rec.ParsedVersion()) {
			return &VersionMismatchError{Name: name, Available: rec.ParsedVersion().String(), Constraint: constraint.String()}
		}
	}

	for _, dep := range rec.ParsedDependencies() {
		if err := v.visit(dep.Name, dep, false); err != nil {
			return err
		}
	}

	if err := v.checkReverseDeps(name, rec.ParsedVersion()); err != nil {
		return err
	}

	v.stack = v.stack[:len(v.stack)-1]
	v.colors[name] = black

	if !v.inNeed[name] {
		v.need = append(v.need, rec)
		v.inNeed[name] = true
	}
	return nil
}

// checkReverseDeps fails ConflictingReverseDep if some already-installed
// package declares a constraint on name that candidate does not satisfy.
func (v *visitor) checkReverseDeps(name string, candidate semver.Version) error {
	revs, err := v.reactor.catalog.ReverseDeps(v.ctx, name)
	if err != nil {
		return fmt.Errorf("reverse-dep lookup for %s: %w", name, err)
	}
	for _, revName := range revs {
		revPkg, err := v.reactor.catalog.Get(v.ctx, revName)
		if err != nil || revPkg == nil {
			continue
		}
		for _, depStr := range revPkg.Deps {
			c, err := semver.ParseConstraint(depStr)
			if err != nil || c.Name != name {
				continue
			}
			if !c.Satisfies(candidate) {
				return &ConflictingReverseDepError{ReverseDepName: revName, Constraint: c.String()}
			}
		}
	}
	return nil
}
