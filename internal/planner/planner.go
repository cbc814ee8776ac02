// Package planner composes the Reactor, Sandbox, and Transaction Manager
// into the install/remove/upgrade/update flows. It is the only component
// that orchestrates a full operation end-to-end. Callers must hold the
// global operation lock (internal/lock) for the duration of any mutating
// flow; the CLI acquires it before constructing a Planner.
package planner

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"raven/internal/catalog"
	"raven/internal/display"
	"raven/internal/reactor"
	"raven/internal/recipe"
	"raven/internal/reciperepo"
	"raven/internal/rvconfig"
	"raven/internal/sandbox"
	"raven/internal/semver"
	"raven/internal/txn"
)

// maxParallelDownloads bounds the pre-fetch pass's concurrency, per spec
// §5 ("bounded concurrency, e.g. <= 4").
const maxParallelDownloads = 4

// Planner composes the Reactor, Sandbox, and Transaction Manager for one
// catalog/recipe-store pair.
type Planner struct {
	cfg     *rvconfig.Config
	cat     *catalog.Catalog
	recipes *reciperepo.Store
	reactor *reactor.Reactor
	txnMgr  *txn.Manager
	disp    display.Display
}

// New returns a Planner wired to the given Context, Catalog, Recipe Store,
// and Display. liveRoot is normally "/"; tests pass a temp directory.
func New(cfg *rvconfig.Config, cat *catalog.Catalog, recipes *reciperepo.Store, liveRoot string, disp display.Display) *Planner {
	if disp == nil {
		disp = display.NewConsole()
	}
	return &Planner{
		cfg:     cfg,
		cat:     cat,
		recipes: recipes,
		reactor: reactor.New(cat, recipes),
		txnMgr:  txn.New(cat, liveRoot),
		disp:    disp,
	}
}

// InstallResult summarizes one completed install operation.
type InstallResult struct {
	Target string
	Built  []string // names built and committed, in build order
}

// Install resolves target's dependency graph, builds every package the
// Reactor says is needed, and commits each one (children before parents)
// before moving on to the next.
func (p *Planner) Install(ctx context.Context, target string) (*InstallResult, error) {
	rec, err := p.recipes.Load(target)
	if err != nil {
		return nil, err
	}

	if installed, err := p.cat.Get(ctx, target); err != nil {
		return nil, fmt.Errorf("catalog lookup: %w", err)
	} else if installed != nil && installed.Version == rec.ParsedVersion().String() {
		return nil, &AlreadyInstalledError{Name: target, Version: installed.Version}
	}

	plan, err := p.reactor.Resolve(ctx, target)
	if err != nil {
		return nil, err
	}

	if err := p.prefetch(ctx, plan.Recipes); err != nil {
		return nil, err
	}

	cacheDir := p.cfg.BuildDirPrefix() + "src-cache"
	sb := sandbox.NewWithCache(cacheDir)

	built := make([]string, 0, len(plan.Recipes))
	for _, r := range plan.Recipes {
		if err := p.buildAndCommit(ctx, sb, r); err != nil {
			return nil, fmt.Errorf("installing %s: %w", r.Name, err)
		}
		built = append(built, r.Name)
	}

	return &InstallResult{Target: target, Built: built}, nil
}

// buildAndCommit runs the Sandbox for r and commits its staged files into
// the live root and Catalog as a single transaction.
func (p *Planner) buildAndCommit(ctx context.Context, sb *sandbox.Sandbox, r *recipe.Recipe) error {
	task := p.disp.StartTask(r.Name)
	defer task.Done()

	result, err := sb.Build(ctx, r, task)
	if err != nil {
		return err
	}
	defer result.Cleanup()

	existing, err := p.cat.Get(ctx, r.Name)
	if err != nil {
		return fmt.Errorf("catalog lookup for %s: %w", r.Name, err)
	}

	if existing != nil {
		// Rebuild of an already-installed package (version changed, or a
		// forced reinstall of the same version): treat as an upgrade so
		// stale files not present in the new build are pruned.
		return p.txnMgr.CommitUpgrade(ctx, r.Name, r.Version, r.Dependencies, result.StagingRoot, result.Files, existing.Files)
	}
	return p.txnMgr.Commit(ctx, r.Name, r.Version, r.Dependencies, result.StagingRoot, result.Files)
}

// prefetch downloads every recipe's source archive into a shared cache
// directory with bounded concurrency, ahead of the strictly serial build
// loop. A prefetch failure is not fatal to the overall install: the
// Sandbox falls back to downloading directly if the cache entry is
// missing, so only genuinely unrecoverable errors (context cancellation)
// are surfaced here.
func (p *Planner) prefetch(ctx context.Context, recipes []*recipe.Recipe) error {
	cacheDir := p.cfg.BuildDirPrefix() + "src-cache"
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelDownloads)

	for _, r := range recipes {
		r := r
		g.Go(func() error {
			if err := sandbox.Prefetch(gctx, r, cacheDir); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				p.disp.Log(fmt.Sprintf("prefetch %s failed, will retry inline: %v", r.Name, err))
			}
			return nil
		})
	}
	return g.Wait()
}

// Remove enforces the reverse-dependency guard and deletes name's catalog
// row and owned files.
func (p *Planner) Remove(ctx context.Context, name string) error {
	pkg, err := p.cat.Get(ctx, name)
	if err != nil {
		return fmt.Errorf("catalog lookup: %w", err)
	}
	if pkg == nil {
		return &NotInstalledError{Name: name}
	}
	return p.txnMgr.Remove(ctx, name)
}

// UpgradeResult summarizes one completed upgrade operation.
type UpgradeResult struct {
	Upgraded []string // name@version pairs that were upgraded, in the order applied
	Failed   *UpgradeFailure
}

// UpgradeFailure reports the first package that failed to upgrade. Packages
// already committed before the failure remain committed, per spec §6
// ("others already committed remain committed").
type UpgradeFailure struct {
	Name string
	Err  error
}

func (f *UpgradeFailure) Error() string {
	return fmt.Sprintf("upgrade %s: %v", f.Name, f.Err)
}

func (f *UpgradeFailure) Unwrap() error { return f.Err }

// Upgrade installs, for every installed package whose recipe declares a
// strictly greater version, that new version in place. Each stale package
// is resolved through the Reactor like a fresh install, so a new version
// that grows new dependencies gets them built first, and one that would
// violate an installed package's constraint fails resolution before any
// build starts. Upgrade stops at the first failure; packages already
// upgraded remain installed.
func (p *Planner) Upgrade(ctx context.Context) (*UpgradeResult, error) {
	installed, err := p.cat.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}

	result := &UpgradeResult{}
	cacheDir := p.cfg.BuildDirPrefix() + "src-cache"
	sb := sandbox.NewWithCache(cacheDir)
	built := make(map[string]bool)

	for _, pkg := range installed {
		if built[pkg.Name] {
			continue // already rebuilt as part of an earlier package's plan
		}
		rec, err := p.recipes.Load(pkg.Name)
		if err != nil {
			if _, ok := err.(*reciperepo.NotFoundError); ok {
				continue // no recipe anymore: nothing to upgrade against
			}
			result.Failed = &UpgradeFailure{Name: pkg.Name, Err: err}
			return result, result.Failed
		}

		installedVersion, err := semver.Parse(pkg.Version)
		if err != nil {
			result.Failed = &UpgradeFailure{Name: pkg.Name, Err: err}
			return result, result.Failed
		}
		if !rec.ParsedVersion().GreaterThan(installedVersion) {
			continue
		}

		plan, err := p.reactor.Resolve(ctx, pkg.Name)
		if err != nil {
			result.Failed = &UpgradeFailure{Name: pkg.Name, Err: err}
			return result, result.Failed
		}
		if err := p.prefetch(ctx, plan.Recipes); err != nil {
			result.Failed = &UpgradeFailure{Name: pkg.Name, Err: err}
			return result, result.Failed
		}
		for _, r := range plan.Recipes {
			if built[r.Name] {
				continue
			}
			if err := p.buildAndCommit(ctx, sb, r); err != nil {
				result.Failed = &UpgradeFailure{Name: r.Name, Err: err}
				return result, result.Failed
			}
			built[r.Name] = true
			result.Upgraded = append(result.Upgraded, fmt.Sprintf("%s@%s", r.Name, r.Version))
		}
	}

	return result, nil
}

// Search returns fuzzy-matched recipe names for query. It never fails: an
// empty result is a valid, zero-exit-code outcome per spec §6.
func (p *Planner) Search(query string) []string {
	return p.recipes.Search(query)
}

// Update is delegated: recipe-store sync from a remote repository is an
// external collaborator per spec §1. UpdateFunc is the hook through which
// the CLI supplies the sync step, so the Planner does not depend on it
// directly; the CLI passes a no-op sync.
type UpdateFunc func(ctx context.Context, repoURL string) error

// Update invokes fn with the configured repository URL. It exists purely to
// give the Planner a single entry point for every CLI command's flow, even
// though the actual sync logic lives outside the core.
func (p *Planner) Update(ctx context.Context, repoURL string, fn UpdateFunc) error {
	return fn(ctx, repoURL)
}
