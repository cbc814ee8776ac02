// Dispatch translates parsed os.Args into operations on a Handlers value,
// orchestrating the Planner, Catalog, Recipe Store, and global lock — the
// same Handlers-struct-of-managers idiom the retrieved corpus's own CLI
// engine uses, trimmed down to raven's seven commands.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"raven/internal/catalog"
	"raven/internal/lock"
	"raven/internal/planner"
	"raven/internal/reciperepo"
	"raven/internal/rvconfig"
)

// Handlers holds every manager a command handler needs. Constructed once
// per invocation in Dispatch.
type Handlers struct {
	Ctx     context.Context
	Cfg     *rvconfig.Config
	Cat     *catalog.Catalog
	Recipes *reciperepo.Store
	Plan    *planner.Planner
}

// Dispatch parses args and runs the matching command, returning the
// process exit code. install, remove, upgrade and update acquire the global
// operation lock before touching the Catalog or live filesystem and release
// it before returning; search and config run without the lock, including
// config --set-repo, which writes config.toml.
func Dispatch(ctx context.Context, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: raven <install|remove|search|upgrade|update|config> ...")
		return 1
	}

	cfg := rvconfig.New()
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "search":
		return runSearch(cfg, rest)
	case "config":
		return runConfig(cfg, rest)
	case "install":
		return runLocked(ctx, cfg, func(h *Handlers) int { return handleInstall(h, rest) })
	case "remove":
		return runLocked(ctx, cfg, func(h *Handlers) int { return handleRemove(h, rest) })
	case "upgrade":
		return runLocked(ctx, cfg, func(h *Handlers) int { return handleUpgrade(h, rest) })
	case "update":
		return runLocked(ctx, cfg, func(h *Handlers) int { return handleUpdate(h, rest) })
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		return 1
	}
}

// runLocked acquires the global operation lock, opens the Catalog, and runs
// fn with a fully wired Handlers. A second concurrently running raven
// instance observes the lock and fails immediately with "Locked", matching
// spec §5.
func runLocked(ctx context.Context, cfg *rvconfig.Config, fn func(*Handlers) int) int {
	h, err := lock.Acquire(cfg.LockPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer h.Release()

	handlers, err := newHandlers(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer handlers.Cat.Close()

	return fn(handlers)
}

func newHandlers(ctx context.Context, cfg *rvconfig.Config) (*Handlers, error) {
	cat, err := catalog.Open(cfg.CatalogPath())
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	recipes := reciperepo.New(cfg.RecipesDir())
	plan := planner.New(cfg, cat, recipes, "/", nil)
	return &Handlers{Ctx: ctx, Cfg: cfg, Cat: cat, Recipes: recipes, Plan: plan}, nil
}

func handleInstall(h *Handlers, args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: raven install <name>")
		return 1
	}
	res, err := h.Plan.Install(h.Ctx, args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Printf("installed: %s\n", strings.Join(res.Built, ", "))
	return 0
}

func handleRemove(h *Handlers, args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: raven remove <name>")
		return 1
	}
	if err := h.Plan.Remove(h.Ctx, args[0]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot remove %s: %v\n", args[0], err)
		return 1
	}
	fmt.Printf("removed: %s\n", args[0])
	return 0
}

func handleUpgrade(h *Handlers, args []string) int {
	res, err := h.Plan.Upgrade(h.Ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if len(res.Upgraded) == 0 {
		fmt.Println("nothing to upgrade")
		return 0
	}
	fmt.Printf("upgraded: %s\n", strings.Join(res.Upgraded, ", "))
	return 0
}

func handleUpdate(h *Handlers, args []string) int {
	settings, err := rvconfig.LoadSettings(h.Cfg.ConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if settings.RepoURL == "" {
		fmt.Fprintln(os.Stderr, "Error: no repository configured; run `raven config --set-repo <url>`")
		return 1
	}
	// Recipe sync from the remote repository (git clone/pull) is an
	// external collaborator, per spec §1: it is not implemented in the
	// core, so Update's wiring point is exercised with a no-op sync here.
	err = h.Plan.Update(h.Ctx, settings.RepoURL, func(ctx context.Context, repoURL string) error {
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Println("recipe store up to date")
	return 0
}

func runSearch(cfg *rvconfig.Config, args []string) int {
	query := ""
	if len(args) > 0 {
		query = args[0]
	}
	store := reciperepo.New(cfg.RecipesDir())
	for _, name := range store.Search(query) {
		fmt.Println(name)
	}
	return 0
}

func runConfig(cfg *rvconfig.Config, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: raven config --set-repo <url> | --show")
		return 1
	}
	switch args[0] {
	case "--show":
		settings, err := rvconfig.LoadSettings(cfg.ConfigPath())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Printf("repo_url = %q\n", settings.RepoURL)
		return 0
	case "--set-repo":
		if len(args) != 2 {
			fmt.Fprintln(os.Stderr, "usage: raven config --set-repo <url>")
			return 1
		}
		settings := rvconfig.Settings{RepoURL: args[1]}
		if err := rvconfig.SaveSettings(cfg.ConfigPath(), settings); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Printf("repository set to %s\n", args[1])
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown config flag: %s\n", args[0])
		return 1
	}
}
