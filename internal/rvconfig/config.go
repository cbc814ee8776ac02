// Package rvconfig is the Context value threaded through every raven
// component: fixed on-disk locations, and the current OS/Arch pair. Unlike
// a typical CLI tool, raven does not resolve per-user XDG base directories —
// it targets a single-user-per-host Linux install rooted at fixed FHS paths,
// so every invocation of the same binary on the same host agrees on where
// the catalog, recipes, and lock file live.
package rvconfig

import (
	"fmt"
	"runtime"
)

const (
	baseDir    = "/var/lib/raven"
	recipesDir = baseDir + "/recipes"
	catalogDB  = baseDir + "/metadata.db"
	configFile = baseDir + "/config.toml"
	lockFile   = "/var/lock/raven.lock"
	buildRoot  = "/tmp"
)

// Config is the immutable set of filesystem locations and host facts shared
// by the Reactor, Sandbox, Transaction Manager, and Planner.
type Config struct {
	os   string
	arch string
}

// New returns a Config for the running host.
func New() *Config {
	return &Config{os: runtime.GOOS, arch: runtime.GOARCH}
}

// RecipesDir is the directory containing *.toml recipe files.
func (c *Config) RecipesDir() string { return recipesDir }

// CatalogPath is the path to the SQLite catalog database.
func (c *Config) CatalogPath() string { return catalogDB }

// ConfigPath is the path to the TOML settings file (repository URL, options).
func (c *Config) ConfigPath() string { return configFile }

// LockPath is the path to the global single-instance lock file.
func (c *Config) LockPath() string { return lockFile }

// BuildDirPrefix returns "/tmp/raven-build-". The Planner derives its shared
// source-cache directory from it; Sandbox.Build names its per-build scratch
// directories with the same "raven-build-" prefix under os.TempDir().
func (c *Config) BuildDirPrefix() string {
	return fmt.Sprintf("%s/raven-build-", buildRoot)
}

// OS returns the normalized GOOS of the running host ("linux").
func (c *Config) OS() string { return c.os }

// Arch returns the normalized GOARCH of the running host.
func (c *Config) Arch() string { return c.arch }
