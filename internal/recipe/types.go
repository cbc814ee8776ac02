// Package recipe defines the declarative, data-only description of how to
// fetch, build, and install one package. A Recipe is loaded from a TOML
// file and never executed as a script: build_commands and install_commands
// are ordered lists of shell command lines run one-per-process, never
// sourced as shell functions.
package recipe

import (
	"fmt"
	"regexp"
	"strings"

	"raven/internal/semver"
)

// Recipe is the immutable, validated description of one package version.
type Recipe struct {
	Name            string   `toml:"name"`
	Version         string   `toml:"version"`
	Description     string   `toml:"description"`
	TargetArch      string   `toml:"target_arch"`
	Dependencies    []string `toml:"dependencies"`
	SourceURL       string   `toml:"source_url"`
	SHA256Sum       string   `toml:"sha256_sum"`
	BuildCommands   []string `toml:"build_commands"`
	InstallCommands []string `toml:"install_commands"`

	// Filename overrides the archive filename derived from SourceURL, for
	// sources whose URL path does not end in a sensible file name.
	Filename string `toml:"filename"`

	parsedVersion     semver.Version
	parsedConstraints []semver.Constraint
}

var sha256Pattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Validate checks every invariant in the data model: the version parses as
// strict SemVer, sha256_sum is exactly 64 lowercase hex chars, and every
// dependency string parses into a constraint. It must be called once after
// loading and before the Recipe is handed to any other component.
func (r *Recipe) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("recipe: name must not be empty")
	}
	v, err := semver.Parse(r.Version)
	if err != nil {
		return fmt.Errorf("recipe %s: %w", r.Name, err)
	}
	r.parsedVersion = v

	if !sha256Pattern.MatchString(r.SHA256Sum) {
		return fmt.Errorf("recipe %s: sha256_sum must be exactly 64 lowercase hex characters", r.Name)
	}

	r.parsedConstraints = make([]semver.Constraint, 0, len(r.Dependencies))
	for _, d := range r.Dependencies {
		c, err := semver.ParseConstraint(d)
		if err != nil {
			return fmt.Errorf("recipe %s: dependency %q: %w", r.Name, d, err)
		}
		r.parsedConstraints = append(r.parsedConstraints, c)
	}

	// Normalize lookup key to lowercase per the data model.
	r.Name = strings.ToLower(r.Name)
	return nil
}

// ParsedVersion returns the validated SemVer of the recipe. Validate must
// have been called first.
func (r *Recipe) ParsedVersion() semver.Version { return r.parsedVersion }

// ParsedDependencies returns the validated dependency constraints in
// declaration order. Validate must have been called first.
func (r *Recipe) ParsedDependencies() []semver.Constraint { return r.parsedConstraints }
