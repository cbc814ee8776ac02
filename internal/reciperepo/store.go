// Package reciperepo is the Recipe Store: a read-only view over a directory
// of TOML recipe files, with load-by-name, list-all, and fuzzy search.
// Recipe sync from a remote source is an external collaborator and is not
// implemented here.
package reciperepo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"raven/internal/recipe"
)

// NotFoundError is returned by Load when no recipe file exists for a name.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("recipe not found: %s", e.Name)
}

// Store loads and serves Recipes from a single local directory.
type Store struct {
	dir string
}

// New returns a Store rooted at dir. The directory is read lazily; New does
// not touch the filesystem.
func New(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) pathFor(name string) string {
	return filepath.Join(s.dir, strings.ToLower(name)+".toml")
}

// Load reads and validates the recipe for name.
func (s *Store) Load(name string) (*recipe.Recipe, error) {
	path := s.pathFor(name)
	r, err := recipe.LoadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Name: name}
		}
		return nil, err
	}
	return r, nil
}

// ListAll enumerates every recipe in the store directory. Files that fail
// to parse are skipped with their error recorded in the returned error slice
// rather than aborting the whole listing.
func (s *Store) ListAll() ([]*recipe.Recipe, []error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, []error{err}
	}

	var recipes []*recipe.Recipe
	var errs []error
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".toml") {
			continue
		}
		r, err := recipe.LoadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		recipes = append(recipes, r)
	}
	return recipes, errs
}
