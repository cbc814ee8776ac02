// Package catalog is the Transaction Manager's persistent store: a single
// SQLite database recording every installed package and the files it owns.
// All mutation happens inside an explicit transaction acquired with Begin,
// and is serialized by a process-wide mutex in addition to SQLite's own
// transaction isolation, matching the process-wide-mutex-plus-file-lock
// model every mutating raven operation must hold.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS packages (
	name TEXT PRIMARY KEY,
	version TEXT NOT NULL,
	installed_at TEXT NOT NULL,
	deps_json TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS files (
	path TEXT PRIMARY KEY,
	owner TEXT NOT NULL REFERENCES packages(name)
);
`

// InstalledPackage is a row in the Catalog together with the files it owns.
type InstalledPackage struct {
	Name        string
	Version     string
	InstalledAt time.Time
	Deps        []string
	Files       []string
}

// Catalog is the SQLite-backed store of installed packages.
type Catalog struct {
	mu sync.Mutex
	db *sql.DB
}

// Open opens (creating if necessary) the catalog database at path and
// ensures its schema exists.
func Open(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init catalog schema: %w", err)
	}
	return &Catalog{db: db}, nil
}

// Close releases the underlying database handle.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Get returns the installed package named name, or (nil, nil) if absent.
func (c *Catalog) Get(ctx context.Context, name string) (*InstalledPackage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getLocked(ctx, c.db, name)
}

func (c *Catalog) getLocked(ctx context.Context, q querier, name string) (*InstalledPackage, error) {
	row := q.QueryRowContext(ctx, `SELECT name, version, installed_at, deps_json FROM packages WHERE name = ?`, name)
	var pkg InstalledPackage
	var installedAt, depsJSON string
	if err := row.Scan(&pkg.Name, &pkg.Version, &installedAt, &depsJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	t, err := time.Parse(time.RFC3339, installedAt)
	if err != nil {
		return nil, fmt.Errorf("corrupt installed_at for %s: %w", name, err)
	}
	pkg.InstalledAt = t
	if err := json.Unmarshal([]byte(depsJSON), &pkg.Deps); err != nil {
		return nil, fmt.Errorf("corrupt deps_json for %s: %w", name, err)
	}

	rows, err := q.QueryContext(ctx, `SELECT path FROM files WHERE owner = ? ORDER BY path`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		pkg.Files = append(pkg.Files, p)
	}
	return &pkg, rows.Err()
}

// List returns every installed package, ordered by name.
func (c *Catalog) List(ctx context.Context) ([]InstalledPackage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rows, err := c.db.QueryContext(ctx, `SELECT name FROM packages ORDER BY name`)
	if err != nil {
		return nil, err
	}
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			rows.Close()
			return nil, err
		}
		names = append(names, n)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]InstalledPackage, 0, len(names))
	for _, n := range names {
		p, err := c.getLocked(ctx, c.db, n)
		if err != nil {
			return nil, err
		}
		if p != nil {
			out = append(out, *p)
		}
	}
	return out, nil
}

// Count returns the number of installed packages.
func (c *Catalog) Count(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM packages`).Scan(&n)
	return n, err
}

// ReverseDeps returns the names of every installed package whose declared
// dependency list includes name. The matching is performed in Go, not SQL,
// since each dependency is a constraint string (e.g. "libdummy >= 2.0.0")
// and the Catalog only needs the package-name component for this query.
func (c *Catalog) ReverseDeps(ctx context.Context, name string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rows, err := c.db.QueryContext(ctx, `SELECT name, deps_json FROM packages`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var pname, depsJSON string
		if err := rows.Scan(&pname, &depsJSON); err != nil {
			return nil, err
		}
		var deps []string
		if err := json.Unmarshal([]byte(depsJSON), &deps); err != nil {
			return nil, err
		}
		for _, d := range deps {
			if dependencyNameOf(d) == name {
				result = append(result, pname)
				break
			}
		}
	}
	sort.Strings(result)
	return result, rows.Err()
}

// dependencyNameOf extracts the package-name component of a dependency
// constraint string without requiring a full semver.Constraint parse, since
// this query only needs to compare names.
func dependencyNameOf(constraint string) string {
	if i := strings.IndexAny(constraint, "<>="); i >= 0 {
		return strings.TrimSpace(constraint[:i])
	}
	return strings.TrimSpace(constraint)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}
