package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// ConflictError reports that a file path is already owned by another
// installed package.
type ConflictError struct {
	Path       string
	OtherOwner string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("File conflict: %s already owned by %s", e.Path, e.OtherOwner)
}

// Txn is a handle to an in-flight catalog transaction. It must be committed
// or rolled back exactly once; Begin called again before that is an error,
// matching the "nested calls are errors" rule.
type Txn struct {
	tx     *sql.Tx
	done   bool
	parent *Catalog
}

// Begin starts a new catalog transaction. Calling Begin while another Txn
// from this Catalog is still open returns an error rather than blocking —
// nesting is a caller bug, not something to serialize through.
func (c *Catalog) Begin(ctx context.Context) (*Txn, error) {
	if !c.mu.TryLock() {
		return nil, fmt.Errorf("begin catalog transaction: a transaction is already open on this catalog")
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &Txn{tx: tx, parent: c}, nil
}

// Commit finalizes the transaction's writes.
func (t *Txn) Commit() error {
	if t.done {
		return fmt.Errorf("transaction already finished")
	}
	t.done = true
	defer t.parent.mu.Unlock()
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit error: %w", err)
	}
	return nil
}

// Rollback discards the transaction's writes.
func (t *Txn) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	defer t.parent.mu.Unlock()
	return t.tx.Rollback()
}

// Insert records a new package row and its owned files inside txn. A path
// in files already owned by a different package fails with *ConflictError
// and rolls the transaction back; the handle is dead afterwards.
func (t *Txn) Insert(ctx context.Context, name, version string, deps []string, files []string) error {
	for _, f := range files {
		var owner string
		err := t.tx.QueryRowContext(ctx, `SELECT owner FROM files WHERE path = ?`, f).Scan(&owner)
		if err == nil && owner != name {
			t.Rollback()
			return &ConflictError{Path: f, OtherOwner: owner}
		}
		if err != nil && err != sql.ErrNoRows {
			return err
		}
	}

	depsJSON, err := json.Marshal(deps)
	if err != nil {
		return err
	}

	_, err = t.tx.ExecContext(ctx,
		`INSERT INTO packages (name, version, installed_at, deps_json) VALUES (?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET version=excluded.version, installed_at=excluded.installed_at, deps_json=excluded.deps_json`,
		name, version, time.Now().UTC().Format(time.RFC3339), string(depsJSON))
	if err != nil {
		return fmt.Errorf("insert package row: %w", err)
	}

	for _, f := range files {
		_, err := t.tx.ExecContext(ctx,
			`INSERT INTO files (path, owner) VALUES (?, ?) ON CONFLICT(path) DO UPDATE SET owner=excluded.owner`,
			f, name)
		if err != nil {
			return fmt.Errorf("insert file row %s: %w", f, err)
		}
	}
	return nil
}

// RemovePackageFiles deletes files no longer owned by name — used by the
// upgrade protocol to prune paths present in the old file list but absent
// from the new one.
func (t *Txn) RemovePackageFiles(ctx context.Context, name string, paths []string) error {
	for _, p := range paths {
		if _, err := t.tx.ExecContext(ctx, `DELETE FROM files WHERE path = ? AND owner = ?`, p, name); err != nil {
			return err
		}
	}
	return nil
}

// Remove deletes the packages row for name and every files row it owns.
func (t *Txn) Remove(ctx context.Context, name string) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM files WHERE owner = ?`, name); err != nil {
		return fmt.Errorf("remove files rows: %w", err)
	}
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM packages WHERE name = ?`, name); err != nil {
		return fmt.Errorf("remove package row: %w", err)
	}
	return nil
}

// Files returns the files currently owned by name, inside this transaction's
// view of the database.
func (t *Txn) Files(ctx context.Context, name string) ([]string, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT path FROM files WHERE owner = ? ORDER BY path`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
