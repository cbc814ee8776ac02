// Package txn is the Transaction Manager: it moves staged files into the
// live filesystem root and records ownership in the Catalog as a single
// atomic unit, rolling back both the file moves and the catalog
// transaction on any failure.
package txn

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"raven/internal/catalog"
)

// MoveError reports that renaming a staged file into the live root failed.
type MoveError struct {
	Path  string
	Cause error
}

func (e *MoveError) Error() string {
	return fmt.Sprintf("move error: %s: %v", e.Path, e.Cause)
}

func (e *MoveError) Unwrap() error { return e.Cause }

// CommitError reports that the catalog transaction's final commit failed
// after files had already been moved; the Manager reverses those moves
// before returning.
type CommitError struct {
	Cause error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit error: %v", e.Cause)
}

func (e *CommitError) Unwrap() error { return e.Cause }

// InUseError reports that a package cannot be removed because other
// installed packages declare a dependency on it.
type InUseError struct {
	Name        string
	ReverseDeps []string
}

func (e *InUseError) Error() string {
	return fmt.Sprintf("In use by %s", strings.Join(e.ReverseDeps, ", "))
}

// RemoveError reports that unlinking an owned file failed for a reason
// other than the file already being absent (which is tolerated drift).
type RemoveError struct {
	Path  string
	Cause error
}

func (e *RemoveError) Error() string {
	return fmt.Sprintf("remove error: %s: %v", e.Path, e.Cause)
}

func (e *RemoveError) Unwrap() error { return e.Cause }

// Manager is the Transaction Manager, bound to one Catalog and the live
// filesystem root ("/" in production, an arbitrary directory in tests).
type Manager struct {
	cat  *catalog.Catalog
	root string
}

// New returns a Manager that commits into liveRoot (normally "/").
func New(cat *catalog.Catalog, liveRoot string) *Manager {
	return &Manager{cat: cat, root: liveRoot}
}

// Commit moves every file in fileList from stagedRoot into the live root,
// and inserts pkg/version/deps/fileList into the Catalog, as a single
// all-or-nothing unit.
func (m *Manager) Commit(ctx context.Context, name, version string, deps []string, stagedRoot string, fileList []string) error {
	txn, err := m.cat.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin catalog transaction: %w", err)
	}

	if err := txn.Insert(ctx, name, version, deps, fileList); err != nil {
		txn.Rollback()
		return err
	}

	ordered := depthFirstOrder(fileList)
	var moved []string
	for _, f := range ordered {
		dest := filepath.Join(m.root, f)
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			m.reverseMoves(moved, stagedRoot)
			txn.Rollback()
			return &MoveError{Path: f, Cause: err}
		}
		src := filepath.Join(stagedRoot, f)
		if err := os.Rename(src, dest); err != nil {
			m.reverseMoves(moved, stagedRoot)
			txn.Rollback()
			return &MoveError{Path: f, Cause: err}
		}
		moved = append(moved, f)
	}

	if err := txn.Commit(); err != nil {
		m.reverseMoves(moved, stagedRoot)
		return &CommitError{Cause: err}
	}
	return nil
}

// CommitUpgrade performs a two-phase install-and-prune commit: files present
// in oldFileList but absent from newFileList are deleted as part of the same
// catalog transaction that installs newFileList from stagedRoot. Stale files
// are renamed aside into stagedRoot rather than unlinked outright, so a
// later failure (a new-file move, or the final catalog commit) can restore
// them and leave the filesystem exactly as it was before the upgrade.
func (m *Manager) CommitUpgrade(ctx context.Context, name, version string, deps []string, stagedRoot string, newFileList, oldFileList []string) error {
	stale := subtractSorted(oldFileList, newFileList)

	txn, err := m.cat.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin catalog transaction: %w", err)
	}

	if err := txn.Insert(ctx, name, version, deps, newFileList); err != nil {
		txn.Rollback()
		return err
	}
	if err := txn.RemovePackageFiles(ctx, name, stale); err != nil {
		txn.Rollback()
		return err
	}

	ordered := depthFirstOrder(newFileList)
	var moved []string
	for _, f := range ordered {
		dest := filepath.Join(m.root, f)
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			m.reverseMoves(moved, stagedRoot)
			txn.Rollback()
			return &MoveError{Path: f, Cause: err}
		}
		src := filepath.Join(stagedRoot, f)
		if err := os.Rename(src, dest); err != nil {
			m.reverseMoves(moved, stagedRoot)
			txn.Rollback()
			return &MoveError{Path: f, Cause: err}
		}
		moved = append(moved, f)
	}

	staleBackupDir := filepath.Join(stagedRoot, ".raven-stale-backup")
	var staleMoved []string
	for _, f := range longestFirst(stale) {
		live := filepath.Join(m.root, f)
		backup := filepath.Join(staleBackupDir, f)
		if err := os.MkdirAll(filepath.Dir(backup), 0755); err != nil {
			m.reverseMoves(moved, stagedRoot)
			m.restoreStale(staleMoved, staleBackupDir)
			txn.Rollback()
			return &MoveError{Path: f, Cause: err}
		}
		if err := os.Rename(live, backup); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			m.reverseMoves(moved, stagedRoot)
			m.restoreStale(staleMoved, staleBackupDir)
			txn.Rollback()
			return &MoveError{Path: f, Cause: err}
		}
		staleMoved = append(staleMoved, f)
	}

	if err := txn.Commit(); err != nil {
		m.reverseMoves(moved, stagedRoot)
		m.restoreStale(staleMoved, staleBackupDir)
		return &CommitError{Cause: err}
	}
	os.RemoveAll(staleBackupDir)
	return nil
}

// Remove enforces the reverse-dependency guard, then deletes name's catalog
// row and every file it owns.
func (m *Manager) Remove(ctx context.Context, name string) error {
	revs, err := m.cat.ReverseDeps(ctx, name)
	if err != nil {
		return fmt.Errorf("reverse-dep lookup: %w", err)
	}
	if len(revs) > 0 {
		return &InUseError{Name: name, ReverseDeps: revs}
	}

	pkg, err := m.cat.Get(ctx, name)
	if err != nil {
		return fmt.Errorf("catalog lookup: %w", err)
	}
	if pkg == nil {
		return fmt.Errorf("NotInstalled: %s", name)
	}

	txn, err := m.cat.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin catalog transaction: %w", err)
	}
	if err := txn.Remove(ctx, name); err != nil {
		txn.Rollback()
		return err
	}

	for _, f := range longestFirst(pkg.Files) {
		if err := os.Remove(filepath.Join(m.root, f)); err != nil && !os.IsNotExist(err) {
			txn.Rollback()
			return &RemoveError{Path: f, Cause: err}
		}
	}

	if err := txn.Commit(); err != nil {
		return &CommitError{Cause: err}
	}
	return nil
}

// reverseMoves moves every path in moved back from the live root into
// stagedRoot, in reverse order, best-effort (used during rollback).
func (m *Manager) reverseMoves(moved []string, stagedRoot string) {
	for i := len(moved) - 1; i >= 0; i-- {
		f := moved[i]
		os.Rename(filepath.Join(m.root, f), filepath.Join(stagedRoot, f))
	}
}

// restoreStale moves every path in staleMoved back from backupDir into the
// live root, in reverse order, best-effort (used during CommitUpgrade
// rollback to undo the rename-aside step before any file was unlinked).
func (m *Manager) restoreStale(staleMoved []string, backupDir string) {
	for i := len(staleMoved) - 1; i >= 0; i-- {
		f := staleMoved[i]
		dest := filepath.Join(m.root, f)
		os.MkdirAll(filepath.Dir(dest), 0755)
		os.Rename(filepath.Join(backupDir, f), dest)
	}
}

// depthFirstOrder sorts paths so that shallower directory components are
// created/renamed before deeper ones, matching the commit protocol's
// "depth-first order of path components" rule.
func depthFirstOrder(paths []string) []string {
	out := append([]string(nil), paths...)
	sort.Slice(out, func(i, j int) bool {
		ci := strings.Count(out[i], "/")
		cj := strings.Count(out[j], "/")
		if ci != cj {
			return ci < cj
		}
		return out[i] < out[j]
	})
	return out
}

// longestFirst orders paths deepest-first so that unlinking leaves
// directories empty in the right order during remove.
func longestFirst(paths []string) []string {
	out := append([]string(nil), paths...)
	sort.Slice(out, func(i, j int) bool {
		ci := strings.Count(out[i], "/")
		cj := strings.Count(out[j], "/")
		if ci != cj {
			return ci > cj
		}
		return out[i] > out[j]
	})
	return out
}

// subtractSorted returns the elements of a that are absent from b.
func subtractSorted(a, b []string) []string {
	inB := make(map[string]bool, len(b))
	for _, x := range b {
		inB[x] = true
	}
	var out []string
	for _, x := range a {
		if !inB[x] {
			out = append(out, x)
		}
	}
	return out
}
