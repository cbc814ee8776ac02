package planner

import "fmt"

// AlreadyInstalledError reports that the target is already installed at the
// exact version its recipe declares, so the operation is a no-op.
type AlreadyInstalledError struct {
	Name    string
	Version string
}

func (e *AlreadyInstalledError) Error() string {
	return fmt.Sprintf("AlreadyInstalled: %s %s", e.Name, e.Version)
}

// NotInstalledError reports that remove was requested for a package with no
// catalog row.
type NotInstalledError struct {
	Name string
}

func (e *NotInstalledError) Error() string {
	return fmt.Sprintf("NotInstalled: %s", e.Name)
}
