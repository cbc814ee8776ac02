//go:build linux

package sandbox

import (
	"golang.org/x/sys/unix"
)

func bindMount(host, sandboxPath string, readOnly bool) error {
	if err := unix.Mount(host, sandboxPath, "", unix.MS_BIND, ""); err != nil {
		return err
	}
	if readOnly {
		if err := unix.Mount(host, sandboxPath, "", unix.MS_BIND|unix.MS_REMOUNT|unix.MS_RDONLY, ""); err != nil {
			return err
		}
	}
	return nil
}

func mountProc(path string) error {
	return unix.Mount("proc", path, "proc", 0, "")
}

func mountTmpfs(path string) error {
	return unix.Mount("tmpfs", path, "tmpfs", 0, "")
}

func doChroot(root string) error {
	if err := unix.Chroot(root); err != nil {
		return err
	}
	return unix.Chdir("/")
}
