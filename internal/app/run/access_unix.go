//go:build unix

package run

import "golang.org/x/sys/unix"

func checkAccess(dir string, write bool) error {
	mode := uint32(unix.R_OK | unix.X_OK)
	if write {
		mode |= unix.W_OK
	}
	return unix.Access(dir, mode)
}
