//go:build !unix

package fsx

func renameNoReplace(src, dst string) error {
	return checkThenRename(src, dst)
}

func isEXDEV(err error) bool { return false }
