//go:build unix && !linux

package fsx

func renameNoReplace(src, dst string) error {
	return linkNoReplace(src, dst)
}
