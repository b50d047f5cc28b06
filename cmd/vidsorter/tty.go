package main

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// isTerminal 只对 *os.File 判断；测试里的 bytes.Buffer 一律视为非终端。
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
