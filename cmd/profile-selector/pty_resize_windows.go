//go:build windows

package main

import "os"

// watchPTYResize only seeds the size on Windows; there is no SIGWINCH.
func watchPTYResize(ptmx *os.File) (stop func()) {
	syncPTYSize(ptmx)
	return func() {}
}

func syncPTYSize(*os.File) {}
