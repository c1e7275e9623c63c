//go:build !linux && !darwin && !windows

package cli

func isTerminal(fd uintptr) bool {
	return false
}
