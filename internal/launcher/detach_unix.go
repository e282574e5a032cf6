//go:build !windows

package launcher

import "syscall"

// detachAttr puts the daemon in its own process group so terminal signals
// aimed at the proxy do not reach it.
func detachAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}
