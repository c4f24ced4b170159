//go:build !windows

package platform

import (
	"os"
	"syscall"
)

func interruptProcess(p *os.Process) error {
	return p.Signal(os.Interrupt)
}

func suspendProcess(p *os.Process) error {
	return p.Signal(syscall.SIGSTOP)
}

func continueProcess(p *os.Process) error {
	return p.Signal(syscall.SIGCONT)
}
