package pty

import (
	"os"
	"os/exec"
)

// Session is a shell running on a PTY.
type Session struct {
	ID  string
	Cmd *exec.Cmd
	// Pty is the master side. The relay is its only reader and writer.
	Pty *os.File
}

// Pid returns the shell's process id.
func (s *Session) Pid() int {
	if s.Cmd == nil || s.Cmd.Process == nil {
		return 0
	}
	return s.Cmd.Process.Pid
}

// Close closes the PTY master. The kernel hangs up the shell once the last
// master reference is gone; reaping it is left to our parent.
func (s *Session) Close() error {
	if s.Pty == nil {
		return nil
	}
	err := s.Pty.Close()
	s.Pty = nil
	return err
}
