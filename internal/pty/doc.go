// Package pty launches the interactive login shell behind ptybridge: it
// resolves the shell executable, builds the child environment (TERM and an
// extended PATH), and starts the shell on a fresh pseudo-terminal.
package pty
