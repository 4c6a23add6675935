package pty

import (
	"fmt"
	"os"
	"os/exec"

	ptylib "github.com/creack/pty"
	"github.com/google/uuid"
)

// Options describe the shell to launch. Zero values fall back to the
// process environment.
type Options struct {
	// Shell overrides $SHELL.
	Shell string
	// Term is exported as TERM.
	Term string
	// Dir is the shell's working directory; empty inherits ours.
	Dir string
	// ExtraPaths follow the built-in PATH directories.
	ExtraPaths []string
	// Env holds extra variables for the shell.
	Env map[string]string
	// Environ is the inherited environment; nil means os.Environ().
	Environ []string
}

// ShellSpec is everything needed to exec the shell.
type ShellSpec struct {
	Path string
	Argv []string
	Env  []string
	Dir  string
}

// BuildSpec resolves the shell and its environment for session id.
func BuildSpec(id string, opts Options) (ShellSpec, error) {
	shellPath, err := DetectShell(opts.Shell)
	if err != nil {
		return ShellSpec{}, fmt.Errorf("shell detection failed: %w", err)
	}

	environ := opts.Environ
	if environ == nil {
		environ = os.Environ()
	}
	home, _ := lookupEnv(environ, "HOME")

	env := BuildEnv(environ, EnvOptions{
		Term:      opts.Term,
		Paths:     RequiredPaths(home, opts.ExtraPaths),
		Extra:     opts.Env,
		SessionID: id,
	})

	return ShellSpec{
		Path: shellPath,
		// Login and interactive, so profiles are sourced as in a terminal.
		Argv: []string{shellPath, "-l", "-i"},
		Env:  env,
		Dir:  opts.Dir,
	}, nil
}

// SpawnShell starts a login shell on a new PTY. The returned session owns
// the PTY master; the shell process is not waited on.
func SpawnShell(opts Options) (*Session, error) {
	id := uuid.New().String()

	spec, err := BuildSpec(id, opts)
	if err != nil {
		return nil, err
	}
	return Start(id, spec)
}

// Start execs spec as the session leader of a new PTY whose slave side
// becomes the child's stdin, stdout and stderr.
func Start(id string, spec ShellSpec) (*Session, error) {
	cmd := &exec.Cmd{
		Path: spec.Path,
		Args: spec.Argv,
		Env:  spec.Env,
		Dir:  spec.Dir,
	}

	ptyFile, err := ptylib.Start(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to start PTY: %w", err)
	}

	return &Session{
		ID:  id,
		Cmd: cmd,
		Pty: ptyFile,
	}, nil
}
