package pty

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// fallbackShells are tried in order when neither an override nor $SHELL
// names a usable shell.
var fallbackShells = []string{
	"/bin/zsh",
	"/bin/bash",
	"/bin/sh",
}

// DetectShell resolves the shell to launch, in order of preference:
// 1. override (command-line argument or config)
// 2. $SHELL environment variable
// 3. /bin/zsh, /bin/bash, /bin/sh
//
// An override that cannot be resolved is an error; an unusable $SHELL
// falls through to the fallbacks.
func DetectShell(override string) (string, error) {
	if override != "" {
		path, err := resolveExecutable(override)
		if err != nil {
			return "", fmt.Errorf("shell %q: %w", override, err)
		}
		return path, nil
	}

	if shell := os.Getenv("SHELL"); shell != "" {
		if path, err := resolveExecutable(shell); err == nil {
			return path, nil
		}
	}

	for _, candidate := range fallbackShells {
		if isExecutable(candidate) {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("no shell found: checked $SHELL, %s", strings.Join(fallbackShells, ", "))
}

// resolveExecutable looks bare names up in PATH and checks that explicit
// paths point at an executable file.
func resolveExecutable(name string) (string, error) {
	if !strings.ContainsRune(name, '/') {
		return exec.LookPath(name)
	}
	if !isExecutable(name) {
		return "", fmt.Errorf("not an executable file")
	}
	return name, nil
}

// isExecutable reports whether path is a regular file with an execute bit.
func isExecutable(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Mode().Perm()&0o111 != 0
}
