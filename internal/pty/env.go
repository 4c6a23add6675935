package pty

import (
	"path/filepath"
	"sort"
	"strings"
)

// SessionEnvVar carries the bridge session id into the shell.
const SessionEnvVar = "PTYBRIDGE_SESSION"

// systemPaths are always placed at the front of the shell's PATH.
var systemPaths = []string{
	"/usr/local/bin",
	"/opt/homebrew/bin",
	"/usr/bin",
	"/bin",
	"/usr/sbin",
	"/sbin",
}

// homePaths are user-level bin directories, relative to $HOME.
var homePaths = []string{
	".npm-global/bin",
	".yarn/bin",
}

// RequiredPaths returns the ordered list of directories prepended to PATH:
// the system directories, the per-user ones under home (when home is set),
// then extra.
func RequiredPaths(home string, extra []string) []string {
	paths := make([]string, 0, len(systemPaths)+len(homePaths)+len(extra))
	paths = append(paths, systemPaths...)
	if home != "" {
		for _, rel := range homePaths {
			paths = append(paths, filepath.Join(home, rel))
		}
	}
	return append(paths, extra...)
}

// MergePath puts required ahead of the entries of inherited, keeping the
// first occurrence of every directory. Empty entries are dropped.
func MergePath(required []string, inherited string) string {
	var entries []string
	if inherited != "" {
		entries = strings.Split(inherited, string(filepath.ListSeparator))
	}

	seen := make(map[string]struct{}, len(required)+len(entries))
	merged := make([]string, 0, len(required)+len(entries))
	for _, list := range [][]string{required, entries} {
		for _, dir := range list {
			if dir == "" {
				continue
			}
			if _, dup := seen[dir]; dup {
				continue
			}
			seen[dir] = struct{}{}
			merged = append(merged, dir)
		}
	}
	return strings.Join(merged, string(filepath.ListSeparator))
}

// EnvOptions controls how the shell environment is derived from ours.
type EnvOptions struct {
	// Term is forced as TERM.
	Term string
	// Paths are the directories placed ahead of the inherited PATH.
	Paths []string
	// Extra variables are set before TERM and PATH are applied.
	Extra map[string]string
	// SessionID is exported as SessionEnvVar when non-empty.
	SessionID string
}

// BuildEnv returns a copy of environ with the options applied. environ is
// in os.Environ form and is not modified.
func BuildEnv(environ []string, opts EnvOptions) []string {
	env := make([]string, len(environ))
	copy(env, environ)

	keys := make([]string, 0, len(opts.Extra))
	for key := range opts.Extra {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		env = setEnv(env, key, opts.Extra[key])
	}

	if opts.Term != "" {
		env = setEnv(env, "TERM", opts.Term)
	}

	inherited, _ := lookupEnv(env, "PATH")
	env = setEnv(env, "PATH", MergePath(opts.Paths, inherited))

	if opts.SessionID != "" {
		env = setEnv(env, SessionEnvVar, opts.SessionID)
	}
	return env
}

// lookupEnv returns the last value of key in env, matching exec.Cmd's
// handling of duplicates.
func lookupEnv(env []string, key string) (string, bool) {
	prefix := key + "="
	for i := len(env) - 1; i >= 0; i-- {
		if strings.HasPrefix(env[i], prefix) {
			return env[i][len(prefix):], true
		}
	}
	return "", false
}

// setEnv replaces every entry for key with a single key=value entry,
// keeping the position of the first one.
func setEnv(env []string, key, value string) []string {
	prefix := key + "="
	entry := prefix + value
	out := env[:0]
	replaced := false
	for _, kv := range env {
		if !strings.HasPrefix(kv, prefix) {
			out = append(out, kv)
			continue
		}
		if !replaced {
			out = append(out, entry)
			replaced = true
		}
	}
	if !replaced {
		out = append(out, entry)
	}
	return out
}
