package pty

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestBuildSpec(t *testing.T) {
	spec, err := BuildSpec("session-1", Options{
		Shell:   "/bin/sh",
		Term:    "xterm-256color",
		Dir:     "/tmp",
		Environ: []string{"HOME=/home/dev", "PATH=/usr/bin:/custom/bin"},
	})
	if err != nil {
		t.Fatalf("BuildSpec: %v", err)
	}

	if spec.Path != "/bin/sh" {
		t.Errorf("Path = %q", spec.Path)
	}
	if strings.Join(spec.Argv, " ") != "/bin/sh -l -i" {
		t.Errorf("Argv = %q, want login interactive flags", spec.Argv)
	}
	if spec.Dir != "/tmp" {
		t.Errorf("Dir = %q", spec.Dir)
	}

	path, _ := lookupEnv(spec.Env, "PATH")
	if !strings.HasPrefix(path, "/usr/local/bin:/opt/homebrew/bin:/usr/bin:") ||
		!strings.HasSuffix(path, ":/home/dev/.npm-global/bin:/home/dev/.yarn/bin:/custom/bin") {
		t.Errorf("PATH = %q", path)
	}
	if term, _ := lookupEnv(spec.Env, "TERM"); term != "xterm-256color" {
		t.Errorf("TERM = %q", term)
	}
	if id, _ := lookupEnv(spec.Env, SessionEnvVar); id != "session-1" {
		t.Errorf("%s = %q", SessionEnvVar, id)
	}
}

func TestBuildSpecBadShell(t *testing.T) {
	if _, err := BuildSpec("x", Options{Shell: "/nonexistent/shell"}); err == nil {
		t.Fatal("BuildSpec succeeded with a missing shell")
	}
}

func TestStartRunsOnPTY(t *testing.T) {
	sess, err := Start("session-2", ShellSpec{
		Path: "/bin/sh",
		Argv: []string{"/bin/sh", "-c", `test -t 0 && printf "tty:$PTYBRIDGE_SESSION"`},
		Env:  []string{"PTYBRIDGE_SESSION=session-2"},
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer sess.Close()
	defer sess.Cmd.Wait()

	if sess.Pid() == 0 {
		t.Error("Pid() = 0 for a running session")
	}

	output := make(chan string, 1)
	go func() {
		var collected bytes.Buffer
		buf := make([]byte, 1024)
		for {
			n, err := sess.Pty.Read(buf)
			collected.Write(buf[:n])
			if err != nil || strings.Contains(collected.String(), "tty:session-2") {
				output <- collected.String()
				return
			}
		}
	}()

	select {
	case got := <-output:
		if !strings.Contains(got, "tty:session-2") {
			t.Errorf("output = %q, want tty:session-2", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for shell output")
	}
}

func TestStartFailure(t *testing.T) {
	_, err := Start("x", ShellSpec{Path: "/nonexistent/shell", Argv: []string{"shell"}})
	if err == nil {
		t.Fatal("Start succeeded with a missing executable")
	}
}

func TestSessionCloseIdempotent(t *testing.T) {
	sess := &Session{}
	if err := sess.Close(); err != nil {
		t.Errorf("Close on empty session: %v", err)
	}
	if sess.Pid() != 0 {
		t.Errorf("Pid() = %d, want 0", sess.Pid())
	}
}
