package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"golang.org/x/sys/unix"
)

func TestRunRejectsBadInvocations(t *testing.T) {
	absent := filepath.Join(t.TempDir(), "absent.yml")
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"help", []string{"--help"}, exitOK},
		{"unknown flag", []string{"--nope"}, exitStartup},
		{"two shells", []string{"--config", absent, "/bin/sh", "/bin/bash"}, exitStartup},
		{"bad log level", []string{"--config", absent, "--log-level", "loud"}, exitStartup},
		{"stdio resize fd", []string{"--config", absent, "--resize-fd", "0"}, exitStartup},
		{"missing shell", []string{"--config", absent, "--resize-fd", "-1", "/nonexistent/shell"}, exitStartup},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := run(tt.args); got != tt.want {
				t.Errorf("run(%q) = %d, want %d", tt.args, got, tt.want)
			}
		})
	}
}

func TestLoadConfigFlagOverrides(t *testing.T) {
	absent := filepath.Join(t.TempDir(), "absent.yml")

	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flagSet.Int("resize-fd", 3, "")
	if err := flagSet.Parse([]string{"--resize-fd", "-1"}); err != nil {
		t.Fatalf("parse: %v", err)
	}

	cfg, err := loadConfig(flagSet, absent, -1, "screen-256color", "debug")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if *cfg.ResizeFD != -1 {
		t.Errorf("ResizeFD = %d, want -1", *cfg.ResizeFD)
	}
	if cfg.Term != "screen-256color" {
		t.Errorf("Term = %q", cfg.Term)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
}

func TestLoadConfigKeepsFileValuesWithoutFlags(t *testing.T) {
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flagSet.Int("resize-fd", 3, "")
	if err := flagSet.Parse(nil); err != nil {
		t.Fatalf("parse: %v", err)
	}

	cfg, err := loadConfig(flagSet, filepath.Join(t.TempDir(), "absent.yml"), 3, "", "")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if *cfg.ResizeFD != 3 || cfg.Term != "xterm-256color" || cfg.LogLevel != "warn" {
		t.Errorf("unexpected defaults: fd=%d term=%q level=%q", *cfg.ResizeFD, cfg.Term, cfg.LogLevel)
	}
}

func TestOpenResizeChannelQuietAtWarn(t *testing.T) {
	regular, err := os.Create(filepath.Join(t.TempDir(), "regular"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer regular.Close()
	regularFD := int(regular.Fd())

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()
	pipeFD, err := unix.Dup(int(r.Fd()))
	if err != nil {
		t.Fatalf("dup: %v", err)
	}

	tests := []struct {
		name      string
		fd        int
		inherited map[int]bool
		wantFile  bool
	}{
		{"disabled", -1, nil, false},
		{"not inherited", regularFD, map[int]bool{regularFD: false}, false},
		{"not a channel", regularFD, map[int]bool{regularFD: true}, false},
		{"not open", 1 << 20, nil, false},
		{"pipe", pipeFD, map[int]bool{pipeFD: true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stderr bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

			got := openResizeChannel(tt.fd, tt.inherited, logger)
			if got != nil {
				defer got.Close()
			}
			if (got != nil) != tt.wantFile {
				t.Fatalf("openResizeChannel() = %v, want file: %v", got, tt.wantFile)
			}
			if stderr.Len() != 0 {
				t.Errorf("logged at warn level: %q", stderr.String())
			}
		})
	}
}

func TestInheritedDescriptorsRecordedAtInit(t *testing.T) {
	if len(inheritedFDs) != maxTrackedFD-3 {
		t.Fatalf("tracked %d descriptors, want %d", len(inheritedFDs), maxTrackedFD-3)
	}
	if _, ok := inheritedFDs[2]; ok {
		t.Error("standard streams are tracked")
	}
}
