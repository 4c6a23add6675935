// ptybridge runs an interactive login shell on a pseudo-terminal and
// relays it over the standard streams: stdin is typed into the shell, and
// everything the shell prints is copied verbatim to stdout.
//
// Window-size changes arrive out of band on descriptor 3 as 8-byte records
// (rows, columns, pixel width, pixel height; native-endian uint16 each).
// When that descriptor is absent and stdin is a terminal, the size of that
// terminal is followed instead.
//
// Exit status is 0 when the shell or the input stream ends, 1 when the
// relay fails, and 2 when the shell cannot be started.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/PiranhaCodes/ptybridge/internal/config"
	"github.com/PiranhaCodes/ptybridge/internal/pty"
	"github.com/PiranhaCodes/ptybridge/internal/relay"
)

const (
	exitOK      = 0
	exitRelay   = 1
	exitStartup = 2
)

// maxTrackedFD bounds the descriptors recorded at startup.
const maxTrackedFD = 64

// inheritedFDs records which descriptors above stderr were open when the
// process started, before the runtime or the config loader took any.
var inheritedFDs map[int]bool

func init() {
	inheritedFDs = make(map[int]bool, maxTrackedFD-3)
	for fd := 3; fd < maxTrackedFD; fd++ {
		inheritedFDs[fd] = relay.Inherited(fd)
	}
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flagSet := pflag.NewFlagSet("ptybridge", pflag.ContinueOnError)
	configPath := flagSet.String("config", config.DefaultPath, "path to configuration file")
	resizeFD := flagSet.Int("resize-fd", config.DefaultResizeFD, "descriptor carrying window-size records (negative disables)")
	termName := flagSet.String("term", "", "TERM exported to the shell (default "+config.DefaultTerm+")")
	logLevel := flagSet.String("log-level", "", "stderr log level: debug, info, warn, error (default "+config.DefaultLogLevel+")")
	flagSet.Usage = func() { printHelp(flagSet) }

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(os.Stderr, "ptybridge: %v\n", err)
		return exitStartup
	}
	if flagSet.NArg() > 1 {
		fmt.Fprintf(os.Stderr, "ptybridge: unexpected argument: %s\n", flagSet.Arg(1))
		return exitStartup
	}

	cfg, err := loadConfig(flagSet, *configPath, *resizeFD, *termName, *logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ptybridge: %v\n", err)
		return exitStartup
	}

	level, _ := config.ParseLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	shell := cfg.Shell
	if flagSet.NArg() == 1 {
		shell = flagSet.Arg(0)
	}
	dir, err := config.ExpandPath(cfg.Dir)
	if err != nil {
		logger.Error("expand working directory", "error", err)
		return exitStartup
	}

	// A closed stdout must surface as EPIPE, not kill the process.
	signal.Notify(make(chan os.Signal, 1), syscall.SIGPIPE)

	// Opened before the shell starts so the descriptor is not inherited.
	resize := openResizeChannel(*cfg.ResizeFD, inheritedFDs, logger)

	sess, err := pty.SpawnShell(pty.Options{
		Shell:      shell,
		Term:       cfg.Term,
		Dir:        dir,
		ExtraPaths: cfg.Paths,
		Env:        cfg.Env,
	})
	if err != nil {
		logger.Error("spawn shell", "error", err)
		return exitStartup
	}
	defer sess.Close()

	logger = logger.With("session", sess.ID)
	logger.Info("shell started", "shell", sess.Cmd.Path, "pid", sess.Pid())

	stdinIsTerminal := term.IsTerminal(int(os.Stdin.Fd()))
	if stdinIsTerminal {
		restore, err := relay.MakeRaw(os.Stdin)
		if err != nil {
			logger.Warn("raw mode on stdin", "error", err)
		} else {
			defer restore()
		}
	}

	if resize == nil && stdinIsTerminal {
		watched, stop, err := relay.WatchTerminalSize(os.Stdin, logger)
		if err != nil {
			logger.Warn("follow terminal size", "error", err)
		} else {
			defer stop()
			resize = watched
		}
	}

	opts := []relay.Option{relay.WithLogger(logger)}
	if resize != nil {
		opts = append(opts, relay.WithResize(resize))
	}

	if err := relay.New(sess.Pty, os.Stdin, os.Stdout, opts...).Run(); err != nil {
		logger.Error("relay failed", "error", err)
		return exitRelay
	}
	logger.Info("session ended")
	return exitOK
}

// openResizeChannel adopts fd as the resize channel. A missing or unusable
// descriptor only disables live resize, so it is logged at debug.
func openResizeChannel(fd int, inherited map[int]bool, logger *slog.Logger) *os.File {
	if fd < 0 {
		return nil
	}
	if open, tracked := inherited[fd]; tracked && !open {
		logger.Debug("resize descriptor not inherited", "fd", fd)
		return nil
	}
	resize, err := relay.OpenResizeChannel(fd)
	if err != nil {
		logger.Debug("resize channel unavailable", "fd", fd, "error", err)
		return nil
	}
	if resize == nil {
		logger.Debug("resize descriptor not open", "fd", fd)
	}
	return resize
}

// loadConfig reads the configuration file and applies flag overrides.
func loadConfig(flagSet *pflag.FlagSet, path string, resizeFD int, termName, logLevel string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if flagSet.Changed("resize-fd") {
		cfg.ResizeFD = &resizeFD
	}
	if termName != "" {
		cfg.Term = termName
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `ptybridge runs a login shell on a pseudo-terminal and relays it over
stdin and stdout. Window-size records are read from descriptor 3.

Usage:
  ptybridge [flags] [shell]

The shell defaults to the config file's shell, then $SHELL, then the
first of /bin/zsh, /bin/bash, /bin/sh.

Flags:
%s`, flagSet.FlagUsages())
}
