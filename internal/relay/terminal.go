package relay

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"
)

// MakeRaw puts f in raw mode when it is a terminal, so keystrokes reach the
// shell unprocessed. The returned function restores the previous mode. For
// anything else both the call and the restore are no-ops.
func MakeRaw(f *os.File) (restore func() error, err error) {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return func() error { return nil }, nil
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	return func() error { return term.Restore(fd, state) }, nil
}

// WatchTerminalSize feeds the window size of the terminal tty into a pipe,
// once immediately and again on every SIGWINCH. The read end is returned
// for use as the relay's resize channel; stop ends the watcher and closes
// the write end.
func WatchTerminalSize(tty *os.File, logger *slog.Logger) (resize *os.File, stop func(), err error) {
	reader, writer, err := os.Pipe()
	if err != nil {
		return nil, nil, err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGWINCH)
	done := make(chan struct{})
	finished := make(chan struct{})

	send := func() bool {
		ws, err := GetWinsize(tty)
		if err != nil {
			logger.Debug("read terminal size", "error", err)
			return true
		}
		record, _ := ws.MarshalBinary()
		if _, err := writer.Write(record); err != nil {
			logger.Debug("forward terminal size", "error", err)
			return false
		}
		return true
	}

	go func() {
		defer close(finished)
		if !send() {
			return
		}
		for {
			select {
			case <-sigCh:
				if !send() {
					return
				}
			case <-done:
				return
			}
		}
	}()

	stop = func() {
		signal.Stop(sigCh)
		close(done)
		writer.Close()
		<-finished
	}
	return reader, stop, nil
}
