// Package relay copies bytes between a PTY master and the controlling
// process, and applies window-size records from a side channel.
//
// A Relay runs on a single goroutine. It waits with poll(2) until the PTY
// master, the input stream or the resize channel is readable, then serves
// whichever fired:
//
//   - PTY output is written in full to the output stream.
//   - Input is written in full to the PTY master.
//   - Each 8-byte resize record is applied to the PTY's window size.
//
// End of file on the PTY or on the input stops the relay cleanly, as does a
// broken output pipe. Losing the resize channel only disables live resize.
package relay

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/sys/unix"
)

// ChunkSize bounds a single read from the PTY or the input stream.
const ChunkSize = 32 * 1024

// Relay bridges one PTY session.
type Relay struct {
	master *os.File
	input  *os.File
	output io.Writer
	resize *os.File
	logger *slog.Logger

	record [RecordSize]byte
	filled int
}

// Option configures a Relay.
type Option func(*Relay)

// WithResize sets the descriptor carrying window-size records. The relay
// takes ownership and closes it when the channel is dropped or Run returns.
func WithResize(f *os.File) Option {
	return func(r *Relay) {
		r.resize = f
	}
}

// WithLogger sets the logger used for non-fatal events.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		r.logger = logger
	}
}

// New creates a relay between the PTY master and the controlling process's
// input and output.
func New(master, input *os.File, output io.Writer, opts ...Option) *Relay {
	r := &Relay{
		master: master,
		input:  input,
		output: output,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run relays until the PTY or the input stream closes, returning nil, or
// until an I/O error that cannot be recovered from, returning that error.
// Signals interrupting the wait are retried.
func (r *Relay) Run() error {
	defer r.closeResize()

	watch := &watchSet{}
	watch.add(rolePTY, r.master, false)
	watch.add(roleInput, r.input, false)
	if r.resize != nil {
		watch.add(roleResize, r.resize, true)
	}

	buf := make([]byte, ChunkSize)
	var fds []unix.PollFd
	for {
		fds = watch.pollFds(fds[:0])
		if _, err := unix.Poll(fds, -1); err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("wait for readiness: %w", err)
		}

		for _, role := range watch.ready(fds) {
			var (
				done bool
				err  error
			)
			switch role {
			case rolePTY:
				done, err = r.fromPTY(buf)
			case roleInput:
				done, err = r.fromInput(buf)
			case roleResize:
				if r.fromResize() && watch.remove(roleResize) {
					r.logger.Debug("watch source dropped", "role", roleResize)
					r.closeResize()
				}
			}
			if err != nil {
				return err
			}
			if done {
				return nil
			}
		}
	}
}

// fromPTY moves one chunk of shell output to the output stream.
func (r *Relay) fromPTY(buf []byte) (bool, error) {
	n, err := r.master.Read(buf)
	if n > 0 {
		if werr := r.writeOutput(buf[:n]); werr != nil {
			if isClosedPipe(werr) {
				r.logger.Debug("output closed", "error", werr)
				return true, nil
			}
			return false, fmt.Errorf("write output: %w", werr)
		}
	}
	if err == nil {
		return false, nil
	}

	switch {
	case isTransient(err):
		return false, nil
	case errors.Is(err, io.EOF), isClosedPipe(err):
		r.logger.Debug("pty closed", "error", err)
		return true, nil
	default:
		return false, fmt.Errorf("read pty: %w", err)
	}
}

func (r *Relay) writeOutput(p []byte) error {
	if err := writeFull(r.output, p); err != nil {
		return err
	}
	if f, ok := r.output.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// fromInput moves one chunk of input to the PTY master.
func (r *Relay) fromInput(buf []byte) (bool, error) {
	n, err := r.input.Read(buf)
	if n > 0 {
		if werr := writeFull(r.master, buf[:n]); werr != nil {
			if isClosedPipe(werr) {
				r.logger.Debug("pty closed during write", "error", werr)
				return true, nil
			}
			return false, fmt.Errorf("write pty: %w", werr)
		}
	}
	if err == nil {
		return false, nil
	}

	switch {
	case isTransient(err):
		return false, nil
	case errors.Is(err, io.EOF):
		r.logger.Debug("input closed")
		return true, nil
	default:
		return false, fmt.Errorf("read input: %w", err)
	}
}

// fromResize reads toward the next window-size record and applies it once
// complete. It reports whether the channel should be dropped.
func (r *Relay) fromResize() bool {
	n, err := r.resize.Read(r.record[r.filled:])
	r.filled += n
	if r.filled == RecordSize {
		r.filled = 0
		ws, _ := DecodeWinsize(r.record[:])
		if aerr := ws.Apply(r.master); aerr != nil {
			r.logger.Warn("apply window size", "rows", ws.Rows, "cols", ws.Cols, "error", aerr)
		} else {
			r.logger.Debug("window size applied", "rows", ws.Rows, "cols", ws.Cols)
		}
	}
	if err == nil {
		return false
	}

	switch {
	case isTransient(err):
		return false
	case errors.Is(err, io.EOF):
		r.logger.Debug("resize channel closed")
		return true
	default:
		r.logger.Warn("resize channel failed, live resize disabled", "error", err)
		return true
	}
}

func (r *Relay) closeResize() {
	if r.resize == nil {
		return
	}
	if err := r.resize.Close(); err != nil {
		r.logger.Debug("close resize channel", "error", err)
	}
	r.resize = nil
	r.filled = 0
}

// isTransient reports errors that only mean "try again".
func isTransient(err error) bool {
	return errors.Is(err, unix.EINTR) || errors.Is(err, unix.EAGAIN)
}

// isClosedPipe reports errors meaning the other side went away: EIO from a
// PTY master whose slave is closed, EPIPE from a pipe without readers.
func isClosedPipe(err error) bool {
	return errors.Is(err, unix.EIO) || errors.Is(err, unix.EPIPE) || errors.Is(err, io.ErrClosedPipe)
}
