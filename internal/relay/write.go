package relay

import (
	"errors"
	"io"

	"golang.org/x/sys/unix"
)

// writeFull writes all of p to w, retrying short writes and transient
// errors. A writer that stops making progress without an error gets
// io.ErrShortWrite.
func writeFull(w io.Writer, p []byte) error {
	for len(p) > 0 {
		n, err := w.Write(p)
		if n < 0 || n > len(p) {
			return errors.New("invalid write count")
		}
		p = p[n:]
		if err != nil {
			if isTransient(err) {
				waitWritable(w)
				continue
			}
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
	}
	return nil
}

// waitWritable blocks until w's descriptor accepts more data. Writers
// without a descriptor are retried right away.
func waitWritable(w io.Writer) {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return
	}
	fds := []unix.PollFd{{Fd: int32(f.Fd()), Events: unix.POLLOUT}}
	for {
		_, err := unix.Poll(fds, -1)
		if !errors.Is(err, unix.EINTR) {
			return
		}
	}
}
