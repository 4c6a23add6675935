package relay

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// ErrNotResizeChannel is returned for a descriptor that cannot carry
// window-size records.
var ErrNotResizeChannel = errors.New("not a pipe, socket or character device")

// Inherited reports whether fd is open. Call it before the process opens
// any descriptor of its own, or a number the parent left free may already
// be taken by the runtime.
func Inherited(fd int) bool {
	if fd < 0 {
		return false
	}
	_, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0)
	return err == nil
}

// OpenResizeChannel wraps the inherited descriptor fd as the resize
// channel. It returns nil and no error when fd is negative or not open.
// Descriptors that are not a pipe, socket or character device are refused
// with ErrNotResizeChannel.
//
// The descriptor is marked close-on-exec to keep it out of the shell.
func OpenResizeChannel(fd int) (*os.File, error) {
	if fd < 0 {
		return nil, nil
	}

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		if errors.Is(err, unix.EBADF) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat resize descriptor %d: %w", fd, err)
	}

	switch uint32(st.Mode) & unix.S_IFMT {
	case unix.S_IFIFO, unix.S_IFSOCK, unix.S_IFCHR:
	default:
		return nil, fmt.Errorf("resize descriptor %d: %w", fd, ErrNotResizeChannel)
	}

	unix.CloseOnExec(fd)
	return os.NewFile(uintptr(fd), "resize"), nil
}
