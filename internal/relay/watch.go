package relay

import (
	"os"

	"golang.org/x/sys/unix"
)

// Role says what a watched descriptor carries.
type Role int

const (
	rolePTY Role = iota
	roleInput
	roleResize
)

func (r Role) String() string {
	switch r {
	case rolePTY:
		return "pty"
	case roleInput:
		return "input"
	case roleResize:
		return "resize"
	default:
		return "unknown"
	}
}

type source struct {
	role Role
	file *os.File
	fd   int32
	// optional sources may leave the set while the relay keeps running.
	optional bool
}

// watchSet is the relay's list of polled descriptors.
type watchSet struct {
	sources []source
}

func (w *watchSet) add(role Role, file *os.File, optional bool) {
	w.sources = append(w.sources, source{
		role:     role,
		file:     file,
		fd:       int32(file.Fd()),
		optional: optional,
	})
}

// remove drops an optional source. Required sources stay until the relay
// itself stops, so remove reports false for them.
func (w *watchSet) remove(role Role) bool {
	for i, src := range w.sources {
		if src.role != role {
			continue
		}
		if !src.optional {
			return false
		}
		w.sources = append(w.sources[:i], w.sources[i+1:]...)
		return true
	}
	return false
}

// pollFds appends one read-interest entry per source to dst, in set order.
func (w *watchSet) pollFds(dst []unix.PollFd) []unix.PollFd {
	for _, src := range w.sources {
		dst = append(dst, unix.PollFd{Fd: src.fd, Events: unix.POLLIN})
	}
	return dst
}

// ready returns the roles whose entries in fds reported an event. Hangups
// and errors count: the following read reports what happened.
func (w *watchSet) ready(fds []unix.PollFd) []Role {
	var roles []Role
	for i, pfd := range fds {
		if pfd.Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0 {
			roles = append(roles, w.sources[i].role)
		}
	}
	return roles
}
