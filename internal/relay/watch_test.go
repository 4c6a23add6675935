package relay

import (
	"os"
	"testing"

	"golang.org/x/sys/unix"
)

func TestWatchSetRemovesOnlyOptionalSources(t *testing.T) {
	files := make([]*os.File, 0, 3)
	for i := 0; i < 3; i++ {
		r, w, err := os.Pipe()
		if err != nil {
			t.Fatalf("pipe: %v", err)
		}
		defer r.Close()
		defer w.Close()
		files = append(files, r)
	}

	watch := &watchSet{}
	watch.add(rolePTY, files[0], false)
	watch.add(roleInput, files[1], false)
	watch.add(roleResize, files[2], true)

	fds := watch.pollFds(nil)
	if len(fds) != 3 {
		t.Fatalf("pollFds() has %d entries, want 3", len(fds))
	}
	for i, f := range files {
		if fds[i].Fd != int32(f.Fd()) || fds[i].Events != unix.POLLIN {
			t.Errorf("entry %d = %+v", i, fds[i])
		}
	}

	if watch.remove(rolePTY) || watch.remove(roleInput) {
		t.Fatal("required source removed")
	}
	if !watch.remove(roleResize) {
		t.Fatal("optional source not removed")
	}
	fds = watch.pollFds(fds[:0])
	if len(fds) != 2 || fds[0].Fd != int32(files[0].Fd()) || fds[1].Fd != int32(files[1].Fd()) {
		t.Fatalf("pollFds() after removal = %+v", fds)
	}
	if watch.remove(roleResize) {
		t.Fatal("removed a source twice")
	}
}

func TestWatchSetReady(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()

	watch := &watchSet{}
	watch.add(rolePTY, r, false)
	watch.add(roleInput, r, false)
	watch.add(roleResize, r, true)

	fds := []unix.PollFd{
		{Revents: unix.POLLIN},
		{Revents: 0},
		{Revents: unix.POLLHUP},
	}
	got := watch.ready(fds)
	if len(got) != 2 || got[0] != rolePTY || got[1] != roleResize {
		t.Errorf("ready() = %v, want [pty resize]", got)
	}
}

func TestRoleString(t *testing.T) {
	for role, want := range map[Role]string{rolePTY: "pty", roleInput: "input", roleResize: "resize", Role(9): "unknown"} {
		if got := role.String(); got != want {
			t.Errorf("Role(%d).String() = %q, want %q", int(role), got, want)
		}
	}
}
