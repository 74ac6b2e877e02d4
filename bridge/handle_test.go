package bridge

import (
	"testing"

	"golang.org/x/sys/unix"
)

func openNull(t *testing.T) int {
	t.Helper()
	fd, err := unix.Open("/dev/null", unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		t.Fatalf("open /dev/null: %v", err)
	}
	return fd
}

func TestHandleValid(t *testing.T) {
	fd := openNull(t)
	h := NewHandle(fd, 4096, Extent{2, 2}, FormatRGBA8SRGB, DeviceIDs{})
	if !h.Valid() {
		t.Fatal("open fd reported invalid")
	}
	unix.Close(fd)
	if h.Valid() {
		t.Error("closed fd reported valid")
	}
	if (Handle{fd: -1}).Valid() {
		t.Error("negative fd reported valid")
	}
}

func TestHandleDup(t *testing.T) {
	fd := openNull(t)
	defer unix.Close(fd)

	h := NewHandle(fd, 4096, Extent{2, 2}, FormatRGBA8SRGB, DeviceIDs{})
	dup, err := h.Dup()
	if err != nil {
		t.Fatalf("Dup: %v", err)
	}
	if dup == fd {
		t.Fatal("Dup returned the original fd")
	}
	flags, err := unix.FcntlInt(uintptr(dup), unix.F_GETFD, 0)
	if err != nil {
		t.Fatalf("F_GETFD on dup: %v", err)
	}
	if flags&unix.FD_CLOEXEC == 0 {
		t.Error("dup is not close-on-exec")
	}

	unix.Close(dup)
	if !h.Valid() {
		t.Error("closing the dup closed the original")
	}
}

func TestHandleDupInvalid(t *testing.T) {
	if _, err := (Handle{fd: -1}).Dup(); err == nil {
		t.Error("expected error for negative fd")
	}
}
