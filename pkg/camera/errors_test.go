package camera

import (
	"errors"
	"fmt"
	"io/fs"
	"syscall"
	"testing"
)

func TestWrapOpenError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"ebusy", fmt.Errorf("device open: %w", syscall.EBUSY), ErrBusy},
		{"busy text", errors.New("VIDIOC_STREAMON: device or resource busy"), ErrBusy},
		{"eacces", &fs.PathError{Op: "open", Path: "/dev/video0", Err: syscall.EACCES}, ErrPermission},
		{"eperm", syscall.EPERM, ErrPermission},
		{"enoent", &fs.PathError{Op: "open", Path: "/dev/video9", Err: syscall.ENOENT}, ErrNotFound},
		{"enodev", syscall.ENODEV, ErrNotFound},
		{"already tagged", fmt.Errorf("x: %w", ErrBusy), ErrBusy},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := WrapOpenError(c.err)
			if !errors.Is(got, c.want) {
				t.Fatalf("WrapOpenError(%v) = %v, want %v", c.err, got, c.want)
			}
			if !errors.Is(got, c.err) && !errors.Is(c.err, c.want) {
				t.Fatalf("original error lost: %v", got)
			}
		})
	}

	plain := errors.New("something else")
	if got := WrapOpenError(plain); got != plain {
		t.Fatalf("unknown error rewritten: %v", got)
	}
	if WrapOpenError(nil) != nil {
		t.Fatal("nil became non-nil")
	}
}
