package capture

import (
	"errors"
	"fmt"
	"io/fs"
	"syscall"
	"testing"

	"gesture-capture/pkg/camera"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want Category
	}{
		{syscall.EBUSY, DeviceBusy},
		{fmt.Errorf("device open: %w", syscall.EBUSY), DeviceBusy},
		{errors.New("VIDIOC_S_FMT: device or resource busy"), DeviceBusy},
		{&fs.PathError{Op: "open", Path: "/dev/video0", Err: syscall.EACCES}, PermissionDenied},
		{fs.ErrPermission, PermissionDenied},
		{&fs.PathError{Op: "open", Path: "/dev/video7", Err: syscall.ENOENT}, DeviceNotFound},
		{syscall.ENXIO, DeviceNotFound},
		{camera.ErrNotFound, DeviceNotFound},
		{errors.New("unexpected EOF"), Unknown},
		{nil, Unknown},
	}
	for _, c := range cases {
		if got := Classify(c.err); got != c.want {
			t.Errorf("Classify(%v) = %s, want %s", c.err, got, c.want)
		}
	}
}

func TestMessageFallback(t *testing.T) {
	for _, loc := range Locales() {
		for _, c := range []Category{DeviceBusy, PermissionDenied, DeviceNotFound, Unknown} {
			if Message(c, loc) == "" {
				t.Errorf("no %s message for %s", loc, c)
			}
		}
	}
	if Message(DeviceBusy, "fr") != Message(DeviceBusy, "en") {
		t.Error("unknown locale did not fall back to English")
	}
	if Message(EncodeFailure, "en") != Message(Unknown, "en") {
		t.Error("non-terminal category did not fall back to Unknown")
	}
}

func TestErrorUnwrap(t *testing.T) {
	e := newError(syscall.EBUSY, "en")
	if !errors.Is(e, syscall.EBUSY) {
		t.Fatal("classified error lost its cause")
	}
	if e.Category != DeviceBusy {
		t.Fatalf("category = %s", e.Category)
	}
}
