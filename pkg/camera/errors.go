package camera

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"
)

// WrapOpenError tags a driver error with ErrBusy, ErrPermission or
// ErrNotFound when it recognises one. Unrecognised errors pass through.
func WrapOpenError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrBusy), errors.Is(err, ErrPermission), errors.Is(err, ErrNotFound):
		return err
	case isBusyErr(err):
		return fmt.Errorf("%w: %w", ErrBusy, err)
	case isPermissionErr(err):
		return fmt.Errorf("%w: %w", ErrPermission, err)
	case isNotFoundErr(err):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}

func isBusyErr(err error) bool {
	if errors.Is(err, syscall.EBUSY) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "busy") || strings.Contains(s, "ebusy")
}

func isPermissionErr(err error) bool {
	if errors.Is(err, os.ErrPermission) || errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "permission denied") || strings.Contains(s, "not permitted")
}

func isNotFoundErr(err error) bool {
	if errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ENOENT) ||
		errors.Is(err, syscall.ENODEV) || errors.Is(err, syscall.ENXIO) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "no such file") || strings.Contains(s, "no such device")
}
