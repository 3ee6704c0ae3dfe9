package capture

import (
	"errors"
	"fmt"

	"gesture-capture/pkg/camera"
)

type Category string

const (
	DeviceBusy       Category = "DeviceBusy"
	PermissionDenied Category = "PermissionDenied"
	DeviceNotFound   Category = "DeviceNotFound"
	Unknown          Category = "Unknown"

	// logged and skipped, never surfaced through Status
	EncodeFailure  Category = "EncodeFailure"
	ReleaseFailure Category = "ReleaseFailure"
)

const DefaultLocale = "en"

var messages = map[string]map[Category]string{
	"en": {
		DeviceBusy:       "The camera is in use by another application. Close it and try again.",
		PermissionDenied: "Camera access was denied. Allow camera access and try again.",
		DeviceNotFound:   "No camera was found. Connect a camera and try again.",
		Unknown:          "The camera could not be started. Try again.",
	},
	"zh": {
		DeviceBusy:       "摄像头正被其他程序占用，请关闭后重试。",
		PermissionDenied: "摄像头访问被拒绝，请授予权限后重试。",
		DeviceNotFound:   "未检测到摄像头，请连接后重试。",
		Unknown:          "无法启动摄像头，请重试。",
	},
}

// Locales lists the languages Message can render.
func Locales() []string {
	return []string{"en", "zh"}
}

// Message returns the user-facing text for c, falling back to English.
func Message(c Category, locale string) string {
	if m, ok := messages[locale][c]; ok {
		return m
	}
	if m, ok := messages[DefaultLocale][c]; ok {
		return m
	}
	return messages[DefaultLocale][Unknown]
}

// Classify maps a terminal acquisition error to a Category.
func Classify(err error) Category {
	err = camera.WrapOpenError(err)
	switch {
	case err == nil:
		return Unknown
	case errors.Is(err, camera.ErrBusy):
		return DeviceBusy
	case errors.Is(err, camera.ErrPermission):
		return PermissionDenied
	case errors.Is(err, camera.ErrNotFound):
		return DeviceNotFound
	}
	return Unknown
}

// Error is the classified failure kept while a session is Failed.
type Error struct {
	Category Category `json:"category"`
	Message  string   `json:"message"`
	Err      error    `json:"-"`
}

func newError(err error, locale string) *Error {
	c := Classify(err)
	return &Error{Category: c, Message: Message(c, locale), Err: err}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Category, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
