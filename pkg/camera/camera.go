package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sort"
	"sync"

	"go.uber.org/zap"

	"gesture-capture/pkg/types"
	"gesture-capture/pkg/utils"
)

const (
	DefaultDevice = "/dev/video0"
	DefaultFPS    = 15
)

var (
	ErrBusy       = errors.New("device busy")
	ErrNotFound   = errors.New("no capture device")
	ErrPermission = errors.New("permission denied")
	ErrNotStarted = errors.New("camera not started")

	logger *zap.SugaredLogger
)

func init() {
	logger = utils.GetLogger().Named("camera")
}

// Track is one releasable part of an open handle, e.g. the stream or the fd.
type Track interface {
	Name() string
	Stop() error
}

// Handle is an open camera. Size reports 0x0 until the first frame arrived.
type Handle interface {
	Size() (width, height int)
	// Snapshot copies the current frame into dst, whose bounds match Size.
	Snapshot(dst *image.RGBA) error
	Tracks() []Track
}

type Opener interface {
	Open(ctx context.Context, c types.Constraints) (Handle, error)
}

type OpenerFunc func(ctx context.Context, c types.Constraints) (Handle, error)

func (f OpenerFunc) Open(ctx context.Context, c types.Constraints) (Handle, error) {
	return f(ctx, c)
}

// Options configure a driver. Devices maps a facing to a device node; Device
// is used when the facing has no entry.
type Options struct {
	Device      string
	Devices     map[types.Orientation]string
	FPS         int
	PixelFormat string
	BufferSize  int
	Settings    types.CameraSettings
}

func (o Options) DevicePath(orientation types.Orientation) string {
	if p, ok := o.Devices[orientation]; ok && p != "" {
		return p
	}
	if o.Device != "" {
		return o.Device
	}
	return DefaultDevice
}

type Factory func(opts Options) (Opener, error)

var (
	driversMu sync.RWMutex
	drivers   = map[string]Factory{}
)

// Register makes a driver available to NewOpener. It panics on duplicates.
func Register(name string, f Factory) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if _, dup := drivers[name]; dup {
		panic("camera: driver registered twice: " + name)
	}
	drivers[name] = f
}

func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

func NewOpener(driver string, opts Options) (Opener, error) {
	driversMu.RLock()
	f, ok := drivers[driver]
	driversMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown camera driver %q (available: %v)", driver, Drivers())
	}

	return f(opts)
}

type funcTrack struct {
	name string
	stop func() error
}

func (t funcTrack) Name() string { return t.name }

func (t funcTrack) Stop() error { return t.stop() }

// NewTrack wraps a release function as a Track.
func NewTrack(name string, stop func() error) Track {
	return funcTrack{name: name, stop: stop}
}
