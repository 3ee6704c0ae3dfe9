// Package config loads the service configuration from YAML on top of the
// built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"gesture-capture/pkg/camera"
	"gesture-capture/pkg/capture"
	"gesture-capture/pkg/types"
	"gesture-capture/pkg/utils"
)

// Duration accepts either a Go duration string ("300ms") or a plain integer
// of milliseconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	var ms int
	if err := n.Decode(&ms); err == nil {
		*d = Duration(utils.MsToDuration(ms))
		return nil
	}
	var s string
	if err := n.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d Duration) D() time.Duration {
	return time.Duration(d)
}

type Config struct {
	Server  Server  `yaml:"server"`
	Log     Log     `yaml:"log"`
	Camera  Camera  `yaml:"camera"`
	Session Session `yaml:"session"`
}

type Server struct {
	Addr    string   `yaml:"addr"`
	Origins []string `yaml:"origins"`
}

type Log struct {
	Level string `yaml:"level"`
}

type Camera struct {
	Driver      string                       `yaml:"driver"`
	Device      string                       `yaml:"device"`
	Devices     map[types.Orientation]string `yaml:"devices"`
	FPS         int                          `yaml:"fps"`
	PixelFormat string                       `yaml:"pixelFormat"`
	BufferSize  int                          `yaml:"bufferSize"`
	// Settings are V4L2 control id to value pairs applied after open.
	Settings types.CameraSettings `yaml:"settings"`
}

type Session struct {
	Width       int    `yaml:"width"`
	Height      int    `yaml:"height"`
	Orientation string `yaml:"orientation"`

	SettleDelay  Duration `yaml:"settleDelay"`
	GraceDelay   Duration `yaml:"graceDelay"`
	BackoffStep  Duration `yaml:"backoffStep"`
	MaxAttempts  int      `yaml:"maxAttempts"`
	SamplePeriod Duration `yaml:"samplePeriod"`
	Quality      int      `yaml:"quality"`
	Locale       string   `yaml:"locale"`

	// AutoActivate starts acquisition as soon as the service is up.
	AutoActivate bool `yaml:"autoActivate"`
}

func Default() Config {
	c := capture.DefaultConfig()
	return Config{
		Server: Server{
			Addr:    ":9999",
			Origins: []string{"*"},
		},
		Log: Log{Level: "info"},
		Camera: Camera{
			Driver:      "v4l2",
			Device:      camera.DefaultDevice,
			FPS:         camera.DefaultFPS,
			PixelFormat: "mjpeg",
			BufferSize:  2,
		},
		Session: Session{
			Width:        c.Constraints.Width,
			Height:       c.Constraints.Height,
			Orientation:  string(c.Constraints.Orientation),
			SettleDelay:  Duration(c.SettleDelay),
			GraceDelay:   Duration(c.GraceDelay),
			BackoffStep:  Duration(c.BackoffStep),
			MaxAttempts:  c.MaxAttempts,
			SamplePeriod: Duration(c.SamplePeriod),
			Quality:      c.Quality,
			Locale:       c.Locale,
		},
	}
}

// Load reads path over the defaults. An empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var err error
	if c.Server.Addr == "" {
		err = multierr.Append(err, errors.New("server.addr is empty"))
	}
	if !knownDriver(c.Camera.Driver) {
		err = multierr.Append(err, fmt.Errorf("camera.driver %q is not one of %v", c.Camera.Driver, camera.Drivers()))
	}
	if c.Camera.FPS < 0 {
		err = multierr.Append(err, fmt.Errorf("camera.fps %d is negative", c.Camera.FPS))
	}

	s := c.Session
	if s.Width < 0 || s.Height < 0 {
		err = multierr.Append(err, fmt.Errorf("session size %dx%d is negative", s.Width, s.Height))
	}
	if _, e := types.ParseOrientation(s.Orientation); e != nil {
		err = multierr.Append(err, e)
	}
	if s.SettleDelay < 0 || s.GraceDelay < 0 || s.BackoffStep < 0 {
		err = multierr.Append(err, errors.New("session delays must not be negative"))
	}
	if s.MaxAttempts < 1 {
		err = multierr.Append(err, fmt.Errorf("session.maxAttempts %d is less than 1", s.MaxAttempts))
	}
	if s.SamplePeriod <= 0 {
		err = multierr.Append(err, fmt.Errorf("session.samplePeriod %s must be positive", s.SamplePeriod.D()))
	}
	if s.Quality < 1 || s.Quality > 100 {
		err = multierr.Append(err, fmt.Errorf("session.quality %d is out of [1,100]", s.Quality))
	}
	if !knownLocale(s.Locale) {
		err = multierr.Append(err, fmt.Errorf("session.locale %q is not one of %v", s.Locale, capture.Locales()))
	}

	return err
}

// Capture converts the session section; call Validate first.
func (c Config) Capture() capture.Config {
	s := c.Session
	orientation, _ := types.ParseOrientation(s.Orientation)
	return capture.Config{
		Constraints: types.Constraints{
			Width:       s.Width,
			Height:      s.Height,
			Orientation: orientation,
		},
		SettleDelay:  s.SettleDelay.D(),
		GraceDelay:   s.GraceDelay.D(),
		BackoffStep:  s.BackoffStep.D(),
		MaxAttempts:  s.MaxAttempts,
		SamplePeriod: s.SamplePeriod.D(),
		Quality:      s.Quality,
		Locale:       s.Locale,
	}
}

func (c Config) CameraOptions() camera.Options {
	return camera.Options{
		Device:      c.Camera.Device,
		Devices:     c.Camera.Devices,
		FPS:         c.Camera.FPS,
		PixelFormat: c.Camera.PixelFormat,
		BufferSize:  c.Camera.BufferSize,
		Settings:    c.Camera.Settings,
	}
}

func knownDriver(name string) bool {
	for _, d := range camera.Drivers() {
		if d == name {
			return true
		}
	}
	return false
}

func knownLocale(l string) bool {
	for _, v := range capture.Locales() {
		if v == l {
			return true
		}
	}
	return false
}
