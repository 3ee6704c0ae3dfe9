package types

import "fmt"

type Orientation string

const (
	OrientationUser        Orientation = "user"
	OrientationEnvironment Orientation = "environment"
)

func ParseOrientation(s string) (Orientation, error) {
	switch o := Orientation(s); o {
	case OrientationUser, OrientationEnvironment:
		return o, nil
	case "":
		return OrientationUser, nil
	}
	return "", fmt.Errorf("unknown orientation %q", s)
}

// Constraints are the resolution hints and facing a session opens a camera
// with. They are fixed per deployment.
type Constraints struct {
	Width       int         `json:"width" yaml:"width"`
	Height      int         `json:"height" yaml:"height"`
	Orientation Orientation `json:"orientation" yaml:"orientation"`
}

func (c Constraints) String() string {
	return fmt.Sprintf("%dx%d(%s)", c.Width, c.Height, c.Orientation)
}

// CameraSettings maps V4L2 control ids to the values applied right after a
// device is opened.
type CameraSettings map[uint32]int32

// Control describes one camera control, so operators can pick the ids
// written under camera.settings.
type Control struct {
	ID      uint32   `json:"id"`
	Name    string   `json:"name"`
	Value   int32    `json:"value"`
	Minimum int32    `json:"minimum"`
	Maximum int32    `json:"maximum"`
	Step    int32    `json:"step"`
	Default int32    `json:"default"`
	Menu    []string `json:"menu,omitempty"`
}
