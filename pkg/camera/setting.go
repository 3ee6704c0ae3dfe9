//go:build linux

package camera

import (
	"fmt"

	"github.com/vladimirvivien/go4vl/device"
	"github.com/vladimirvivien/go4vl/v4l2"

	"gesture-capture/pkg/types"
)

// applySettings sets every supported control; unsupported ones are logged and skipped.
func applySettings(dev *device.Device, settings types.CameraSettings) {
	if len(settings) == 0 {
		return
	}
	ctrls, err := v4l2.QueryAllExtControls(dev.Fd())
	if err != nil {
		logger.Warnf("query controls: %s", err)
		return
	}
	known := make(map[v4l2.CtrlID]v4l2.Control, len(ctrls))
	for _, ctrl := range ctrls {
		known[ctrl.ID] = ctrl
	}

	for k, v := range settings {
		id, value := v4l2.CtrlID(k), v4l2.CtrlValue(v)
		ctrl, ok := known[id]
		if !ok {
			logger.Warnf("the device does not support control(%d)", k)
			continue
		}
		if err := dev.SetControlValue(id, value); err != nil {
			logger.Warnf("set ctrl(%d) to %d, err: %s", k, v, err)
			continue
		}
		logger.Debugf("set %s", CtrlToString(ctrl))
	}
}

func CtrlToString(ctrl v4l2.Control) string {
	return fmt.Sprintf("control id (%d) name: %s [min: %d; max: %d; step: %d; default: %d]",
		ctrl.ID, ctrl.Name, ctrl.Minimum, ctrl.Maximum, ctrl.Step, ctrl.Default)
}

// ListControls opens path without streaming and reports its controls.
func ListControls(path string) ([]types.Control, error) {
	dev, err := device.Open(path)
	if err != nil {
		return nil, WrapOpenError(err)
	}
	defer dev.Close()

	ctrls, err := v4l2.QueryAllExtControls(dev.Fd())
	if err != nil {
		return nil, fmt.Errorf("query controls: %w", err)
	}
	list := make([]types.Control, 0, len(ctrls))
	for _, ctrl := range ctrls {
		c := types.Control{
			ID:      uint32(ctrl.ID),
			Name:    ctrl.Name,
			Value:   int32(ctrl.Value),
			Minimum: ctrl.Minimum,
			Maximum: ctrl.Maximum,
			Step:    ctrl.Step,
			Default: ctrl.Default,
		}
		if ctrl.IsMenu() {
			if items, err := ctrl.GetMenuItems(); err == nil {
				for _, m := range items {
					c.Menu = append(c.Menu, m.Name)
				}
			}
		}
		list = append(list, c)
	}

	return list, nil
}
