// Package pipelines holds the pipeline types built into the host driver.
package pipelines

import (
	"errors"
	"fmt"
	"strings"

	"dairos.szuro.net/pkg/dai"
	"dairos.szuro.net/pkg/dainode"
	"dairos.szuro.net/pkg/param"
	"dairos.szuro.net/pkg/plugin"
)

const (
	RGB    = "RGB"
	STEREO = "Stereo"
	RGBD   = "RGBD"
)

// Infos lists the built-in pipeline types in registration order.
var Infos = []plugin.PluginInfo{
	{Name: RGB, Interface: plugin.BasePipelineInterface, Version: "builtin", Description: "Colour sensor on CAM_A"},
	{Name: STEREO, Interface: plugin.BasePipelineInterface, Version: "builtin", Description: "Stereo depth over CAM_B and CAM_C"},
	{Name: RGBD, Interface: plugin.BasePipelineInterface, Version: "builtin", Description: "Colour sensor and depth aligned to it"},
}

// Constructors maps each built-in name to its factory constructor.
var Constructors = map[string]plugin.Constructor{
	RGB:    func() plugin.PipelineFactory { return plugin.PipelineFactoryFunc(createRGB) },
	STEREO: func() plugin.PipelineFactory { return plugin.PipelineFactoryFunc(createStereo) },
	RGBD:   func() plugin.PipelineFactory { return plugin.PipelineFactoryFunc(createRGBD) },
}

// parseNNType maps the driver's nn_type argument to a sensor NN mode.
func parseNNType(nnType string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(nnType)) {
	case "", dainode.NN_NONE:
		return dainode.NN_NONE, nil
	case dainode.NN_RGB:
		return dainode.NN_RGB, nil
	case dainode.NN_SPATIAL:
		return dainode.NN_SPATIAL, nil
	}
	return "", fmt.Errorf("%w: unsupported nn_type %q", plugin.ErrConfig, nnType)
}

func precheck(name string, dev dai.Device, p *dai.Pipeline, sockets ...dai.CameraBoardSocket) error {
	if err := plugin.CheckInputs(dev, p); err != nil {
		return plugin.Classify(name, err)
	}
	if err := dai.RequireCameras(dev, sockets...); err != nil {
		return plugin.Classify(name, err)
	}
	return nil
}

func fail(name string, err error, built []dainode.Node) error {
	if detachErr := plugin.Detach(built); detachErr != nil {
		err = errors.Join(err, detachErr)
	}
	return plugin.Classify(name, err)
}

func createRGB(ctx dainode.Context, dev dai.Device, p *dai.Pipeline, ph param.Handler, deviceName string, rsCompat bool, nnType string) ([]dainode.Node, error) {
	mode, err := parseNNType(nnType)
	if err != nil {
		return nil, plugin.Classify(RGB, err)
	}
	if mode == dainode.NN_SPATIAL {
		return nil, plugin.Classify(RGB, fmt.Errorf("%w: spatial detections need stereo, use %s", plugin.ErrConfig, RGBD))
	}
	if err := precheck(RGB, dev, p, dai.CAM_A); err != nil {
		return nil, err
	}

	rgb, err := dainode.NewSensorWrapper(colorName(rsCompat), ctx, p, ph, deviceName, rsCompat, dai.CAM_A, dainode.WithNNMode(mode))
	if err != nil {
		return nil, fail(RGB, err, nil)
	}
	return []dainode.Node{rgb}, nil
}

func createStereo(ctx dainode.Context, dev dai.Device, p *dai.Pipeline, ph param.Handler, deviceName string, rsCompat bool, _ string) ([]dainode.Node, error) {
	if err := precheck(STEREO, dev, p, dai.CAM_B, dai.CAM_C); err != nil {
		return nil, err
	}
	stereo, err := dainode.NewStereo(depthName(rsCompat), ctx, p, ph, deviceName, rsCompat, dai.CAM_B, dai.CAM_C, dai.AUTO)
	if err != nil {
		return nil, fail(STEREO, err, nil)
	}
	return []dainode.Node{stereo}, nil
}

func createRGBD(ctx dainode.Context, dev dai.Device, p *dai.Pipeline, ph param.Handler, deviceName string, rsCompat bool, nnType string) ([]dainode.Node, error) {
	mode, err := parseNNType(nnType)
	if err != nil {
		return nil, plugin.Classify(RGBD, err)
	}
	if err := precheck(RGBD, dev, p, dai.CAM_A, dai.CAM_B, dai.CAM_C); err != nil {
		return nil, err
	}

	var built []dainode.Node
	rgb, err := dainode.NewSensorWrapper(colorName(rsCompat), ctx, p, ph, deviceName, rsCompat, dai.CAM_A, dainode.WithNNMode(mode))
	if err != nil {
		return nil, fail(RGBD, err, built)
	}
	built = append(built, rgb)

	stereo, err := dainode.NewStereo(depthName(rsCompat), ctx, p, ph, deviceName, rsCompat, dai.CAM_B, dai.CAM_C, dai.CAM_A)
	if err != nil {
		return nil, fail(RGBD, err, built)
	}
	return append(built, stereo), nil
}

// RealSense compatible consumers expect "color" and "depth".
func colorName(rsCompat bool) string {
	if rsCompat {
		return "color"
	}
	return "rgb"
}

func depthName(rsCompat bool) string {
	if rsCompat {
		return "depth"
	}
	return "stereo"
}
