// Package dairosplugins implements the dai_ros_plugins::DaiRosPlugins pipeline:
// a left mono sensor on CAM_B and a right mono sensor on CAM_C.
package dairosplugins

import (
	"errors"

	"dairos.szuro.net/pkg/dai"
	"dairos.szuro.net/pkg/dainode"
	"dairos.szuro.net/pkg/param"
	"dairos.szuro.net/pkg/plugin"
)

const PLUGIN_NAME = "dai_ros_plugins::DaiRosPlugins"

var PluginInfo = plugin.PluginInfo{
	Name:        PLUGIN_NAME,
	Interface:   plugin.BasePipelineInterface,
	Version:     "1.0.0",
	Description: "Left and right mono sensors without stereo depth",
	Author:      "dairos",
}

// DaiRosPlugins holds no state; every call builds fresh nodes that belong to
// the caller.
type DaiRosPlugins struct{}

// New returns a DaiRosPlugins factory. It matches plugin.Constructor.
func New() plugin.PipelineFactory {
	return DaiRosPlugins{}
}

// CreatePipeline attaches "left" on CAM_B and "right" on CAM_C, in that order.
// nnType is ignored. Per node options (<node>.i_resolution, <node>.i_fps,
// <node>.i_publish_topic) are read from ph.
func (DaiRosPlugins) CreatePipeline(ctx dainode.Context, dev dai.Device, p *dai.Pipeline, ph param.Handler, deviceName string, rsCompat bool, _ string) ([]dainode.Node, error) {
	if err := plugin.CheckInputs(dev, p); err != nil {
		return nil, plugin.Classify(PLUGIN_NAME, err)
	}
	if err := dai.RequireCameras(dev, dai.CAM_B, dai.CAM_C); err != nil {
		return nil, plugin.Classify(PLUGIN_NAME, err)
	}

	left, err := dainode.NewSensorWrapper("left", ctx, p, ph, deviceName, rsCompat, dai.CAM_B)
	if err != nil {
		return nil, plugin.Classify(PLUGIN_NAME, err)
	}
	right, err := dainode.NewSensorWrapper("right", ctx, p, ph, deviceName, rsCompat, dai.CAM_C)
	if err != nil {
		if detachErr := left.Detach(); detachErr != nil {
			err = errors.Join(err, detachErr)
		}
		return nil, plugin.Classify(PLUGIN_NAME, err)
	}

	return []dainode.Node{left, right}, nil
}
