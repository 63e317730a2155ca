// Package plugin provides interfaces and types for creating dairos pipeline
// factory plugins.
//
// A pipeline factory is the extension point the host driver resolves by name
// at startup. The host owns the device, the pipeline graph and the parameter
// view; the factory's only job is to attach nodes to the graph and hand them
// back. It must not start or stop the pipeline and must not keep references to
// the nodes it returns.
//
// Factories can be provided three ways:
//
// 1. Compiled into the host and registered with the internal registry.
// 2. As a shared library (go build -buildmode=plugin) exporting NewPipeline
// and, optionally, PluginInfo.
// 3. As a standalone binary served with HashiCorp go-plugin, see Handshake and
// PipelinePlugin.
//
// Example shared library plugin:
//
//	package main
//
//	import (
//	    "dairos.szuro.net/pkg/dai"
//	    "dairos.szuro.net/pkg/dainode"
//	    "dairos.szuro.net/pkg/param"
//	    "dairos.szuro.net/pkg/plugin"
//	)
//
//	var PluginInfo = plugin.PluginInfo{
//	    Name:      "my_plugins::MonoLeft",
//	    Interface: plugin.BasePipelineInterface,
//	    Version:   "1.0.0",
//	}
//
//	type MonoLeft struct{}
//
//	func NewPipeline() plugin.PipelineFactory {
//	    return MonoLeft{}
//	}
//
//	func (MonoLeft) CreatePipeline(ctx dainode.Context, dev dai.Device, p *dai.Pipeline,
//	    ph param.Handler, deviceName string, rsCompat bool, nnType string) ([]dainode.Node, error) {
//	    left, err := dainode.NewSensorWrapper("left", ctx, p, ph, deviceName, rsCompat, dai.CAM_B)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return []dainode.Node{left}, nil
//	}
package plugin

import (
	"dairos.szuro.net/pkg/dai"
	"dairos.szuro.net/pkg/dainode"
	"dairos.szuro.net/pkg/param"
)

// BasePipelineInterface is the interface name every pipeline factory registers
// against. The host refuses factories registered for anything else.
const BasePipelineInterface = "depthai_ros_driver::pipeline_gen::BasePipeline"

// PluginInfo contains metadata about a plugin.
// Shared library plugins should export a variable of this type named
// "PluginInfo".
type PluginInfo struct {
	// Name is the lookup key the host configuration refers to, e.g.
	// "dai_ros_plugins::DaiRosPlugins".
	Name string

	// Interface is the base interface the factory implements.
	Interface string

	// Version is the semantic version of the plugin (e.g., "1.0.0").
	Version string

	// Description provides a brief description of what the plugin does.
	Description string

	// Author identifies who created or maintains the plugin.
	Author string
}

// PipelineFactory builds the nodes of a device session.
//
// CreatePipeline is called once, on the host's setup goroutine, before the
// pipeline starts. Returned nodes are attached to p, listed in insertion order
// and owned by the caller. On error no node created by the call remains
// attached.
type PipelineFactory interface {
	CreatePipeline(ctx dainode.Context, dev dai.Device, p *dai.Pipeline, ph param.Handler, deviceName string, rsCompat bool, nnType string) ([]dainode.Node, error)
}

// PipelineFactoryFunc adapts a plain function to PipelineFactory.
type PipelineFactoryFunc func(ctx dainode.Context, dev dai.Device, p *dai.Pipeline, ph param.Handler, deviceName string, rsCompat bool, nnType string) ([]dainode.Node, error)

func (f PipelineFactoryFunc) CreatePipeline(ctx dainode.Context, dev dai.Device, p *dai.Pipeline, ph param.Handler, deviceName string, rsCompat bool, nnType string) ([]dainode.Node, error) {
	return f(ctx, dev, p, ph, deviceName, rsCompat, nnType)
}

// Constructor creates a fresh factory instance.
type Constructor func() PipelineFactory
