// Package dainode holds the processing nodes a pipeline factory hands to the
// host: sensor adapters and depth adapters. Each node is built against a
// dai.Pipeline, attaches itself on construction and is owned by the caller
// from then on.
package dainode

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"dairos.szuro.net/pkg/dai"
	"dairos.szuro.net/pkg/param"
)

// Context is the host node a factory runs under. It scopes topic names and
// provides logging.
type Context interface {
	Name() string
	Namespace() string
	Logger() *slog.Logger
}

// Node is a unit of device processing bound to one or more sockets.
type Node interface {
	// Name identifies the node within its pipeline.
	Name() string

	// Sockets lists the camera sockets the node claims, in link order.
	Sockets() []dai.CameraBoardSocket

	// Attach adds the node's graph elements to p. On error nothing is left
	// attached.
	Attach(p *dai.Pipeline) error

	// Detach removes the node's graph elements. Only valid before the
	// pipeline starts.
	Detach() error

	// Attached reports whether the node currently has elements in a pipeline.
	Attached() bool

	// FrameID is the coordinate frame downstream consumers see.
	FrameID() string

	// Topics lists the topics the node publishes once queues are set up.
	Topics() []string

	// SetupQueues opens the output queues after the pipeline has started.
	SetupQueues(dev dai.Device) error

	// CloseQueues releases the output queues.
	CloseQueues()
}

// MaxFPS bounds i_fps so a frame period stays at least one nanosecond.
const MaxFPS = 1e9

// Resolutions accepted by the i_resolution option.
var Resolutions = map[string]dai.Size{
	"400p":  {Width: 640, Height: 400},
	"480p":  {Width: 640, Height: 480},
	"720p":  {Width: 1280, Height: 720},
	"800p":  {Width: 1280, Height: 800},
	"1080p": {Width: 1920, Height: 1080},
	"1200p": {Width: 1920, Height: 1200},
	"4k":    {Width: 3840, Height: 2160},
}

type base struct {
	name       string
	deviceName string
	rsCompat   bool
	logger     *slog.Logger
	pipeline   *dai.Pipeline
	queuesOpen bool
}

func newBase(name string, ctx Context, deviceName string, rsCompat bool) base {
	logger := slog.Default()
	if ctx != nil && ctx.Logger() != nil {
		logger = ctx.Logger()
	}
	return base{
		name:       name,
		deviceName: deviceName,
		rsCompat:   rsCompat,
		logger:     logger.With(slog.String("node", name)),
	}
}

func (b *base) Name() string {
	return b.name
}

func (b *base) Attached() bool {
	return b.pipeline != nil
}

// FrameID follows the driver convention <device>_<node>_camera_optical_frame,
// or <device>_<node>_optical_frame in RealSense compatibility mode.
func (b *base) FrameID() string {
	if b.rsCompat {
		return fmt.Sprintf("%s_%s_optical_frame", b.deviceName, b.name)
	}
	return fmt.Sprintf("%s_%s_camera_optical_frame", b.deviceName, b.name)
}

func (b *base) imageTopic() string {
	leaf := "image_raw"
	if b.rsCompat {
		leaf = "image_rect_raw"
	}
	return b.topic(leaf)
}

func (b *base) topic(leaf string) string {
	return "/" + strings.Trim(strings.Join([]string{b.deviceName, b.name, leaf}, "/"), "/")
}

func (b *base) setupQueues(dev dai.Device, sockets []dai.CameraBoardSocket) error {
	if b.pipeline == nil {
		return fmt.Errorf("node %s is not attached to a pipeline", b.name)
	}
	if err := dai.RequireCameras(dev, sockets...); err != nil {
		return err
	}
	b.queuesOpen = true
	b.logger.Debug("Queues set up")
	return nil
}

func (b *base) CloseQueues() {
	if b.queuesOpen {
		b.logger.Debug("Queues closed")
	}
	b.queuesOpen = false
}

// QueuesOpen reports whether SetupQueues succeeded and CloseQueues has not
// been called since.
func (b *base) QueuesOpen() bool {
	return b.queuesOpen
}

type sensorOptions struct {
	size         dai.Size
	fps          float64
	publishTopic bool
}

// readSensorOptions parses <node>.i_resolution, <node>.i_fps and
// <node>.i_publish_topic. Unknown keys are ignored.
func readSensorOptions(name string, params param.Handler, defaults sensorOptions) (sensorOptions, error) {
	opts := defaults
	if params == nil {
		return opts, nil
	}

	res, found, err := params.GetString(name + ".i_resolution")
	if err != nil {
		return opts, err
	}
	if found {
		size, ok := Resolutions[strings.ToLower(res)]
		if !ok {
			return opts, fmt.Errorf("%w: %s.i_resolution %q is not a supported resolution", param.ErrMalformed, name, res)
		}
		opts.size = size
	}

	fps, found, err := params.GetFloat(name + ".i_fps")
	if err != nil {
		return opts, err
	}
	if found {
		if math.IsNaN(fps) || math.IsInf(fps, 0) || fps <= 0 || fps > MaxFPS {
			return opts, fmt.Errorf("%w: %s.i_fps must be in (0, %g], got %g", param.ErrMalformed, name, MaxFPS, fps)
		}
		opts.fps = fps
	}

	publish, found, err := params.GetBool(name + ".i_publish_topic")
	if err != nil {
		return opts, err
	}
	if found {
		opts.publishTopic = publish
	}
	return opts, nil
}
