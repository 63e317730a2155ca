package dainode

import (
	"errors"
	"fmt"
	"log/slog"

	"dairos.szuro.net/pkg/dai"
	"dairos.szuro.net/pkg/param"
)

// NN modes a colour sensor can carry.
const (
	NN_NONE    = "none"
	NN_RGB     = "rgb"
	NN_SPATIAL = "spatial"
)

// SensorWrapper adapts a single camera sensor into a publishing node.
type SensorWrapper struct {
	base
	socket dai.CameraBoardSocket
	opts   sensorOptions
	nnMode string

	camera *dai.CameraNode
	output *dai.Output
}

// SensorOption tweaks a SensorWrapper before it attaches.
type SensorOption func(*SensorWrapper)

// WithNNMode enables detection topics on the sensor.
func WithNNMode(mode string) SensorOption {
	return func(s *SensorWrapper) {
		s.nnMode = mode
	}
}

// NewSensorWrapper builds a sensor node named name on socket and attaches it
// to pipeline. Colour sockets (CAM_A) default to 1080p NV12, mono sockets to
// 800p GRAY8, both at 30 fps.
func NewSensorWrapper(name string, ctx Context, pipeline *dai.Pipeline, params param.Handler, deviceName string, rsCompat bool, socket dai.CameraBoardSocket, options ...SensorOption) (*SensorWrapper, error) {
	defaults := sensorOptions{size: Resolutions["800p"], fps: 30, publishTopic: true}
	if socket == dai.CAM_A {
		defaults.size = Resolutions["1080p"]
	}
	opts, err := readSensorOptions(name, params, defaults)
	if err != nil {
		return nil, err
	}

	s := &SensorWrapper{
		base:   newBase(name, ctx, deviceName, rsCompat),
		socket: socket,
		opts:   opts,
		nnMode: NN_NONE,
	}
	for _, o := range options {
		o(s)
	}
	if err := s.Attach(pipeline); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SensorWrapper) Sockets() []dai.CameraBoardSocket {
	return []dai.CameraBoardSocket{s.socket}
}

// Socket returns the socket the sensor is bound to.
func (s *SensorWrapper) Socket() dai.CameraBoardSocket {
	return s.socket
}

func (s *SensorWrapper) frameType() dai.FrameType {
	if s.socket == dai.CAM_A {
		return dai.NV12
	}
	return dai.GRAY8
}

func (s *SensorWrapper) Attach(p *dai.Pipeline) error {
	if p == nil {
		return errors.New("cannot attach to nil pipeline")
	}
	if s.pipeline != nil {
		return fmt.Errorf("node %s is already attached", s.name)
	}

	cam, err := p.CreateCamera(s.name, s.socket)
	if err != nil {
		return fmt.Errorf("creating camera for %s: %w", s.name, err)
	}
	out, err := cam.RequestOutput(s.opts.size, s.frameType(), s.opts.fps)
	if err != nil {
		if rmErr := p.Remove(cam.ID()); rmErr != nil {
			s.logger.Error("Failed to roll back camera", slog.Any("error", rmErr))
		}
		return fmt.Errorf("requesting output for %s: %w", s.name, err)
	}

	s.pipeline = p
	s.camera = cam
	s.output = out
	s.logger.Debug("Sensor attached",
		slog.String("socket", s.socket.String()),
		slog.String("resolution", s.opts.size.String()),
		slog.Float64("fps", s.opts.fps))
	return nil
}

func (s *SensorWrapper) Detach() error {
	if s.pipeline == nil {
		return nil
	}
	if err := s.pipeline.Remove(s.camera.ID()); err != nil {
		return err
	}
	s.pipeline, s.camera, s.output = nil, nil, nil
	return nil
}

// Output returns the sensor's stream, nil when detached.
func (s *SensorWrapper) Output() *dai.Output {
	return s.output
}

// NNMode returns the detection mode, NN_NONE when disabled.
func (s *SensorWrapper) NNMode() string {
	return s.nnMode
}

func (s *SensorWrapper) Topics() []string {
	var topics []string
	if s.opts.publishTopic {
		topics = append(topics, s.imageTopic(), s.topic("camera_info"))
	}
	switch s.nnMode {
	case NN_RGB:
		topics = append(topics, "/"+s.deviceName+"/nn/detections")
	case NN_SPATIAL:
		topics = append(topics, "/"+s.deviceName+"/nn/spatial_detections")
	}
	return topics
}

func (s *SensorWrapper) SetupQueues(dev dai.Device) error {
	return s.setupQueues(dev, s.Sockets())
}
