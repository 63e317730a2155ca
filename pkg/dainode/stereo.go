package dainode

import (
	"errors"
	"fmt"
	"log/slog"

	"dairos.szuro.net/pkg/dai"
	"dairos.szuro.net/pkg/param"
)

// Stereo is a depth adapter built from a left and a right mono sensor.
type Stereo struct {
	base
	left, right dai.CameraBoardSocket
	align       dai.CameraBoardSocket
	opts        sensorOptions

	leftCam, rightCam *dai.CameraNode
	depth             *dai.StereoDepthNode
}

// NewStereo builds a depth node over left and right and attaches it to
// pipeline. Recognised options: <name>.i_resolution, <name>.i_fps,
// <name>.i_publish_topic and <name>.i_align_depth (default true, aligns to
// alignTo). When alignment is off the depth map stays in the left frame.
func NewStereo(name string, ctx Context, pipeline *dai.Pipeline, params param.Handler, deviceName string, rsCompat bool, left, right, alignTo dai.CameraBoardSocket) (*Stereo, error) {
	opts, err := readSensorOptions(name, params, sensorOptions{size: Resolutions["800p"], fps: 30, publishTopic: true})
	if err != nil {
		return nil, err
	}
	align := alignTo
	if params != nil {
		enabled, found, err := params.GetBool(name + ".i_align_depth")
		if err != nil {
			return nil, err
		}
		if found && !enabled {
			align = dai.AUTO
		}
	}

	s := &Stereo{
		base:  newBase(name, ctx, deviceName, rsCompat),
		left:  left,
		right: right,
		align: align,
		opts:  opts,
	}
	if err := s.Attach(pipeline); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Stereo) Sockets() []dai.CameraBoardSocket {
	return []dai.CameraBoardSocket{s.left, s.right}
}

// Align returns the socket depth is aligned to, AUTO for the left frame.
func (s *Stereo) Align() dai.CameraBoardSocket {
	return s.align
}

func (s *Stereo) Attach(p *dai.Pipeline) error {
	if p == nil {
		return errors.New("cannot attach to nil pipeline")
	}
	if s.pipeline != nil {
		return fmt.Errorf("node %s is already attached", s.name)
	}
	if p.Device() != nil {
		if err := dai.RequireCameras(p.Device(), s.left, s.right); err != nil {
			return err
		}
	}

	var created []int
	rollback := func(cause error) error {
		for i := len(created) - 1; i >= 0; i-- {
			if err := p.Remove(created[i]); err != nil {
				s.logger.Error("Failed to roll back stereo element", slog.Int("id", created[i]), slog.Any("error", err))
			}
		}
		return cause
	}

	leftCam, err := p.CreateCamera(s.name+"_left", s.left)
	if err != nil {
		return rollback(fmt.Errorf("creating left camera for %s: %w", s.name, err))
	}
	created = append(created, leftCam.ID())
	rightCam, err := p.CreateCamera(s.name+"_right", s.right)
	if err != nil {
		return rollback(fmt.Errorf("creating right camera for %s: %w", s.name, err))
	}
	created = append(created, rightCam.ID())

	lo, err := leftCam.RequestOutput(s.opts.size, dai.GRAY8, s.opts.fps)
	if err != nil {
		return rollback(err)
	}
	ro, err := rightCam.RequestOutput(s.opts.size, dai.GRAY8, s.opts.fps)
	if err != nil {
		return rollback(err)
	}
	depth, err := p.CreateStereoDepth(s.name, lo, ro)
	if err != nil {
		return rollback(fmt.Errorf("creating stereo depth for %s: %w", s.name, err))
	}
	created = append(created, depth.ID())
	if err := depth.SetDepthAlign(s.align); err != nil {
		return rollback(err)
	}

	s.pipeline = p
	s.leftCam, s.rightCam, s.depth = leftCam, rightCam, depth
	s.logger.Debug("Stereo attached",
		slog.String("left", s.left.String()),
		slog.String("right", s.right.String()),
		slog.String("align", s.align.String()))
	return nil
}

func (s *Stereo) Detach() error {
	if s.pipeline == nil {
		return nil
	}
	for _, id := range []int{s.depth.ID(), s.rightCam.ID(), s.leftCam.ID()} {
		if err := s.pipeline.Remove(id); err != nil {
			return err
		}
	}
	s.pipeline, s.leftCam, s.rightCam, s.depth = nil, nil, nil, nil
	return nil
}

// Depth returns the depth stream, nil when detached.
func (s *Stereo) Depth() *dai.Output {
	if s.depth == nil {
		return nil
	}
	return s.depth.Depth()
}

// FrameID of an aligned depth map is the frame of the sensor it is aligned to.
func (s *Stereo) FrameID() string {
	if s.align == dai.CAM_A {
		name := "rgb"
		if s.rsCompat {
			name = "color"
		}
		b := s.base
		b.name = name
		return b.FrameID()
	}
	return s.base.FrameID()
}

func (s *Stereo) Topics() []string {
	if !s.opts.publishTopic {
		return nil
	}
	return []string{s.imageTopic(), s.topic("camera_info")}
}

func (s *Stereo) SetupQueues(dev dai.Device) error {
	return s.setupQueues(dev, s.Sockets())
}
