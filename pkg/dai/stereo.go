package dai

import (
	"errors"
	"fmt"
)

// StereoDepthNode computes depth from a left and a right camera output.
type StereoDepthNode struct {
	pipeline *Pipeline
	id       int
	name     string
	left     CameraBoardSocket
	align    CameraBoardSocket
	depth    *Output
}

// CreateStereoDepth adds a stereo node linked to left and right.
// The depth output inherits the left output's size and rate.
func (p *Pipeline) CreateStereoDepth(name string, left, right *Output) (*StereoDepthNode, error) {
	if left == nil || right == nil {
		return nil, errors.New("stereo depth needs both a left and a right input")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.frozen {
		return nil, ErrPipelineFrozen
	}
	if left.socket == right.socket {
		return nil, fmt.Errorf("stereo inputs must come from different sockets, both are %s", left.socket)
	}

	fps := min(left.fps, right.fps)
	sd := &StereoDepthNode{
		pipeline: p,
		id:       p.nextID,
		name:     name,
		left:     left.socket,
		align:    AUTO,
	}
	sd.depth = &Output{
		nodeID: sd.id,
		name:   name + "_depth",
		socket: left.socket,
		size:   left.size,
		typ:    RAW16,
		fps:    fps,
	}
	p.nextID++
	p.nodes = append(p.nodes, sd)

	if err := p.link(left, sd, "left"); err != nil {
		return nil, err
	}
	if err := p.link(right, sd, "right"); err != nil {
		return nil, err
	}
	return sd, nil
}

func (s *StereoDepthNode) ID() int {
	return s.id
}

func (s *StereoDepthNode) Kind() NodeKind {
	return KindStereoDepth
}

func (s *StereoDepthNode) Name() string {
	return s.name
}

// Depth returns the depth output.
func (s *StereoDepthNode) Depth() *Output {
	return s.depth
}

// SetDepthAlign aligns the depth map to the given socket. AUTO keeps the
// rectified left frame of reference.
func (s *StereoDepthNode) SetDepthAlign(socket CameraBoardSocket) error {
	s.pipeline.mu.Lock()
	defer s.pipeline.mu.Unlock()

	if s.pipeline.frozen {
		return ErrPipelineFrozen
	}
	s.align = socket
	if socket == AUTO {
		s.depth.socket = s.left
	} else {
		s.depth.socket = socket
	}
	return nil
}

func (s *StereoDepthNode) properties() map[string]string {
	return map[string]string{
		"depthAlign": s.align.String(),
		"output.0":   fmt.Sprintf("%s %s@%g", s.depth.size, s.depth.typ, s.depth.fps),
	}
}

func (s *StereoDepthNode) outputs() []*Output {
	return []*Output{s.depth}
}
