package dai

import (
	"fmt"
	"strconv"
)

// CameraNode is a sensor bound to one CameraBoardSocket.
type CameraNode struct {
	pipeline *Pipeline
	id       int
	name     string
	socket   CameraBoardSocket
	outs     []*Output
}

func (c *CameraNode) ID() int {
	return c.id
}

func (c *CameraNode) Kind() NodeKind {
	return KindCamera
}

func (c *CameraNode) Name() string {
	return c.name
}

func (c *CameraNode) Socket() CameraBoardSocket {
	return c.socket
}

// RequestOutput adds an output stream with the given size, format and rate.
func (c *CameraNode) RequestOutput(size Size, typ FrameType, fps float64) (*Output, error) {
	c.pipeline.mu.Lock()
	defer c.pipeline.mu.Unlock()

	if c.pipeline.frozen {
		return nil, ErrPipelineFrozen
	}
	if size.Width <= 0 || size.Height <= 0 {
		return nil, fmt.Errorf("invalid output size %s", size)
	}
	out := &Output{
		nodeID: c.id,
		name:   fmt.Sprintf("%s_%d", c.name, len(c.outs)),
		socket: c.socket,
		size:   size,
		typ:    typ,
		fps:    fps,
	}
	c.outs = append(c.outs, out)
	return out, nil
}

func (c *CameraNode) properties() map[string]string {
	props := map[string]string{
		"boardSocket": c.socket.String(),
		"outputs":     strconv.Itoa(len(c.outs)),
	}
	for i, o := range c.outs {
		key := "output." + strconv.Itoa(i)
		props[key] = fmt.Sprintf("%s %s@%g", o.size, o.typ, o.fps)
	}
	return props
}

func (c *CameraNode) outputs() []*Output {
	return c.outs
}
