package plugin

import (
	"errors"
	"fmt"

	"dairos.szuro.net/pkg/dai"
	"dairos.szuro.net/pkg/dainode"
	"dairos.szuro.net/pkg/param"
)

// Node kinds a plan can describe.
const (
	NODE_SENSOR = "sensor"
	NODE_STEREO = "stereo"
)

// NodeSpec describes one node of a plan. Sensor nodes use Sockets[0]; stereo
// nodes use Sockets[0] as left and Sockets[1] as right.
type NodeSpec struct {
	Name    string
	Kind    string
	Sockets []dai.CameraBoardSocket
	NNMode  string
	Align   dai.CameraBoardSocket
}

// Plan is the ordered node list an out-of-process plugin returns. Nodes cannot
// cross the process boundary, so the host builds them locally from the plan.
type Plan struct {
	Nodes []NodeSpec
}

// PlanRequest carries the factory arguments across the process boundary.
type PlanRequest struct {
	DeviceName string
	MxID       string
	Product    string
	Sockets    []dai.CameraBoardSocket
	Params     map[string]any
	RsCompat   bool
	NNType     string
}

// NewPlanRequest captures the factory arguments of a CreatePipeline call.
func NewPlanRequest(dev dai.Device, ph param.Handler, deviceName string, rsCompat bool, nnType string) PlanRequest {
	return PlanRequest{
		DeviceName: deviceName,
		MxID:       dev.MxID(),
		Product:    dev.ProductName(),
		Sockets:    dev.ConnectedCameras(),
		Params:     param.Export(ph),
		RsCompat:   rsCompat,
		NNType:     nnType,
	}
}

// Device returns a device view of the request, for planners that want to use
// the dai helpers.
func (r PlanRequest) Device() dai.Device {
	return dai.NewSimDevice(r.MxID, r.Product, r.Sockets...)
}

// Validate checks that the plan is well formed and that every socket it
// claims is exposed by dev and claimed only once.
func (pl Plan) Validate(dev dai.Device) error {
	names := make(map[string]bool, len(pl.Nodes))
	claimed := make(map[dai.CameraBoardSocket]string)

	for _, spec := range pl.Nodes {
		if spec.Name == "" {
			return fmt.Errorf("%w: plan contains a node without a name", ErrConfig)
		}
		if names[spec.Name] {
			return fmt.Errorf("%w: node name %q used twice", ErrConfig, spec.Name)
		}
		names[spec.Name] = true

		want := 0
		switch spec.Kind {
		case NODE_SENSOR:
			want = 1
		case NODE_STEREO:
			want = 2
		default:
			return fmt.Errorf("%w: node %s has unknown kind %q", ErrConfig, spec.Name, spec.Kind)
		}
		if len(spec.Sockets) != want {
			return fmt.Errorf("%w: %s node %s needs %d sockets, got %d", ErrConfig, spec.Kind, spec.Name, want, len(spec.Sockets))
		}

		for _, s := range spec.Sockets {
			if owner, ok := claimed[s]; ok {
				return fmt.Errorf("%w: socket %s claimed by both %s and %s", ErrConfig, s, owner, spec.Name)
			}
			claimed[s] = spec.Name
			if err := dai.RequireCameras(dev, s); err != nil {
				return fmt.Errorf("%w: %w", ErrDeviceCapability, err)
			}
		}
	}
	return nil
}

// Materialize builds the nodes of a plan against p, in plan order. The plan is
// validated first so a missing socket fails before anything is attached; if a
// later node still fails the earlier ones are detached again.
func (pl Plan) Materialize(ctx dainode.Context, dev dai.Device, p *dai.Pipeline, ph param.Handler, deviceName string, rsCompat bool) ([]dainode.Node, error) {
	if err := CheckInputs(dev, p); err != nil {
		return nil, err
	}
	if err := pl.Validate(dev); err != nil {
		return nil, err
	}

	nodes := make([]dainode.Node, 0, len(pl.Nodes))
	for _, spec := range pl.Nodes {
		n, err := buildNode(spec, ctx, p, ph, deviceName, rsCompat)
		if err != nil {
			return nil, errors.Join(err, Detach(nodes))
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func buildNode(spec NodeSpec, ctx dainode.Context, p *dai.Pipeline, ph param.Handler, deviceName string, rsCompat bool) (dainode.Node, error) {
	switch spec.Kind {
	case NODE_STEREO:
		return dainode.NewStereo(spec.Name, ctx, p, ph, deviceName, rsCompat, spec.Sockets[0], spec.Sockets[1], spec.Align)
	default:
		var opts []dainode.SensorOption
		if spec.NNMode != "" {
			opts = append(opts, dainode.WithNNMode(spec.NNMode))
		}
		return dainode.NewSensorWrapper(spec.Name, ctx, p, ph, deviceName, rsCompat, spec.Sockets[0], opts...)
	}
}

// Describe turns already built nodes into a plan. Plugins that construct nodes
// in process use it to serve the same pipeline out of process.
func Describe(nodes []dainode.Node) Plan {
	pl := Plan{Nodes: make([]NodeSpec, 0, len(nodes))}
	for _, n := range nodes {
		spec := NodeSpec{Name: n.Name(), Sockets: n.Sockets(), Align: dai.AUTO}
		switch node := n.(type) {
		case *dainode.Stereo:
			spec.Kind = NODE_STEREO
			spec.Align = node.Align()
		case *dainode.SensorWrapper:
			spec.Kind = NODE_SENSOR
			if node.NNMode() != dainode.NN_NONE {
				spec.NNMode = node.NNMode()
			}
		default:
			spec.Kind = NODE_SENSOR
		}
		pl.Nodes = append(pl.Nodes, spec)
	}
	return pl
}
