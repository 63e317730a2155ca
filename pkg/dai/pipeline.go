package dai

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrPipelineFrozen = errors.New("pipeline graph is frozen")
	ErrSocketClaimed  = errors.New("socket already claimed")
	ErrNodeNotFound   = errors.New("node not found in pipeline")
	ErrInvalidSocket  = errors.New("invalid camera board socket")
)

// NodeKind names the type of a graph node as it appears in the schema.
type NodeKind string

const (
	KindCamera      NodeKind = "Camera"
	KindStereoDepth NodeKind = "StereoDepth"
)

type graphNode interface {
	ID() int
	Kind() NodeKind
	Name() string
	properties() map[string]string
	outputs() []*Output
}

// Link connects an output of one node to a named input of another.
type Link struct {
	FromNode   int
	FromOutput string
	ToNode     int
	ToInput    string
}

// Pipeline is the build-time node graph of a device session.
// It is safe for concurrent use but meant to be built from a single goroutine.
type Pipeline struct {
	mu      sync.Mutex
	id      string
	device  Device
	nextID  int
	nodes   []graphNode
	claimed map[CameraBoardSocket]int
	links   []Link
	frozen  bool
	running bool
	stop    chan struct{}
	wg      sync.WaitGroup
	logger  *slog.Logger
}

// NewPipeline creates an empty pipeline for dev. A nil device disables
// capability checks.
func NewPipeline(dev Device) *Pipeline {
	return &Pipeline{
		id:      uuid.NewString(),
		device:  dev,
		claimed: make(map[CameraBoardSocket]int),
		logger:  slog.Default(),
	}
}

func (p *Pipeline) ID() string {
	return p.id
}

func (p *Pipeline) Device() Device {
	return p.device
}

// SetLogger replaces the logger used for lifecycle messages.
func (p *Pipeline) SetLogger(l *slog.Logger) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logger = l
}

// CreateCamera adds a camera node bound to socket.
func (p *Pipeline) CreateCamera(name string, socket CameraBoardSocket) (*CameraNode, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.frozen {
		return nil, ErrPipelineFrozen
	}
	if !socket.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSocket, socket)
	}
	if owner, ok := p.claimed[socket]; ok {
		return nil, fmt.Errorf("%w: %s is used by node %d", ErrSocketClaimed, socket, owner)
	}
	if p.device != nil && !HasCamera(p.device, socket) {
		return nil, &CapabilityError{Device: p.device.MxID(), Socket: socket}
	}

	cam := &CameraNode{
		pipeline: p,
		id:       p.nextID,
		name:     name,
		socket:   socket,
	}
	p.nextID++
	p.nodes = append(p.nodes, cam)
	p.claimed[socket] = cam.id
	return cam, nil
}

// Remove detaches a node, releasing its socket and every link touching it.
func (p *Pipeline) Remove(id int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.frozen {
		return ErrPipelineFrozen
	}
	idx := -1
	for i, n := range p.nodes {
		if n.ID() == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %d", ErrNodeNotFound, id)
	}

	p.nodes = append(p.nodes[:idx], p.nodes[idx+1:]...)
	for s, owner := range p.claimed {
		if owner == id {
			delete(p.claimed, s)
		}
	}
	links := p.links[:0]
	for _, l := range p.links {
		if l.FromNode != id && l.ToNode != id {
			links = append(links, l)
		}
	}
	p.links = links
	return nil
}

// Contains reports whether the node with the given id is part of the graph.
func (p *Pipeline) Contains(id int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, n := range p.nodes {
		if n.ID() == id {
			return true
		}
	}
	return false
}

// NodeCount returns the number of nodes in the graph.
func (p *Pipeline) NodeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.nodes)
}

// ClaimedSockets returns the sockets bound to camera nodes, sorted.
func (p *Pipeline) ClaimedSockets() []CameraBoardSocket {
	p.mu.Lock()
	defer p.mu.Unlock()
	sockets := make([]CameraBoardSocket, 0, len(p.claimed))
	for s := range p.claimed {
		sockets = append(sockets, s)
	}
	sort.Slice(sockets, func(i, j int) bool { return sockets[i] < sockets[j] })
	return sockets
}

func (p *Pipeline) link(from *Output, to graphNode, input string) error {
	if p.frozen {
		return ErrPipelineFrozen
	}
	p.links = append(p.links, Link{
		FromNode:   from.nodeID,
		FromOutput: from.name,
		ToNode:     to.ID(),
		ToInput:    input,
	})
	return nil
}

// IsRunning reports whether Start has been called without a matching Stop.
func (p *Pipeline) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// IsFrozen reports whether the graph can no longer be modified.
func (p *Pipeline) IsFrozen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frozen
}

// Start freezes the graph and begins producing frames on every requested output.
func (p *Pipeline) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.frozen {
		return ErrPipelineFrozen
	}
	p.frozen = true
	p.running = true
	p.stop = make(chan struct{})
	for _, n := range p.nodes {
		for _, out := range n.outputs() {
			p.wg.Add(1)
			go out.produce(p.stop, &p.wg)
		}
	}
	p.logger.Info("Pipeline started", slog.String("pipeline", p.id), slog.Int("nodes", len(p.nodes)))
	return nil
}

// Stop halts frame production. The graph stays frozen; a stopped pipeline
// cannot be started again.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stop)
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info("Pipeline stopped", slog.String("pipeline", p.id))
}
