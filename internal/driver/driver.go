// Package driver owns a device session: it resolves the configured pipeline
// factory, takes the nodes it returns and runs the pipeline.
package driver

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"dairos.szuro.net/internal/config"
	"dairos.szuro.net/internal/logger"
	"dairos.szuro.net/internal/plugin"
	"dairos.szuro.net/internal/schema"
	"dairos.szuro.net/pkg/dai"
	"dairos.szuro.net/pkg/dainode"
	"dairos.szuro.net/pkg/param"
	pluginPkg "dairos.szuro.net/pkg/plugin"
)

var (
	// ErrInvalidNodes marks a factory result the host refuses to own.
	ErrInvalidNodes = errors.New("factory returned invalid nodes")

	// ErrStart marks a pipeline that was built but could not be started.
	ErrStart = errors.New("pipeline start failed")

	ErrAlreadySetup = errors.New("driver already set up")
)

// Options are the factory arguments besides the device and pipeline.
type Options struct {
	DeviceName   string
	PipelineType string
	RsCompat     bool
	NNType       string
	Params       param.Handler
}

type Driver struct {
	dev     dai.Device
	factory pluginPkg.PipelineFactory
	opts    Options
	store   *schema.Store

	mu       sync.Mutex
	session  string
	pipeline *dai.Pipeline
	nodes    []dainode.Node
	log      *slog.Logger
}

// New creates a driver for dev. store may be nil.
func New(dev dai.Device, factory pluginPkg.PipelineFactory, opts Options, store *schema.Store) *Driver {
	if opts.Params == nil {
		opts.Params = param.Empty
	}
	return &Driver{
		dev:     dev,
		factory: factory,
		opts:    opts,
		store:   store,
		log:     logger.Default().Slog(),
	}
}

// FromConfig resolves the configured pipeline type in r and builds a driver
// for the configured device.
func FromConfig(conf config.HostConf, r *plugin.PluginRegistry, store *schema.Store) (*Driver, error) {
	factory, err := conf.Pipeline.ToFactoryFrom(r)
	if err != nil {
		pipelineBuilds.WithLabelValues(resultOf(err)).Inc()
		return nil, err
	}
	return New(conf.Device.Open(), factory, Options{
		DeviceName:   conf.Device.Name,
		PipelineType: conf.Pipeline.Type,
		RsCompat:     conf.Pipeline.RsCompat,
		NNType:       conf.Pipeline.NNType,
		Params:       conf.Pipeline.ParamHandler(),
	}, store), nil
}

// Setup builds the pipeline with the factory, opens the node queues and
// starts the pipeline. On error nothing stays attached.
func (d *Driver) Setup() (err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pipeline != nil {
		return ErrAlreadySetup
	}
	defer func() {
		pipelineBuilds.WithLabelValues(resultOf(err)).Inc()
	}()

	session := uuid.NewString()
	log := logger.Default().With(
		slog.String("session", session),
		slog.String("pipeline_type", d.opts.PipelineType),
		slog.String("device", d.opts.DeviceName)).Slog()

	p := dai.NewPipeline(d.dev)
	p.SetLogger(log)
	nodeCtx := NewNodeContext(d.opts.DeviceName, log)

	log.Info("Creating pipeline")
	nodes, err := d.factory.CreatePipeline(nodeCtx, d.dev, p, d.opts.Params, d.opts.DeviceName, d.opts.RsCompat, d.opts.NNType)
	if err != nil {
		p.Stop()
		log.Error("Pipeline factory failed", slog.Any("error", err))
		return err
	}

	if err := validate(nodes, p); err != nil {
		// A factory may have started the pipeline against the contract.
		p.Stop()
		detachAll(nodes, log)
		log.Error("Refusing factory result", slog.Any("error", err))
		return err
	}

	d.checkSchema(p, log)

	opened := make([]dainode.Node, 0, len(nodes))
	for _, n := range nodes {
		if err := n.SetupQueues(d.dev); err != nil {
			closeQueues(opened)
			detachAll(nodes, log)
			return fmt.Errorf("%w: %s: %w", ErrStart, n.Name(), err)
		}
		opened = append(opened, n)
	}

	if err := p.Start(); err != nil {
		closeQueues(opened)
		detachAll(nodes, log)
		return fmt.Errorf("%w: %w", ErrStart, err)
	}

	d.session = session
	d.pipeline = p
	d.nodes = nodes
	d.log = log
	pipelineNodes.Set(float64(len(nodes)))

	for _, n := range nodes {
		log.Info("Node ready",
			slog.String("node", n.Name()),
			slog.String("frame_id", n.FrameID()),
			slog.Any("topics", n.Topics()))
	}
	return nil
}

// Stop closes the node queues, stops the pipeline and releases the nodes.
func (d *Driver) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pipeline == nil {
		return nil
	}
	closeQueues(d.nodes)
	d.pipeline.Stop()
	d.log.Info("Pipeline stopped", slog.Int("nodes", len(d.nodes)))

	d.pipeline = nil
	d.nodes = nil
	d.session = ""
	pipelineNodes.Set(0)
	return nil
}

// Session returns the id of the running session, or "" when stopped.
func (d *Driver) Session() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.session
}

// Pipeline returns the running pipeline, or nil when stopped.
func (d *Driver) Pipeline() *dai.Pipeline {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pipeline
}

// Nodes returns the nodes the driver owns.
func (d *Driver) Nodes() []dainode.Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]dainode.Node(nil), d.nodes...)
}

func validate(nodes []dainode.Node, p *dai.Pipeline) error {
	names := make(map[string]bool, len(nodes))
	sockets := make(map[dai.CameraBoardSocket]string)
	for i, n := range nodes {
		if n == nil {
			return fmt.Errorf("%w: node %d is nil", ErrInvalidNodes, i)
		}
		if names[n.Name()] {
			return fmt.Errorf("%w: duplicate node name %q", ErrInvalidNodes, n.Name())
		}
		names[n.Name()] = true
		if !n.Attached() {
			return fmt.Errorf("%w: node %q is not attached", ErrInvalidNodes, n.Name())
		}
		for _, s := range n.Sockets() {
			if owner, ok := sockets[s]; ok {
				return fmt.Errorf("%w: socket %s used by %q and %q", ErrInvalidNodes, s, owner, n.Name())
			}
			sockets[s] = n.Name()
		}
	}
	if p.IsFrozen() {
		return fmt.Errorf("%w: factory started the pipeline", ErrInvalidNodes)
	}
	return nil
}

func (d *Driver) checkSchema(p *dai.Pipeline, log *slog.Logger) {
	if d.store == nil {
		return
	}
	key, err := schema.Key(d.opts.PipelineType, d.dev, map[string]any{
		"device_name": d.opts.DeviceName,
		"rs_compat":   d.opts.RsCompat,
		"nn_type":     d.opts.NNType,
		"params":      param.Export(d.opts.Params),
	})
	if err != nil {
		log.Warn("Cannot derive schema key", slog.Any("error", err))
		return
	}

	built := p.Schema()
	stored, found, err := d.store.Get(key)
	switch {
	case err != nil:
		log.Warn("Cannot read stored schema", slog.String("key", key), slog.Any("error", err))
	case found:
		if diffs := schema.Diff(stored, built); len(diffs) > 0 {
			log.Warn("Pipeline differs from previous build with the same inputs",
				slog.String("key", key), slog.Any("diffs", diffs))
		}
	}
	if err := d.store.Put(key, built); err != nil {
		log.Warn("Cannot store schema", slog.String("key", key), slog.Any("error", err))
	}
}

func closeQueues(nodes []dainode.Node) {
	for i := len(nodes) - 1; i >= 0; i-- {
		nodes[i].CloseQueues()
	}
}

func detachAll(nodes []dainode.Node, log *slog.Logger) {
	seen := make(map[dainode.Node]bool, len(nodes))
	valid := make([]dainode.Node, 0, len(nodes))
	for _, n := range nodes {
		if n != nil && !seen[n] && n.Attached() {
			seen[n] = true
			valid = append(valid, n)
		}
	}
	if err := pluginPkg.Detach(valid); err != nil {
		log.Warn("Failed to detach nodes", slog.Any("error", err))
	}
}
