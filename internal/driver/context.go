package driver

import (
	"log/slog"
	"strings"
)

// NodeContext is the host node factories run under.
type NodeContext struct {
	name      string
	namespace string
	logger    *slog.Logger
}

// NewNodeContext scopes nodes under /<name>.
func NewNodeContext(name string, logger *slog.Logger) *NodeContext {
	if logger == nil {
		logger = slog.Default()
	}
	return &NodeContext{
		name:      name,
		namespace: "/" + strings.Trim(name, "/"),
		logger:    logger,
	}
}

func (c *NodeContext) Name() string {
	return c.name
}

func (c *NodeContext) Namespace() string {
	return c.namespace
}

func (c *NodeContext) Logger() *slog.Logger {
	return c.logger
}
