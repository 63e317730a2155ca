package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-plugin"

	"dairos.szuro.net/internal/logger"
	pluginPkg "dairos.szuro.net/pkg/plugin"
)

const infoTimeout = 10 * time.Second

// GRPCPluginRegistry keeps the go-plugin clients for out-of-process factories.
// The factories themselves are registered in the PluginRegistry it wraps.
type GRPCPluginRegistry struct {
	plugins  map[string]*GRPCLoadedPlugin
	mutex    sync.Mutex
	registry *PluginRegistry
}

// GRPCLoadedPlugin represents a loaded gRPC plugin with its client.
type GRPCLoadedPlugin struct {
	Name   string
	Path   string
	Client *plugin.Client
}

var grpcRegistry = NewGRPCRegistry(registry)

// GetGRPCRegistry returns the global gRPC plugin registry.
func GetGRPCRegistry() *GRPCPluginRegistry {
	return grpcRegistry
}

// NewGRPCRegistry creates a gRPC loader that registers into r.
func NewGRPCRegistry(r *PluginRegistry) *GRPCPluginRegistry {
	return &GRPCPluginRegistry{
		plugins:  make(map[string]*GRPCLoadedPlugin),
		registry: r,
	}
}

// LoadPlugin starts the plugin executable, asks it for its PluginInfo and
// registers a RemoteFactory under that name.
func (pr *GRPCPluginRegistry) LoadPlugin(pluginPath string) error {
	logger.Info("Loading gRPC plugin", slog.String("path", pluginPath))

	clientConfig := &plugin.ClientConfig{
		HandshakeConfig: pluginPkg.Handshake,
		Plugins: map[string]plugin.Plugin{
			pluginPkg.PluginKey: &pluginPkg.PipelinePlugin{},
		},
		Cmd:              exec.Command(pluginPath),
		AllowedProtocols: []plugin.Protocol{plugin.ProtocolGRPC},
		Logger:           logger.NewHCLogAdapter(),
	}
	client := plugin.NewClient(clientConfig)

	planner, err := dispense(client)
	if err != nil {
		client.Kill()
		return fmt.Errorf("plugin %s: %w", pluginPath, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), infoTimeout)
	defer cancel()
	info, err := planner.Info(ctx)
	if err != nil {
		client.Kill()
		return fmt.Errorf("failed to query info from plugin %s: %w", pluginPath, err)
	}
	if info.Name == "" {
		info = infoFromPath(pluginPath)
	}

	if err := pr.Add(info, planner, pluginPath, client); err != nil {
		client.Kill()
		return err
	}

	logger.Info("Successfully loaded gRPC plugin",
		slog.String("name", info.Name),
		slog.String("version", info.Version),
		slog.String("path", pluginPath))
	return nil
}

func dispense(client *plugin.Client) (*pluginPkg.PlannerClient, error) {
	rpcClient, err := client.Client()
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	raw, err := rpcClient.Dispense(pluginPkg.PluginKey)
	if err != nil {
		return nil, fmt.Errorf("failed to dispense %s: %w", pluginPkg.PluginKey, err)
	}
	planner, ok := raw.(*pluginPkg.PlannerClient)
	if !ok {
		return nil, fmt.Errorf("did not return a valid pipeline planner")
	}
	return planner, nil
}

// Add registers an already connected planner. client may be nil when the
// connection is not managed by go-plugin.
func (pr *GRPCPluginRegistry) Add(info pluginPkg.PluginInfo, planner *pluginPkg.PlannerClient, path string, client *plugin.Client) error {
	pr.mutex.Lock()
	defer pr.mutex.Unlock()

	constructor := func() pluginPkg.PipelineFactory {
		return &pluginPkg.RemoteFactory{Client: planner}
	}
	if err := pr.registry.register(info, constructor, SOURCE_GRPC, path); err != nil {
		return err
	}
	pr.plugins[info.Name] = &GRPCLoadedPlugin{
		Name:   info.Name,
		Path:   path,
		Client: client,
	}
	return nil
}

// LoadPluginsFromDir loads all plugin executables from the specified directory.
// Non-executable files are skipped.
func (pr *GRPCPluginRegistry) LoadPluginsFromDir(pluginDir string) error {
	logger.Info("Loading gRPC plugins from directory", slog.String("dir", pluginDir))

	matches, err := filepath.Glob(filepath.Join(pluginDir, "*"))
	if err != nil {
		return fmt.Errorf("failed to list plugin files in %s: %w", pluginDir, err)
	}

	var loadErrors []string
	loadedCount := 0

	for _, pluginPath := range matches {
		if !isExecutable(pluginPath) {
			continue
		}

		if err := pr.LoadPlugin(pluginPath); err != nil {
			logger.Error("Failed to load gRPC plugin", slog.String("path", pluginPath), slog.Any("error", err))
			loadErrors = append(loadErrors, fmt.Sprintf("%s: %v", pluginPath, err))
		} else {
			loadedCount++
		}
	}

	if len(loadErrors) > 0 {
		logger.Warn("Failed to load some gRPC plugins", slog.String("errors", strings.Join(loadErrors, "; ")))
	}

	logger.Info("Loaded gRPC plugins from directory", slog.Int("count", loadedCount))
	return nil
}

func isExecutable(path string) bool {
	st, err := os.Stat(path)
	if err != nil || st.IsDir() {
		return false
	}
	return st.Mode().Perm()&0o111 != 0
}

// GetPlugin returns a loaded plugin by name.
func (pr *GRPCPluginRegistry) GetPlugin(name string) (*GRPCLoadedPlugin, bool) {
	pr.mutex.Lock()
	defer pr.mutex.Unlock()

	plugin, exists := pr.plugins[name]
	return plugin, exists
}

// CleanupAll shuts down all plugin processes and removes their factories.
func (pr *GRPCPluginRegistry) CleanupAll() {
	pr.mutex.Lock()
	defer pr.mutex.Unlock()

	logger.Info("Cleaning up all gRPC plugins")

	for name, plugin := range pr.plugins {
		logger.Info("Killing gRPC plugin", slog.String("name", name))
		if plugin.Client != nil {
			plugin.Client.Kill()
		}
		pr.registry.Unregister(name)
	}

	pr.plugins = make(map[string]*GRPCLoadedPlugin)
}
