package plugin

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"plugin"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/exp/slices"

	"dairos.szuro.net/internal/logger"
	pluginPkg "dairos.szuro.net/pkg/plugin"
)

// Sources a registered factory can come from.
const (
	SOURCE_BUILTIN = "builtin"
	SOURCE_SHARED  = "shared"
	SOURCE_GRPC    = "grpc"
)

// PluginRegistry is the name -> factory lookup table the host resolves its
// configured pipeline type against.
type PluginRegistry struct {
	plugins map[string]*LoadedPlugin
	mutex   sync.RWMutex
	info    *prometheus.GaugeVec
}

type LoadedPlugin struct {
	Info    pluginPkg.PluginInfo
	Factory pluginPkg.Constructor
	Path    string
	Source  string
}

var pluginInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "dairos_plugin_info",
	Help: "Information about registered pipeline plugins",
}, []string{"plugin_name", "plugin_interface", "plugin_version", "source"})

var registry = NewRegistry()

// GetRegistry returns the process wide registry.
func GetRegistry() *PluginRegistry {
	return registry
}

// NewRegistry creates an empty registry. Most callers want GetRegistry.
func NewRegistry() *PluginRegistry {
	return &PluginRegistry{
		plugins: make(map[string]*LoadedPlugin),
		info:    pluginInfo,
	}
}

// Register adds a compiled-in factory under info.Name. Names are unique.
func (pr *PluginRegistry) Register(info pluginPkg.PluginInfo, factory pluginPkg.Constructor) error {
	return pr.register(info, factory, SOURCE_BUILTIN, "")
}

func (pr *PluginRegistry) register(info pluginPkg.PluginInfo, factory pluginPkg.Constructor, source, path string) error {
	if info.Name == "" {
		return fmt.Errorf("%w: plugin name is empty", pluginPkg.ErrRegistration)
	}
	if factory == nil {
		return fmt.Errorf("%w: plugin %s has no constructor", pluginPkg.ErrRegistration, info.Name)
	}
	if info.Interface == "" {
		info.Interface = pluginPkg.BasePipelineInterface
	}

	pr.mutex.Lock()
	defer pr.mutex.Unlock()

	if existing, ok := pr.plugins[info.Name]; ok {
		return fmt.Errorf("%w: plugin %s already registered from %s", pluginPkg.ErrRegistration, info.Name, existing.Source)
	}
	pr.plugins[info.Name] = &LoadedPlugin{
		Info:    info,
		Factory: factory,
		Path:    path,
		Source:  source,
	}

	pr.info.WithLabelValues(info.Name, info.Interface, info.Version, source).Set(1)
	logger.Debug("Registered plugin",
		slog.String("name", info.Name),
		slog.String("interface", info.Interface),
		slog.String("source", source))
	return nil
}

// LoadPlugin opens a shared library built with -buildmode=plugin. It must
// export NewPipeline as func() plugin.PipelineFactory and may export
// PluginInfo.
func (pr *PluginRegistry) LoadPlugin(pluginPath string) error {
	logger.Info("Loading plugin", slog.String("path", pluginPath))

	p, err := plugin.Open(pluginPath)
	if err != nil {
		return fmt.Errorf("failed to open plugin %s: %w", pluginPath, err)
	}

	factorySym, err := p.Lookup("NewPipeline")
	if err != nil {
		return fmt.Errorf("plugin %s does not export NewPipeline function: %w", pluginPath, err)
	}

	factory, ok := factorySym.(func() pluginPkg.PipelineFactory)
	if !ok {
		return fmt.Errorf("plugin %s NewPipeline function has wrong signature", pluginPath)
	}

	var info pluginPkg.PluginInfo
	if infoSym, err := p.Lookup("PluginInfo"); err == nil {
		if exported, ok := infoSym.(*pluginPkg.PluginInfo); ok {
			info = *exported
		}
	}

	// If no info provided, generate basic info from path
	if info.Name == "" {
		info = infoFromPath(pluginPath)
	}

	if err := pr.register(info, factory, SOURCE_SHARED, pluginPath); err != nil {
		return err
	}

	logger.Info("Successfully loaded plugin",
		slog.String("name", info.Name),
		slog.String("version", info.Version),
		slog.String("interface", info.Interface))
	return nil
}

func infoFromPath(pluginPath string) pluginPkg.PluginInfo {
	base := filepath.Base(pluginPath)
	return pluginPkg.PluginInfo{
		Name:      strings.TrimSuffix(base, filepath.Ext(base)),
		Interface: pluginPkg.BasePipelineInterface,
		Version:   "unknown",
	}
}

// LoadPluginsFromDir loads all .so files from the specified directory
func (pr *PluginRegistry) LoadPluginsFromDir(pluginDir string) error {
	logger.Info("Loading plugins from directory", slog.String("dir", pluginDir))

	pluginPaths, err := filepath.Glob(filepath.Join(pluginDir, "*.so"))
	if err != nil {
		return fmt.Errorf("failed to list plugin files in %s: %w", pluginDir, err)
	}

	var loadErrors []error
	for _, pluginPath := range pluginPaths {
		if err := pr.LoadPlugin(pluginPath); err != nil {
			logger.Error("Failed to load plugin", slog.String("path", pluginPath), slog.Any("error", err))
			loadErrors = append(loadErrors, err)
		}
	}

	if len(loadErrors) > 0 {
		return fmt.Errorf("failed to load some plugins: %w", errors.Join(loadErrors...))
	}
	logger.Info("Successfully loaded plugins", slog.Int("count", len(pluginPaths)))
	return nil
}

// GetPlugin returns a plugin by name
func (pr *PluginRegistry) GetPlugin(name string) (*LoadedPlugin, bool) {
	pr.mutex.RLock()
	defer pr.mutex.RUnlock()

	plugin, exists := pr.plugins[name]
	return plugin, exists
}

// Lookup resolves name for the given interface. A missing name or a factory
// registered for another interface is a registration error.
func (pr *PluginRegistry) Lookup(name, iface string) (*LoadedPlugin, error) {
	plugin, exists := pr.GetPlugin(name)
	if !exists {
		return nil, fmt.Errorf("%w: plugin %s not found, available: %s", pluginPkg.ErrRegistration, name, strings.Join(pr.Names(), ", "))
	}
	if plugin.Info.Interface != iface {
		return nil, fmt.Errorf("%w: plugin %s implements %s, not %s", pluginPkg.ErrRegistration, name, plugin.Info.Interface, iface)
	}
	return plugin, nil
}

// Create instantiates the named factory for the given interface.
func (pr *PluginRegistry) Create(name, iface string) (pluginPkg.PipelineFactory, error) {
	plugin, err := pr.Lookup(name, iface)
	if err != nil {
		return nil, err
	}

	factory := plugin.Factory()
	if factory == nil {
		return nil, fmt.Errorf("%w: plugin %s constructor returned nil", pluginPkg.ErrRegistration, name)
	}
	return factory, nil
}

// Names returns the registered plugin names, sorted.
func (pr *PluginRegistry) Names() []string {
	pr.mutex.RLock()
	defer pr.mutex.RUnlock()

	names := make([]string, 0, len(pr.plugins))
	for name := range pr.plugins {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ListPlugins returns information about all registered plugins, sorted by name.
func (pr *PluginRegistry) ListPlugins() []pluginPkg.PluginInfo {
	pr.mutex.RLock()
	defer pr.mutex.RUnlock()

	infos := make([]pluginPkg.PluginInfo, 0, len(pr.plugins))
	for _, plugin := range pr.plugins {
		infos = append(infos, plugin.Info)
	}
	slices.SortFunc(infos, func(a, b pluginPkg.PluginInfo) int {
		return strings.Compare(a.Name, b.Name)
	})
	return infos
}

// Unregister removes a plugin. It reports whether the name was registered.
func (pr *PluginRegistry) Unregister(name string) bool {
	pr.mutex.Lock()
	defer pr.mutex.Unlock()

	plugin, ok := pr.plugins[name]
	if !ok {
		return false
	}
	delete(pr.plugins, name)
	pr.info.DeleteLabelValues(plugin.Info.Name, plugin.Info.Interface, plugin.Info.Version, plugin.Source)
	return true
}
