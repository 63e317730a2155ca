package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dairos.szuro.net/internal/config"
	"dairos.szuro.net/internal/driver"
	"dairos.szuro.net/internal/logger"
	"dairos.szuro.net/internal/pipelines"
	"dairos.szuro.net/internal/plugin"
	"dairos.szuro.net/internal/schema"
	"dairos.szuro.net/pkg/dairosplugins"
)

func printVersionInfo() {
	fmt.Printf("dairos %s\n", config.Version)
	fmt.Printf("Git commit: %s\n", config.Commit)
	fmt.Printf("Compilation time: %s\n", config.BuildDate)
}

func registerBuiltins(r *plugin.PluginRegistry) {
	for _, info := range pipelines.Infos {
		if err := r.Register(info, pipelines.Constructors[info.Name]); err != nil {
			logger.Error("Failed to register built-in pipeline", slog.String("name", info.Name), slog.Any("error", err))
		}
	}
	if err := r.Register(dairosplugins.PluginInfo, dairosplugins.New); err != nil {
		logger.Error("Failed to register plugin", slog.String("name", dairosplugins.PLUGIN_NAME), slog.Any("error", err))
	}
}

func main() {
	confPath := flag.String("c", "/etc/dairos/daihost.yaml", "Path of config file")
	version := flag.Bool("v", false, "Show version info")
	flag.Parse()

	if *version {
		printVersionInfo()
		os.Exit(0)
	}

	os.Exit(run(*confPath))
}

// run owns every resource of the host so deferred cleanup happens before the
// process exits.
func run(confPath string) int {
	hostConfig, err := config.ParseHostConfig(confPath)
	if err != nil {
		logger.Error("Cannot load config", slog.Any("error", err))
		return 1
	}
	logger.SetLogLevel(hostConfig.GetLogLevel())

	registry := plugin.GetRegistry()
	registerBuiltins(registry)

	// Load plugins if plugin directory is configured
	if hostConfig.PluginsDir != "" {
		if err := registry.LoadPluginsFromDir(hostConfig.PluginsDir); err != nil {
			logger.Error("Failed to load plugins", slog.Any("error", err))
			// Continue execution - plugins are optional
		}
	}
	if hostConfig.GRPCPluginsDir != "" {
		defer plugin.GetGRPCRegistry().CleanupAll()
		if err := plugin.GetGRPCRegistry().LoadPluginsFromDir(hostConfig.GRPCPluginsDir); err != nil {
			logger.Error("Failed to load gRPC plugins", slog.Any("error", err))
		}
	}

	for _, p := range registry.ListPlugins() {
		logger.Info("Available pipeline",
			slog.String("name", p.Name),
			slog.String("version", p.Version))
	}

	var store *schema.Store
	if hostConfig.SchemaStore {
		store, err = schema.Open(filepath.Join(hostConfig.WorkingDir, "schemas"), 0)
		if err != nil {
			logger.Error("Schema store disabled", slog.Any("error", err))
			store = nil
		} else {
			defer store.Close()
		}
	}

	config.DairosInfo.Set(1)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(hostConfig.Http.Address(), mux); err != nil {
			logger.Error("Metrics server stopped", slog.Any("error", err))
		}
	}()

	drv, err := driver.FromConfig(hostConfig, registry, store)
	if err != nil {
		logger.Error("Cannot resolve pipeline", slog.String("type", hostConfig.Pipeline.Type), slog.Any("error", err))
		return 1
	}
	if err := drv.Setup(); err != nil {
		logger.Error("Pipeline setup failed", slog.Any("error", err))
		return 1
	}
	logger.Info("Driver running", slog.String("session", drv.Session()))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGINT)
	for {
		switch <-sig {
		case syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGINT:
			if err := drv.Stop(); err != nil {
				logger.Error("stopping failed", slog.Any("error", err))
			}
			logger.Info("Exiting...")
			return 0
		default:
			return 0
		}
	}
}
