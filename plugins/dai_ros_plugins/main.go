// Command dai_ros_plugins serves the DaiRosPlugins pipeline as an
// out-of-process plugin. Drop the binary into grpc_plugins_dir.
package main

import (
	"log"

	"github.com/hashicorp/go-plugin"

	"dairos.szuro.net/internal/logger"
	"dairos.szuro.net/pkg/dairosplugins"
	pluginPkg "dairos.szuro.net/pkg/plugin"
)

func main() {
	impl := &pluginPkg.FactoryPlanner{
		PluginInfo: dairosplugins.PluginInfo,
		Factory:    dairosplugins.New(),
	}

	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: pluginPkg.Handshake,
		Plugins: map[string]plugin.Plugin{
			pluginPkg.PluginKey: &pluginPkg.PipelinePlugin{Impl: impl},
		},
		GRPCServer: plugin.DefaultGRPCServer,
		Logger:     logger.NewHCLogAdapter(),
	})

	log.Println("Plugin exited")
}
