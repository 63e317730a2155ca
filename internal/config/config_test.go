package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dairos.szuro.net/internal/plugin"
	"dairos.szuro.net/pkg/dai"
	"dairos.szuro.net/pkg/dairosplugins"
	plug "dairos.szuro.net/pkg/plugin"
)

func TestSetPort(t *testing.T) {
	tests := []struct {
		name     string
		input    int
		expected int
	}{
		{"Zero Port", 0, 2021},
		{"Negative Port", -1, 2021},
		{"Non-Zero Port", 8080, 8080},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := HostConf{Http: HTTPConf{ListenPort: tt.input}}
			config.setPort()
			require.Equal(t, tt.expected, config.Http.ListenPort)
		})
	}
}

func TestSetLogLevel(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected slog.Level
	}{
		{"Debug", "DEBUG", slog.LevelDebug},
		{"Lowercase warn", "warn", slog.LevelWarn},
		{"Error", "ERROR", slog.LevelError},
		{"Empty", "", slog.LevelInfo},
		{"Unknown", "FNORD", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := HostConf{LogLevel: tt.input}
			config.setLogLevel()
			require.Equal(t, tt.expected, config.GetLogLevel())
		})
	}
}

func TestSetDevice(t *testing.T) {
	tests := []struct {
		name     string
		input    DeviceConf
		expected DeviceConf
	}{
		{
			name:  "Defaults",
			input: DeviceConf{},
			expected: DeviceConf{
				Name:    "oak",
				MxID:    "sim",
				Product: "OAK-D",
				Sockets: []dai.CameraBoardSocket{dai.CAM_A, dai.CAM_B, dai.CAM_C},
			},
		},
		{
			name:  "Explicit",
			input: DeviceConf{Name: "front", MxID: "1844", Product: "OAK-D-LITE", Sockets: []dai.CameraBoardSocket{dai.CAM_A}},
			expected: DeviceConf{
				Name:    "front",
				MxID:    "1844",
				Product: "OAK-D-LITE",
				Sockets: []dai.CameraBoardSocket{dai.CAM_A},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := HostConf{Device: tt.input}
			config.setDevice()
			require.Equal(t, tt.expected, config.Device)
		})
	}
}

func TestSetPipeline(t *testing.T) {
	tests := []struct {
		name     string
		input    PipelineConf
		expected PipelineConf
	}{
		{"Empty", PipelineConf{}, PipelineConf{Type: "RGBD", Interface: plug.BasePipelineInterface}},
		{"Whitespace", PipelineConf{Type: "  Stereo "}, PipelineConf{Type: "Stereo", Interface: plug.BasePipelineInterface}},
		{"Custom interface", PipelineConf{Type: "x::Y", Interface: "x::Base"}, PipelineConf{Type: "x::Y", Interface: "x::Base"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := HostConf{Pipeline: tt.input}
			config.setPipeline()
			require.Equal(t, tt.expected, config.Pipeline)
		})
	}
}

func TestParseHostConfig(t *testing.T) {
	raw := `
device:
  name: front
  sockets: [CAM_A, left, right]
pipeline:
  type: dai_ros_plugins::DaiRosPlugins
  rs_compat: true
  params:
    left:
      i_fps: 15
http:
  listen_address: 127.0.0.1
log_level: DEBUG
schema_store: true
`
	path := filepath.Join(t.TempDir(), "dairos.yaml")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	conf, err := ParseHostConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "front", conf.Device.Name)
	assert.Equal(t, []dai.CameraBoardSocket{dai.CAM_A, dai.CAM_B, dai.CAM_C}, conf.Device.Sockets)
	assert.Equal(t, dairosplugins.PLUGIN_NAME, conf.Pipeline.Type)
	assert.True(t, conf.Pipeline.RsCompat)
	assert.True(t, conf.SchemaStore)
	assert.Equal(t, "127.0.0.1:2021", conf.Http.Address())
	assert.Equal(t, slog.LevelDebug, conf.GetLogLevel())
	assert.Equal(t, ".", conf.WorkingDir)

	fps, found, err := conf.Pipeline.ParamHandler().GetFloat("left.i_fps")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 15.0, fps)

	dev := conf.Device.Open()
	assert.Equal(t, "sim", dev.MxID())
	assert.Equal(t, []dai.CameraBoardSocket{dai.CAM_A, dai.CAM_B, dai.CAM_C}, dev.ConnectedCameras())
}

func TestParseHostConfigErrors(t *testing.T) {
	_, err := ParseHostConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = ParseHostConfigBytes([]byte("device:\n  sockets: [CAM_Z]\n"))
	require.Error(t, err)

	_, err = ParseHostConfigBytes([]byte("::not yaml"))
	require.Error(t, err)
}

func TestToFactoryFrom(t *testing.T) {
	r := plugin.NewRegistry()
	require.NoError(t, r.Register(dairosplugins.PluginInfo, dairosplugins.New))

	pc := PipelineConf{Type: dairosplugins.PLUGIN_NAME, Interface: plug.BasePipelineInterface}
	factory, err := pc.ToFactoryFrom(r)
	require.NoError(t, err)
	require.NotNil(t, factory)

	pc.Type = "RGBD"
	_, err = pc.ToFactoryFrom(r)
	require.ErrorIs(t, err, plug.ErrRegistration)
}
