package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"dairos.szuro.net/pkg/dai"
)

const (
	DEFAULT_PORT          = 2021
	DEFAULT_DEVICE_NAME   = "oak"
	DEFAULT_PRODUCT       = "OAK-D"
	DEFAULT_MXID          = "sim"
	DEFAULT_PIPELINE_TYPE = "RGBD"
)

type HostConf struct {
	Device         DeviceConf   `yaml:"device"`
	Pipeline       PipelineConf `yaml:"pipeline"`
	PluginsDir     string       `yaml:"plugins_dir"`
	GRPCPluginsDir string       `yaml:"grpc_plugins_dir"`
	WorkingDir     string       `yaml:"working_dir"`
	SchemaStore    bool         `yaml:"schema_store"`
	Http           HTTPConf     `yaml:"http"`
	LogLevel       string       `yaml:"log_level"`
	slogLevel      slog.Level   `yaml:"omitempty"`
}

// DeviceConf describes the device the host opens. Without hardware access it
// backs a dai.SimDevice.
type DeviceConf struct {
	Name    string                  `yaml:"name"`
	MxID    string                  `yaml:"mxid"`
	Product string                  `yaml:"product"`
	Sockets []dai.CameraBoardSocket `yaml:"sockets"`
}

// Open returns the device handle described by dc.
func (dc DeviceConf) Open() dai.Device {
	return dai.NewSimDevice(dc.MxID, dc.Product, dc.Sockets...)
}

type HTTPConf struct {
	ListenPort    int    `yaml:"listen_port"`
	ListenAddress string `yaml:"listen_address"`
}

// Address returns host:port for net/http.
func (hc HTTPConf) Address() string {
	return fmt.Sprintf("%s:%d", hc.ListenAddress, hc.ListenPort)
}

func (hc *HostConf) setLogLevel() {
	switch strings.ToUpper(hc.LogLevel) {
	case "DEBUG":
		hc.slogLevel = slog.LevelDebug
	case "INFO":
		hc.slogLevel = slog.LevelInfo
	case "WARN":
		hc.slogLevel = slog.LevelWarn
	case "ERROR":
		hc.slogLevel = slog.LevelError
	default:
		hc.slogLevel = slog.LevelInfo
	}
}

func (hc *HostConf) GetLogLevel() slog.Level {
	return hc.slogLevel
}

// ParseHostConfig reads and normalises the YAML file at path.
func ParseHostConfig(path string) (conf HostConf, err error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return conf, fmt.Errorf("cannot read config file %s: %w", path, err)
	}
	return ParseHostConfigBytes(file)
}

// ParseHostConfigBytes is ParseHostConfig for an in-memory document.
func ParseHostConfigBytes(raw []byte) (conf HostConf, err error) {
	conf = HostConf{}
	if err = yaml.Unmarshal(raw, &conf); err != nil {
		return conf, fmt.Errorf("cannot parse config: %w", err)
	}

	conf.setPort()
	conf.setDevice()
	conf.setPipeline()
	conf.setWorkingDir()
	conf.setLogLevel()

	return conf, nil
}

func (hc *HostConf) setPort() {
	if hc.Http.ListenPort <= 0 {
		hc.Http.ListenPort = DEFAULT_PORT
	}
}

func (hc *HostConf) setDevice() {
	if hc.Device.Name == "" {
		hc.Device.Name = DEFAULT_DEVICE_NAME
	}
	if hc.Device.MxID == "" {
		hc.Device.MxID = DEFAULT_MXID
	}
	if hc.Device.Product == "" {
		hc.Device.Product = DEFAULT_PRODUCT
	}
	if len(hc.Device.Sockets) == 0 {
		hc.Device.Sockets = []dai.CameraBoardSocket{dai.CAM_A, dai.CAM_B, dai.CAM_C}
	}
}

func (hc *HostConf) setWorkingDir() {
	if hc.WorkingDir == "" {
		hc.WorkingDir = "."
	}
}
