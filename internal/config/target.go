package config

import (
	"fmt"
	"strings"

	"dairos.szuro.net/internal/plugin"
	"dairos.szuro.net/pkg/param"
	plug "dairos.szuro.net/pkg/plugin"
)

// PipelineConf selects the pipeline factory and the arguments it is called
// with.
type PipelineConf struct {
	Type      string         `yaml:"type"`
	Interface string         `yaml:"interface"`
	RsCompat  bool           `yaml:"rs_compat"`
	NNType    string         `yaml:"nn_type"`
	Params    map[string]any `yaml:"params"`
}

func (hc *HostConf) setPipeline() {
	hc.Pipeline.Type = strings.TrimSpace(hc.Pipeline.Type)
	if hc.Pipeline.Type == "" {
		hc.Pipeline.Type = DEFAULT_PIPELINE_TYPE
	}
	if hc.Pipeline.Interface == "" {
		hc.Pipeline.Interface = plug.BasePipelineInterface
	}
}

// ParamHandler exposes Params to factories.
func (pc PipelineConf) ParamHandler() *param.Map {
	return param.NewMap(pc.Params)
}

// ToFactoryFrom resolves Type in r.
func (pc PipelineConf) ToFactoryFrom(r *plugin.PluginRegistry) (plug.PipelineFactory, error) {
	factory, err := r.Create(pc.Type, pc.Interface)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline factory %s: %w", pc.Type, err)
	}
	return factory, nil
}
