package driver

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"dairos.szuro.net/pkg/plugin"
)

// Build results reported by dairos_pipeline_builds_total.
const (
	RESULT_OK           = "ok"
	RESULT_CONFIG       = "config"
	RESULT_CAPABILITY   = "capability"
	RESULT_REGISTRATION = "registration"
	RESULT_INVALID      = "invalid"
	RESULT_START        = "start"
)

var (
	pipelineBuilds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dairos_pipeline_builds_total",
		Help: "Pipeline builds by result",
	}, []string{"result"})

	pipelineNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dairos_pipeline_nodes",
		Help: "Nodes owned by the running pipeline",
	})
)

func resultOf(err error) string {
	switch {
	case err == nil:
		return RESULT_OK
	case errors.Is(err, plugin.ErrRegistration):
		return RESULT_REGISTRATION
	case errors.Is(err, plugin.ErrDeviceCapability):
		return RESULT_CAPABILITY
	case errors.Is(err, ErrInvalidNodes):
		return RESULT_INVALID
	case errors.Is(err, ErrStart):
		return RESULT_START
	default:
		return RESULT_CONFIG
	}
}
