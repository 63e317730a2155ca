package plugin

import (
	"errors"
	"fmt"

	"dairos.szuro.net/pkg/dai"
	"dairos.szuro.net/pkg/dainode"
	"dairos.szuro.net/pkg/param"
)

var (
	// ErrConfig marks a missing or malformed configuration option.
	ErrConfig = errors.New("pipeline configuration error")

	// ErrDeviceCapability marks a socket the attached device does not expose.
	ErrDeviceCapability = errors.New("device capability error")

	// ErrRegistration marks a factory the host could not resolve.
	ErrRegistration = errors.New("plugin registration error")
)

// ConstructionError is returned by factories and the host when pipeline
// construction fails. It matches both its Kind and the underlying cause with
// errors.Is and errors.As.
type ConstructionError struct {
	Kind   error
	Plugin string
	Err    error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Plugin, e.Kind, e.Err)
}

func (e *ConstructionError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// Classify wraps err into a *ConstructionError with a Kind derived from the
// cause. Errors that are already classified are returned unchanged.
func Classify(pluginName string, err error) error {
	if err == nil {
		return nil
	}
	var ce *ConstructionError
	if errors.As(err, &ce) {
		return err
	}

	kind := ErrConfig
	var capErr *dai.CapabilityError
	switch {
	case errors.As(err, &capErr), errors.Is(err, ErrDeviceCapability):
		kind = ErrDeviceCapability
	case errors.Is(err, ErrRegistration):
		kind = ErrRegistration
	}
	return &ConstructionError{Kind: kind, Plugin: pluginName, Err: err}
}

// CheckInputs validates the arguments every factory relies on.
func CheckInputs(dev dai.Device, p *dai.Pipeline) error {
	if dev == nil {
		return fmt.Errorf("%w: device handle is nil", ErrConfig)
	}
	if p == nil {
		return fmt.Errorf("%w: pipeline is nil", ErrConfig)
	}
	if p.IsFrozen() {
		return fmt.Errorf("%w: %w", ErrConfig, dai.ErrPipelineFrozen)
	}
	return nil
}

// Detach removes already attached nodes in reverse order. Factories call it
// when a later node fails so the pipeline keeps no partial result.
func Detach(nodes []dainode.Node) error {
	var errs []error
	for i := len(nodes) - 1; i >= 0; i-- {
		if err := nodes[i].Detach(); err != nil {
			errs = append(errs, fmt.Errorf("detaching %s: %w", nodes[i].Name(), err))
		}
	}
	return errors.Join(errs...)
}

// IsConfigError reports whether err is a configuration problem, including
// malformed parameters.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrConfig) || errors.Is(err, param.ErrMalformed)
}
