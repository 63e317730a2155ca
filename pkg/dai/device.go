package dai

import (
	"fmt"
	"slices"
)

// Device is a read-only view of the attached capture hardware.
type Device interface {
	// MxID returns the unique hardware identifier.
	MxID() string

	// ProductName returns the product name, e.g. "OAK-D-PRO".
	ProductName() string

	// ConnectedCameras returns the sockets with a sensor attached, in socket order.
	ConnectedCameras() []CameraBoardSocket
}

// CapabilityError reports a socket that the device does not expose.
type CapabilityError struct {
	Device string
	Socket CameraBoardSocket
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("socket %s is not connected on device %s", e.Socket, e.Device)
}

// HasCamera reports whether socket is connected on dev.
func HasCamera(dev Device, socket CameraBoardSocket) bool {
	return slices.Contains(dev.ConnectedCameras(), socket)
}

// RequireCameras returns a *CapabilityError for the first socket that dev does
// not expose, or nil if all of them are connected.
func RequireCameras(dev Device, sockets ...CameraBoardSocket) error {
	for _, s := range sockets {
		if !HasCamera(dev, s) {
			return &CapabilityError{Device: dev.MxID(), Socket: s}
		}
	}
	return nil
}

// SimDevice is a Device backed by static data. It is used by the host when no
// physical device is attached and by tests.
type SimDevice struct {
	mxID    string
	product string
	sockets []CameraBoardSocket
}

// NewSimDevice creates a device exposing the given sockets. Duplicates are
// dropped and the list is kept in socket order.
func NewSimDevice(mxID, product string, sockets ...CameraBoardSocket) *SimDevice {
	s := slices.Clone(sockets)
	slices.Sort(s)
	return &SimDevice{
		mxID:    mxID,
		product: product,
		sockets: slices.Compact(s),
	}
}

func (d *SimDevice) MxID() string {
	return d.mxID
}

func (d *SimDevice) ProductName() string {
	return d.product
}

func (d *SimDevice) ConnectedCameras() []CameraBoardSocket {
	return slices.Clone(d.sockets)
}
