package dai

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseCameraBoardSocket(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected CameraBoardSocket
		wantErr  bool
	}{
		{"Canonical", "CAM_B", CAM_B, false},
		{"Lower case", "cam_c", CAM_C, false},
		{"Legacy left", "LEFT", CAM_B, false},
		{"Legacy rgb", "rgb", CAM_A, false},
		{"Auto", "AUTO", AUTO, false},
		{"Unknown", "CAM_Z", AUTO, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := ParseCameraBoardSocket(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.expected, s)
		})
	}
}

func TestCameraBoardSocketYAML(t *testing.T) {
	var doc struct {
		Sockets []CameraBoardSocket `yaml:"sockets"`
	}
	err := yaml.Unmarshal([]byte("sockets: [CAM_A, right, cam_d]"), &doc)
	require.NoError(t, err)
	require.Equal(t, []CameraBoardSocket{CAM_A, CAM_C, CAM_D}, doc.Sockets)

	out, err := yaml.Marshal(doc)
	require.NoError(t, err)
	require.Contains(t, string(out), "CAM_C")

	err = yaml.Unmarshal([]byte("sockets: [FRONT]"), &doc)
	require.Error(t, err)
}

func TestSimDeviceSockets(t *testing.T) {
	dev := NewSimDevice("mx", "OAK-D", CAM_C, CAM_A, CAM_C, CAM_B)
	require.Equal(t, []CameraBoardSocket{CAM_A, CAM_B, CAM_C}, dev.ConnectedCameras())
	require.True(t, HasCamera(dev, CAM_B))
	require.False(t, HasCamera(dev, CAM_D))

	err := RequireCameras(dev, CAM_B, CAM_D)
	var capErr *CapabilityError
	require.ErrorAs(t, err, &capErr)
	require.Equal(t, CAM_D, capErr.Socket)
	require.Equal(t, "mx", capErr.Device)
}
