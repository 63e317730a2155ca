package dainode

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dairos.szuro.net/pkg/dai"
	"dairos.szuro.net/pkg/param"
)

type testContext struct{}

func (testContext) Name() string         { return "oak" }
func (testContext) Namespace() string    { return "/" }
func (testContext) Logger() *slog.Logger { return slog.Default() }

func stereoDevice() dai.Device {
	return dai.NewSimDevice("mx", "OAK-D", dai.CAM_A, dai.CAM_B, dai.CAM_C)
}

func TestSensorWrapperNaming(t *testing.T) {
	tests := []struct {
		name     string
		rsCompat bool
		frameID  string
		topics   []string
	}{
		{
			name:    "Driver convention",
			frameID: "oak_left_camera_optical_frame",
			topics:  []string{"/oak/left/image_raw", "/oak/left/camera_info"},
		},
		{
			name:     "RealSense compatible",
			rsCompat: true,
			frameID:  "oak_left_optical_frame",
			topics:   []string{"/oak/left/image_rect_raw", "/oak/left/camera_info"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := dai.NewPipeline(stereoDevice())
			s, err := NewSensorWrapper("left", testContext{}, p, param.Empty, "oak", tt.rsCompat, dai.CAM_B)
			require.NoError(t, err)
			assert.Equal(t, tt.frameID, s.FrameID())
			assert.Equal(t, tt.topics, s.Topics())
			assert.Equal(t, []dai.CameraBoardSocket{dai.CAM_B}, s.Sockets())
			assert.True(t, s.Attached())
		})
	}
}

func TestSensorWrapperOptions(t *testing.T) {
	tests := []struct {
		name      string
		params    map[string]any
		socket    dai.CameraBoardSocket
		size      dai.Size
		fps       float64
		typ       dai.FrameType
		malformed bool
	}{
		{name: "Mono defaults", socket: dai.CAM_B, size: dai.Size{Width: 1280, Height: 800}, fps: 30, typ: dai.GRAY8},
		{name: "Colour defaults", socket: dai.CAM_A, size: dai.Size{Width: 1920, Height: 1080}, fps: 30, typ: dai.NV12},
		{
			name:   "Overrides",
			params: map[string]any{"cam": map[string]any{"i_resolution": "400P", "i_fps": 15}},
			socket: dai.CAM_B, size: dai.Size{Width: 640, Height: 400}, fps: 15, typ: dai.GRAY8,
		},
		{
			name:   "Other nodes are ignored",
			params: map[string]any{"other.i_fps": "fast"},
			socket: dai.CAM_C, size: dai.Size{Width: 1280, Height: 800}, fps: 30, typ: dai.GRAY8,
		},
		{name: "Unknown resolution", params: map[string]any{"cam.i_resolution": "3k"}, socket: dai.CAM_B, malformed: true},
		{name: "Negative fps", params: map[string]any{"cam.i_fps": -1}, socket: dai.CAM_B, malformed: true},
		{name: "NaN fps", params: map[string]any{"cam.i_fps": "NaN"}, socket: dai.CAM_B, malformed: true},
		{name: "Infinite fps", params: map[string]any{"cam.i_fps": "+Inf"}, socket: dai.CAM_B, malformed: true},
		{name: "Sub-nanosecond period", params: map[string]any{"cam.i_fps": 5e9}, socket: dai.CAM_B, malformed: true},
		{name: "Bad publish flag", params: map[string]any{"cam.i_publish_topic": "sometimes"}, socket: dai.CAM_B, malformed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := dai.NewPipeline(stereoDevice())
			s, err := NewSensorWrapper("cam", testContext{}, p, param.NewMap(tt.params), "oak", false, tt.socket)
			if tt.malformed {
				require.ErrorIs(t, err, param.ErrMalformed)
				require.Zero(t, p.NodeCount())
				return
			}
			require.NoError(t, err)
			out := s.Output()
			require.NotNil(t, out)
			assert.Equal(t, tt.size, out.Size())
			assert.Equal(t, tt.fps, out.FPS())
			assert.Equal(t, tt.typ, out.Type())
		})
	}
}

func TestSensorWrapperMissingSocket(t *testing.T) {
	p := dai.NewPipeline(dai.NewSimDevice("mx", "OAK-1", dai.CAM_A))
	_, err := NewSensorWrapper("left", testContext{}, p, param.Empty, "oak", false, dai.CAM_B)
	var capErr *dai.CapabilityError
	require.ErrorAs(t, err, &capErr)
	require.Zero(t, p.NodeCount())
}

func TestSensorWrapperDetachAndQueues(t *testing.T) {
	dev := stereoDevice()
	p := dai.NewPipeline(dev)
	s, err := NewSensorWrapper("rgb", testContext{}, p, param.Empty, "oak", false, dai.CAM_A, WithNNMode(NN_SPATIAL))
	require.NoError(t, err)
	require.Contains(t, s.Topics(), "/oak/nn/spatial_detections")

	require.Error(t, s.Attach(p))

	require.NoError(t, s.Detach())
	require.False(t, s.Attached())
	require.Zero(t, p.NodeCount())
	require.Error(t, s.SetupQueues(dev))

	require.NoError(t, s.Attach(p))
	require.NoError(t, s.SetupQueues(dev))
	require.True(t, s.QueuesOpen())
	s.CloseQueues()
	require.False(t, s.QueuesOpen())
}

func TestStereo(t *testing.T) {
	t.Run("Aligned to colour", func(t *testing.T) {
		p := dai.NewPipeline(stereoDevice())
		s, err := NewStereo("stereo", testContext{}, p, param.Empty, "oak", false, dai.CAM_B, dai.CAM_C, dai.CAM_A)
		require.NoError(t, err)
		assert.Equal(t, dai.CAM_A, s.Align())
		assert.Equal(t, "oak_rgb_camera_optical_frame", s.FrameID())
		assert.Equal(t, []dai.CameraBoardSocket{dai.CAM_B, dai.CAM_C}, p.ClaimedSockets())
		assert.Equal(t, 3, p.NodeCount())
		assert.Equal(t, dai.RAW16, s.Depth().Type())
	})

	t.Run("Alignment disabled", func(t *testing.T) {
		p := dai.NewPipeline(stereoDevice())
		params := param.NewMap(map[string]any{"stereo.i_align_depth": false})
		s, err := NewStereo("stereo", testContext{}, p, params, "oak", true, dai.CAM_B, dai.CAM_C, dai.CAM_A)
		require.NoError(t, err)
		assert.Equal(t, dai.AUTO, s.Align())
		assert.Equal(t, "oak_stereo_optical_frame", s.FrameID())
	})

	t.Run("Right socket missing leaves nothing attached", func(t *testing.T) {
		p := dai.NewPipeline(dai.NewSimDevice("mx", "OAK-1", dai.CAM_A, dai.CAM_B))
		_, err := NewStereo("stereo", testContext{}, p, param.Empty, "oak", false, dai.CAM_B, dai.CAM_C, dai.CAM_A)
		var capErr *dai.CapabilityError
		require.ErrorAs(t, err, &capErr)
		require.Equal(t, dai.CAM_C, capErr.Socket)
		require.Zero(t, p.NodeCount())
	})

	t.Run("Claimed socket rolls back", func(t *testing.T) {
		p := dai.NewPipeline(stereoDevice())
		_, err := p.CreateCamera("taken", dai.CAM_C)
		require.NoError(t, err)
		_, err = NewStereo("stereo", testContext{}, p, param.Empty, "oak", false, dai.CAM_B, dai.CAM_C, dai.CAM_A)
		require.ErrorIs(t, err, dai.ErrSocketClaimed)
		require.Equal(t, 1, p.NodeCount())
		require.Equal(t, []dai.CameraBoardSocket{dai.CAM_C}, p.ClaimedSockets())
	})

	t.Run("Detach", func(t *testing.T) {
		p := dai.NewPipeline(stereoDevice())
		s, err := NewStereo("stereo", testContext{}, p, param.Empty, "oak", false, dai.CAM_B, dai.CAM_C, dai.CAM_A)
		require.NoError(t, err)
		require.NoError(t, s.Detach())
		require.Zero(t, p.NodeCount())
		require.Nil(t, s.Depth())
	})
}
