package pipelines

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dairos.szuro.net/pkg/dai"
	"dairos.szuro.net/pkg/dainode"
	"dairos.szuro.net/pkg/param"
	"dairos.szuro.net/pkg/plugin"
)

var oakD = []dai.CameraBoardSocket{dai.CAM_A, dai.CAM_B, dai.CAM_C}

func TestBuiltinPipelines(t *testing.T) {
	tests := []struct {
		name     string
		pipeline string
		sockets  []dai.CameraBoardSocket
		rsCompat bool
		nnType   string
		names    []string
		claimed  []dai.CameraBoardSocket
		wantErr  error
	}{
		{name: "RGB", pipeline: RGB, sockets: oakD, names: []string{"rgb"}, claimed: []dai.CameraBoardSocket{dai.CAM_A}},
		{name: "RGB on OAK-1", pipeline: RGB, sockets: []dai.CameraBoardSocket{dai.CAM_A}, names: []string{"rgb"}, claimed: []dai.CameraBoardSocket{dai.CAM_A}},
		{name: "RGB with spatial NN", pipeline: RGB, sockets: oakD, nnType: "spatial", wantErr: plugin.ErrConfig},
		{name: "Stereo", pipeline: STEREO, sockets: oakD, names: []string{"stereo"}, claimed: []dai.CameraBoardSocket{dai.CAM_B, dai.CAM_C}},
		{name: "Stereo on OAK-1", pipeline: STEREO, sockets: []dai.CameraBoardSocket{dai.CAM_A}, wantErr: plugin.ErrDeviceCapability},
		{name: "RGBD", pipeline: RGBD, sockets: oakD, nnType: "rgb", names: []string{"rgb", "stereo"}, claimed: oakD},
		{name: "RGBD compat", pipeline: RGBD, sockets: oakD, rsCompat: true, names: []string{"color", "depth"}, claimed: oakD},
		{name: "RGBD without right", pipeline: RGBD, sockets: []dai.CameraBoardSocket{dai.CAM_A, dai.CAM_B}, wantErr: plugin.ErrDeviceCapability},
		{name: "RGBD unknown NN", pipeline: RGBD, sockets: oakD, nnType: "yolo", wantErr: plugin.ErrConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := dai.NewSimDevice("mx", "OAK", tt.sockets...)
			p := dai.NewPipeline(dev)
			nodes, err := Constructors[tt.pipeline]().CreatePipeline(nil, dev, p, param.Empty, "oak", tt.rsCompat, tt.nnType)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.Empty(t, nodes)
				require.Zero(t, p.NodeCount())
				return
			}
			require.NoError(t, err)
			names := make([]string, 0, len(nodes))
			for _, n := range nodes {
				names = append(names, n.Name())
			}
			assert.Equal(t, tt.names, names)
			assert.Equal(t, tt.claimed, p.ClaimedSockets())
		})
	}
}

func TestRGBDAlignment(t *testing.T) {
	dev := dai.NewSimDevice("mx", "OAK-D", oakD...)

	nodes, err := Constructors[RGBD]().CreatePipeline(nil, dev, dai.NewPipeline(dev), param.Empty, "oak", false, "spatial")
	require.NoError(t, err)
	rgb := nodes[0].(*dainode.SensorWrapper)
	stereo := nodes[1].(*dainode.Stereo)
	assert.Equal(t, dainode.NN_SPATIAL, rgb.NNMode())
	assert.Equal(t, dai.CAM_A, stereo.Align())
	assert.Equal(t, rgb.FrameID(), stereo.FrameID())

	params := param.NewMap(map[string]any{"stereo": map[string]any{"i_align_depth": false}})
	nodes, err = Constructors[RGBD]().CreatePipeline(nil, dev, dai.NewPipeline(dev), params, "oak", false, "")
	require.NoError(t, err)
	assert.Equal(t, dai.AUTO, nodes[1].(*dainode.Stereo).Align())
}

func TestRGBDStereoFailureDetachesRGB(t *testing.T) {
	dev := dai.NewSimDevice("mx", "OAK-D", oakD...)
	p := dai.NewPipeline(dev)
	params := param.NewMap(map[string]any{"stereo.i_fps": "fast"})

	_, err := Constructors[RGBD]().CreatePipeline(nil, dev, p, params, "oak", false, "")
	require.ErrorIs(t, err, plugin.ErrConfig)
	require.ErrorIs(t, err, param.ErrMalformed)
	require.Zero(t, p.NodeCount())
}

func TestInfosMatchConstructors(t *testing.T) {
	require.Len(t, Constructors, len(Infos))
	for _, info := range Infos {
		require.Contains(t, Constructors, info.Name)
		require.Equal(t, plugin.BasePipelineInterface, info.Interface)
	}
}
