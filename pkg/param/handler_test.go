package param

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestMapFlattensYAML(t *testing.T) {
	var raw map[string]any
	err := yaml.Unmarshal([]byte(`
left:
  i_fps: 15
  i_resolution: 800p
right:
  i_publish_topic: false
pipeline_gen:
  i_enable_sync: "true"
`), &raw)
	require.NoError(t, err)

	m := NewMap(raw)
	require.Equal(t, []string{
		"left.i_fps",
		"left.i_resolution",
		"pipeline_gen.i_enable_sync",
		"right.i_publish_topic",
	}, m.Keys())

	fps, found, err := m.GetFloat("left.i_fps")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, 15.0, fps)

	res, found, err := m.GetString("left.i_resolution")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "800p", res)

	sync, found, err := m.GetBool("pipeline_gen.i_enable_sync")
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, sync)
}

func TestMapGetters(t *testing.T) {
	m := NewMap(map[string]any{
		"int":      3,
		"float":    2.5,
		"whole":    4.0,
		"bool":     true,
		"str":      "abc",
		"num_str":  " 42 ",
		"bad_bool": "maybe",
		"list":     []any{1, 2},
	})

	tests := []struct {
		name      string
		get       func() (any, bool, error)
		expected  any
		found     bool
		malformed bool
	}{
		{"Int", func() (any, bool, error) { return m.GetInt("int") }, 3, true, false},
		{"Int from whole float", func() (any, bool, error) { return m.GetInt("whole") }, 4, true, false},
		{"Int from fraction", func() (any, bool, error) { return m.GetInt("float") }, 0, true, true},
		{"Int from string", func() (any, bool, error) { return m.GetInt("num_str") }, 42, true, false},
		{"Float from int", func() (any, bool, error) { return m.GetFloat("int") }, 3.0, true, false},
		{"Bool", func() (any, bool, error) { return m.GetBool("bool") }, true, true, false},
		{"Bool malformed", func() (any, bool, error) { return m.GetBool("bad_bool") }, false, true, true},
		{"String from list", func() (any, bool, error) { return m.GetString("list") }, "", true, true},
		{"Missing", func() (any, bool, error) { return m.GetString("nope") }, "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, found, err := tt.get()
			require.Equal(t, tt.found, found)
			if tt.malformed {
				require.ErrorIs(t, err, ErrMalformed)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.expected, v)
		})
	}
}

func TestEmpty(t *testing.T) {
	require.Empty(t, Empty.Keys())
	_, found, err := Empty.GetBool("anything")
	require.False(t, found)
	require.NoError(t, err)
}

func TestExport(t *testing.T) {
	m := NewMap(map[string]any{"left": map[string]any{"i_fps": 10}})
	require.Equal(t, map[string]any{"left.i_fps": 10}, Export(m))
	require.Empty(t, Export(nil))

	exported := Export(m)
	exported["left.i_fps"] = 99
	v, _, _ := m.GetInt("left.i_fps")
	require.Equal(t, 10, v)
}
