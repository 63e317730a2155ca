package remote

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dairos.szuro.net/pkg/dai"
)

func streamOutput(t *testing.T, fps float64) (*dai.Pipeline, *dai.Output) {
	t.Helper()
	dev := dai.NewSimDevice("mx", "OAK-D", dai.CAM_A)
	p := dai.NewPipeline(dev)
	cam, err := p.CreateCamera("color", dai.CAM_A)
	require.NoError(t, err)
	out, err := cam.RequestOutput(dai.Size{Width: 1280, Height: 800}, dai.NV12, fps)
	require.NoError(t, err)
	return p, out
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestAddTopic(t *testing.T) {
	_, out := streamOutput(t, 30)
	r := New("")

	require.NoError(t, r.AddTopic("stream", out))
	require.ErrorIs(t, r.AddTopic("stream", out), ErrTopicExists)
	require.Error(t, r.AddTopic("", out))
	require.Error(t, r.AddTopic("other", nil))
}

func TestGetTopics(t *testing.T) {
	_, out := streamOutput(t, 30)
	r := New("")
	require.NoError(t, r.AddTopic("stream", out))

	w := do(t, r.Handler(), http.MethodGet, "/topics", "")
	require.Equal(t, http.StatusOK, w.Code)

	var infos []topicInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &infos))
	require.Len(t, infos, 1)
	assert.Equal(t, topicInfo{Name: "stream", Width: 1280, Height: 800, Type: dai.NV12, FPS: 30}, infos[0])
}

func TestGetTopic(t *testing.T) {
	p, out := streamOutput(t, 200)
	r := New("")
	require.NoError(t, r.AddTopic("stream", out))

	w := do(t, r.Handler(), http.MethodGet, "/topics/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r.Handler(), http.MethodGet, "/topics/stream", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	require.NoError(t, p.Start())
	defer p.Stop()
	require.Eventually(t, func() bool {
		_, ok := out.Latest()
		return ok
	}, 2*time.Second, 5*time.Millisecond)

	w = do(t, r.Handler(), http.MethodGet, "/topics/stream", "")
	require.Equal(t, http.StatusOK, w.Code)
	var frame frameInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &frame))
	assert.Equal(t, "stream", frame.Topic)
	assert.Equal(t, "CAM_A", frame.Socket)
	assert.Equal(t, dai.NV12, frame.Type)
	assert.Positive(t, frame.Sequence)
}

func TestPostKey(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
		key  int
	}{
		{"Quit", `{"key":"q"}`, http.StatusAccepted, 'q'},
		{"Missing key", `{}`, http.StatusBadRequest, NO_KEY},
		{"Too long", `{"key":"quit"}`, http.StatusBadRequest, NO_KEY},
		{"Not JSON", `q`, http.StatusBadRequest, NO_KEY},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New("")
			w := do(t, r.Handler(), http.MethodPost, "/keys", tt.body)
			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, tt.key, r.WaitKey(time.Millisecond))
		})
	}
}

func TestKeyQueueFull(t *testing.T) {
	r := New("")
	for i := 0; i < keyBuffer; i++ {
		require.True(t, r.PushKey('a'))
	}
	assert.False(t, r.PushKey('b'))

	w := do(t, r.Handler(), http.MethodPost, "/keys", `{"key":"q"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestWaitKeyTimeout(t *testing.T) {
	r := New("")
	start := time.Now()
	assert.Equal(t, NO_KEY, r.WaitKey(10*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)

	go r.PushKey('x')
	assert.Equal(t, int('x'), r.WaitKey(0))
}

func TestStartStop(t *testing.T) {
	r := New("127.0.0.1:0")
	require.NoError(t, r.Start())
	require.NoError(t, r.Stop(t.Context()))
}
