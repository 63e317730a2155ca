package dai

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// FrameType is the pixel format of an output.
type FrameType string

const (
	NV12   FrameType = "NV12"
	BGR888 FrameType = "BGR888i"
	GRAY8  FrameType = "GRAY8"
	RAW16  FrameType = "RAW16"
)

// Size is a resolution in pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// ImgFrame carries the metadata of a produced frame.
type ImgFrame struct {
	Sequence  int64             `json:"sequence"`
	Timestamp time.Time         `json:"timestamp"`
	Socket    CameraBoardSocket `json:"-"`
	Size      Size              `json:"size"`
	Type      FrameType         `json:"type"`
}

// Output is a stream produced by a node once the pipeline runs.
type Output struct {
	nodeID int
	name   string
	socket CameraBoardSocket
	size   Size
	typ    FrameType
	fps    float64

	seq    atomic.Int64
	latest atomic.Pointer[ImgFrame]
}

func (o *Output) Name() string {
	return o.name
}

func (o *Output) NodeID() int {
	return o.nodeID
}

func (o *Output) Size() Size {
	return o.size
}

func (o *Output) Type() FrameType {
	return o.typ
}

func (o *Output) FPS() float64 {
	return o.fps
}

// Latest returns the most recent frame, if any was produced yet.
func (o *Output) Latest() (ImgFrame, bool) {
	f := o.latest.Load()
	if f == nil {
		return ImgFrame{}, false
	}
	return *f, true
}

func (o *Output) emit(now time.Time) {
	o.latest.Store(&ImgFrame{
		Sequence:  o.seq.Add(1),
		Timestamp: now,
		Socket:    o.socket,
		Size:      o.size,
		Type:      o.typ,
	})
}

func (o *Output) produce(stop <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()

	fps := o.fps
	if fps <= 0 || math.IsNaN(fps) {
		fps = 30
	}
	ticker := time.NewTicker(max(time.Duration(float64(time.Second)/fps), time.Nanosecond))
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			o.emit(now)
		}
	}
}
