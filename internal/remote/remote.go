// Package remote exposes pipeline outputs to a remote viewer over HTTP and
// relays key presses back to the program.
package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"dairos.szuro.net/internal/logger"
	"dairos.szuro.net/pkg/dai"
)

const DEFAULT_ADDRESS = ":8082"

// NO_KEY is returned by WaitKey when no key arrived in time.
const NO_KEY = -1

const keyBuffer = 16

var (
	ErrTopicExists = errors.New("topic already exists")
	ErrNoTopic     = errors.New("topic not found")
)

var keysReceived = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "dairos_remote_keys_total",
	Help: "Key presses received from remote viewers",
}, []string{"result"})

type topicInfo struct {
	Name   string        `json:"name"`
	Width  int           `json:"width"`
	Height int           `json:"height"`
	Type   dai.FrameType `json:"type"`
	FPS    float64       `json:"fps"`
}

type frameInfo struct {
	Topic     string        `json:"topic"`
	Sequence  int64         `json:"sequence"`
	Timestamp time.Time     `json:"timestamp"`
	Socket    string        `json:"socket"`
	Width     int           `json:"width"`
	Height    int           `json:"height"`
	Type      dai.FrameType `json:"type"`
}

type keyRequest struct {
	Key string `json:"key" binding:"required"`
}

// RemoteConnection serves the registered topics and collects key presses.
type RemoteConnection struct {
	mu     sync.RWMutex
	topics map[string]*dai.Output
	order  []string
	keys   chan rune

	router *gin.Engine
	server *http.Server
	addr   string
}

// New creates a connection that will listen on addr once started.
func New(addr string) *RemoteConnection {
	if addr == "" {
		addr = DEFAULT_ADDRESS
	}
	gin.SetMode(gin.ReleaseMode)
	r := &RemoteConnection{
		topics: make(map[string]*dai.Output),
		keys:   make(chan rune, keyBuffer),
		router: gin.New(),
		addr:   addr,
	}
	r.router.Use(gin.Recovery(), requestLogger())
	r.setupRoutes()
	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("Remote request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("took", time.Since(start)))
	}
}

func (r *RemoteConnection) setupRoutes() {
	topics := r.router.Group("/topics")
	{
		topics.GET("", r.getTopics)
		topics.GET("/:name", r.getTopic)
	}
	r.router.POST("/keys", r.postKey)
}

// Handler returns the HTTP handler, mostly for tests.
func (r *RemoteConnection) Handler() http.Handler {
	return r.router
}

// AddTopic publishes out under name.
func (r *RemoteConnection) AddTopic(name string, out *dai.Output) error {
	if name == "" || out == nil {
		return fmt.Errorf("topic needs a name and an output")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.topics[name]; ok {
		return fmt.Errorf("%w: %s", ErrTopicExists, name)
	}
	r.topics[name] = out
	r.order = append(r.order, name)
	logger.Info("Added remote topic", slog.String("topic", name), slog.String("output", out.Name()))
	return nil
}

// Start binds the listener and serves in the background.
func (r *RemoteConnection) Start() error {
	lis, err := net.Listen("tcp", r.addr)
	if err != nil {
		return fmt.Errorf("cannot listen on %s: %w", r.addr, err)
	}
	r.server = &http.Server{Handler: r.router}
	go func() {
		if err := r.server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Remote connection stopped", slog.Any("error", err))
		}
	}()
	logger.Info("Remote connection listening", slog.String("address", lis.Addr().String()))
	return nil
}

// Stop shuts the server down.
func (r *RemoteConnection) Stop(ctx context.Context) error {
	if r.server == nil {
		return nil
	}
	return r.server.Shutdown(ctx)
}

// WaitKey blocks up to timeout for a key press. A non-positive timeout
// waits forever. It returns NO_KEY when nothing arrived.
func (r *RemoteConnection) WaitKey(timeout time.Duration) int {
	if timeout <= 0 {
		return int(<-r.keys)
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case k := <-r.keys:
		return int(k)
	case <-timer.C:
		return NO_KEY
	}
}

// PushKey queues a key press. It reports false when the queue is full.
func (r *RemoteConnection) PushKey(k rune) bool {
	select {
	case r.keys <- k:
		keysReceived.WithLabelValues("queued").Inc()
		return true
	default:
		keysReceived.WithLabelValues("dropped").Inc()
		return false
	}
}

func (r *RemoteConnection) getTopics(c *gin.Context) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]topicInfo, 0, len(r.order))
	for _, name := range r.order {
		out := r.topics[name]
		infos = append(infos, topicInfo{
			Name:   name,
			Width:  out.Size().Width,
			Height: out.Size().Height,
			Type:   out.Type(),
			FPS:    out.FPS(),
		})
	}
	c.JSON(http.StatusOK, infos)
}

func (r *RemoteConnection) getTopic(c *gin.Context) {
	name := c.Param("name")
	r.mu.RLock()
	out, ok := r.topics[name]
	r.mu.RUnlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("%v: %s", ErrNoTopic, name)})
		return
	}

	frame, ok := out.Latest()
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, frameInfo{
		Topic:     name,
		Sequence:  frame.Sequence,
		Timestamp: frame.Timestamp,
		Socket:    frame.Socket.String(),
		Width:     frame.Size.Width,
		Height:    frame.Size.Height,
		Type:      frame.Type,
	})
}

func (r *RemoteConnection) postKey(c *gin.Context) {
	var req keyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	keys := []rune(req.Key)
	if len(keys) != 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key must be a single character"})
		return
	}
	if !r.PushKey(keys[0]) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "key queue full"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"key": req.Key})
}
