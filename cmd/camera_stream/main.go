// Command camera_stream forwards the CAM_A stream to a remote viewer until
// the viewer sends the 'q' key.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"dairos.szuro.net/internal/logger"
	"dairos.szuro.net/internal/remote"
	"dairos.szuro.net/pkg/dai"
)

func run(conn *remote.RemoteConnection) error {
	dev := dai.NewSimDevice("sim", "OAK-D", dai.CAM_A, dai.CAM_B, dai.CAM_C)
	p := dai.NewPipeline(dev)
	p.SetLogger(logger.Default().Slog())

	cam, err := p.CreateCamera("camera", dai.CAM_A)
	if err != nil {
		return err
	}
	out, err := cam.RequestOutput(dai.Size{Width: 1280, Height: 800}, dai.NV12, 30)
	if err != nil {
		return err
	}
	if err := conn.AddTopic("stream", out); err != nil {
		return err
	}

	if err := conn.Start(); err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := conn.Stop(ctx); err != nil {
			logger.Error("Failed to stop remote connection", slog.Any("error", err))
		}
	}()

	if err := p.Start(); err != nil {
		return err
	}
	defer p.Stop()

	for {
		if conn.WaitKey(time.Millisecond) == 'q' {
			fmt.Println("Got 'q' key from the remote connection!")
			return nil
		}
	}
}

func main() {
	if err := run(remote.New(remote.DEFAULT_ADDRESS)); err != nil {
		logger.Error("camera_stream failed", slog.Any("error", err))
		os.Exit(1)
	}
}
