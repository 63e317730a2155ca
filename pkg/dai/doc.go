// Package dai provides the device and pipeline model that pipeline factories
// build against.
//
// A Device describes the physical capture hardware: its identity and the camera
// sockets that are actually connected. A Pipeline is the build-time graph of
// nodes owned by the host. Factories add camera and stereo nodes to it, each
// camera node claiming exactly one CameraBoardSocket. Once the host calls Start
// the graph is frozen and every further mutation fails with ErrPipelineRunning.
//
// Example usage:
//
//	dev := dai.NewSimDevice("14442C10D13EABCE00", "OAK-D", dai.CAM_A, dai.CAM_B, dai.CAM_C)
//	p := dai.NewPipeline(dev)
//
//	cam, err := p.CreateCamera("rgb", dai.CAM_A)
//	if err != nil {
//	    // socket taken or pipeline already running
//	}
//	out := cam.RequestOutput(dai.Size{Width: 1280, Height: 800}, dai.NV12, 30)
//
//	p.Start()
//	defer p.Stop()
//	frame, ok := out.Latest()
package dai
