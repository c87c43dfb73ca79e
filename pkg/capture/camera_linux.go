package capture

import (
	"errors"
	"fmt"

	"github.com/blackjack/webcam"

	"github.com/cadubentzen/gamescope-recorder/pkg/frame"
)

// V4L2 fourcc for packed YUYV 4:2:2, the format nearly every UVC camera
// offers.
const pixelFormatYUYV = webcam.PixelFormat(0x56595559)

var errReadTimeout = errors.New("capture: camera read timeout")

type cameraSource struct {
	cam    *webcam.Webcam
	width  int
	height int
	dst    *frame.NV12
}

// NewCamera opens a V4L2 device and streams YUYV frames from it.
func NewCamera(path string, width, height int) (Source, error) {
	cam, err := webcam.Open(path)
	if err != nil {
		return nil, fmt.Errorf("capture: open %s: %w", path, err)
	}

	_, w, h, err := cam.SetImageFormat(pixelFormatYUYV, uint32(width), uint32(height))
	if err != nil {
		cam.Close()
		return nil, fmt.Errorf("capture: set YUYV %dx%d: %w", width, height, err)
	}
	if err := cam.StartStreaming(); err != nil {
		cam.Close()
		return nil, fmt.Errorf("capture: start streaming: %w", err)
	}

	return &cameraSource{
		cam: cam,
		// The driver may have picked the nearest size it supports.
		width:  int(w),
		height: int(h),
	}, nil
}

func (s *cameraSource) ReadFrame() (*frame.NV12, error) {
	err := s.cam.WaitForFrame(5) // seconds
	switch err.(type) {
	case nil:
	case *webcam.Timeout:
		return nil, errReadTimeout
	default:
		return nil, fmt.Errorf("capture: wait for frame: %w", err)
	}

	raw, err := s.cam.ReadFrame()
	if err != nil {
		return nil, fmt.Errorf("capture: read frame: %w", err)
	}

	s.dst, err = frame.FromYUY2(raw, s.width, s.height, s.dst)
	return s.dst, err
}

func (s *cameraSource) Size() (int, int) {
	return s.width, s.height
}

func (s *cameraSource) Close() error {
	s.cam.StopStreaming()
	return s.cam.Close()
}
