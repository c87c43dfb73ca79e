// Package capture provides raw video sources that hand frames to the
// encoder: the physical screen, a V4L2 camera, and a synthetic test pattern.
package capture

import "github.com/cadubentzen/gamescope-recorder/pkg/frame"

// Source produces NV12 frames of a fixed size until closed. ReadFrame may
// reuse the returned frame's planes on the next call, so callers that hold
// on to a frame must copy it.
type Source interface {
	ReadFrame() (*frame.NV12, error)
	Size() (width, height int)
	Close() error
}
