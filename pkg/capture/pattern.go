package capture

import (
	"github.com/cadubentzen/gamescope-recorder/pkg/frame"
)

type patternSource struct {
	f      *frame.NV12
	closed bool
}

// NewPattern returns a source that produces the checkerboard test pattern.
// It never blocks, which makes it useful for benchmarks and for exercising
// the encode path without capture hardware.
func NewPattern(width, height int) (Source, error) {
	f := frame.Checkerboard(width, height)
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &patternSource{f: f}, nil
}

func (s *patternSource) ReadFrame() (*frame.NV12, error) {
	if s.closed {
		return nil, errSourceClosed
	}
	return s.f, nil
}

func (s *patternSource) Size() (int, int) {
	return s.f.Width, s.f.Height
}

func (s *patternSource) Close() error {
	s.closed = true
	return nil
}
