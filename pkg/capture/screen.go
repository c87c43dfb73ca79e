package capture

import (
	"errors"
	"fmt"
	"image"

	"github.com/kbinani/screenshot"
	"golang.org/x/image/draw"

	"github.com/cadubentzen/gamescope-recorder/pkg/frame"
)

var errSourceClosed = errors.New("capture: source closed")

type screenSource struct {
	display int
	bounds  image.Rectangle
	width   int
	height  int

	scaled *image.RGBA
	dst    *frame.NV12
	closed bool
}

// NewScreen captures the given display, scaling to width x height. Passing
// zero for both keeps the native display resolution.
func NewScreen(display, width, height int) (Source, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return nil, errors.New("capture: no active displays")
	}
	if display < 0 || display >= n {
		return nil, fmt.Errorf("capture: display %d out of range, have %d", display, n)
	}

	bounds := screenshot.GetDisplayBounds(display)
	if width == 0 && height == 0 {
		width = bounds.Dx()
		height = bounds.Dy()
	}
	// Hardware encoders want even dimensions.
	width &^= 1
	height &^= 1

	return &screenSource{
		display: display,
		bounds:  bounds,
		width:   width,
		height:  height,
	}, nil
}

func (s *screenSource) ReadFrame() (*frame.NV12, error) {
	if s.closed {
		return nil, errSourceClosed
	}

	img, err := screenshot.CaptureRect(s.bounds)
	if err != nil {
		return nil, fmt.Errorf("capture: screenshot: %w", err)
	}

	if img.Rect.Dx() != s.width || img.Rect.Dy() != s.height {
		if s.scaled == nil {
			s.scaled = image.NewRGBA(image.Rect(0, 0, s.width, s.height))
		}
		draw.ApproxBiLinear.Scale(s.scaled, s.scaled.Rect, img, img.Bounds(), draw.Src, nil)
		img = s.scaled
	}

	s.dst = frame.FromRGBA(img, s.dst)
	return s.dst, nil
}

func (s *screenSource) Size() (int, int) {
	return s.width, s.height
}

func (s *screenSource) Close() error {
	s.closed = true
	return nil
}
