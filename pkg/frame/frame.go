// Package frame provides NV12 frame buffers, procedural test patterns, and
// conversions from the formats produced by capture sources. NV12 is the
// format hardware encoders consume: a full-resolution luma plane followed by
// a half-resolution plane of interleaved Cb/Cr pairs.
package frame

import "fmt"

// NV12 is a single planar YUV 4:2:0 frame with interleaved chroma.
type NV12 struct {
	Y  []byte
	UV []byte

	Width  int
	Height int

	// YStride and UVStride are row lengths in bytes. UVStride counts
	// interleaved Cb/Cr bytes, so an unpadded frame has both equal to Width.
	YStride  int
	UVStride int
}

// NewNV12 allocates an unpadded NV12 frame.
func NewNV12(width, height int) *NV12 {
	return &NV12{
		Y:        make([]byte, width*height),
		UV:       make([]byte, width*height/2),
		Width:    width,
		Height:   height,
		YStride:  width,
		UVStride: width,
	}
}

// Validate checks plane sizes against the frame dimensions.
func (f *NV12) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("frame: invalid dimensions %dx%d", f.Width, f.Height)
	}
	if f.Width%2 != 0 || f.Height%2 != 0 {
		return fmt.Errorf("frame: dimensions %dx%d must be even for 4:2:0", f.Width, f.Height)
	}
	if len(f.Y) < f.YStride*(f.Height-1)+f.Width {
		return fmt.Errorf("frame: luma plane too short: %d bytes", len(f.Y))
	}
	if len(f.UV) < f.UVStride*(f.Height/2-1)+f.Width {
		return fmt.Errorf("frame: chroma plane too short: %d bytes", len(f.UV))
	}
	return nil
}

// CopyTo writes the frame into a destination buffer laid out with the given
// plane offsets and row pitches, as reported by a mapped hardware image.
func (f *NV12) CopyTo(dst []byte, yOffset, uvOffset int, yPitch, uvPitch int) error {
	if err := f.Validate(); err != nil {
		return err
	}
	need := uvOffset + uvPitch*(f.Height/2-1) + f.Width
	if len(dst) < need {
		return fmt.Errorf("frame: destination too short: %d bytes, need %d", len(dst), need)
	}

	for row := 0; row < f.Height; row++ {
		src := f.Y[row*f.YStride:]
		copy(dst[yOffset+row*yPitch:], src[:f.Width])
	}
	for row := 0; row < f.Height/2; row++ {
		src := f.UV[row*f.UVStride:]
		copy(dst[uvOffset+row*uvPitch:], src[:f.Width])
	}
	return nil
}
