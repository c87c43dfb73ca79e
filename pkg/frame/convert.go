package frame

import (
	"fmt"
	"image"
)

// FromYCbCr converts a 4:2:0 YCbCr image into an NV12 frame, reusing dst when
// its dimensions match. Chroma planes are interleaved into Cb/Cr pairs.
func FromYCbCr(img *image.YCbCr, dst *NV12) (*NV12, error) {
	if img.SubsampleRatio != image.YCbCrSubsampleRatio420 {
		return nil, fmt.Errorf("frame: unsupported subsample ratio %v", img.SubsampleRatio)
	}
	w := img.Rect.Dx()
	h := img.Rect.Dy()
	if dst == nil || dst.Width != w || dst.Height != h {
		dst = NewNV12(w, h)
	}

	for row := 0; row < h; row++ {
		copy(dst.Y[row*dst.YStride:], img.Y[row*img.YStride:row*img.YStride+w])
	}
	for row := 0; row < h/2; row++ {
		line := dst.UV[row*dst.UVStride:]
		cb := img.Cb[row*img.CStride:]
		cr := img.Cr[row*img.CStride:]
		for col := 0; col < w/2; col++ {
			line[2*col] = cb[col]
			line[2*col+1] = cr[col]
		}
	}
	return dst, nil
}

// FromRGBA converts an RGBA image into an NV12 frame using BT.601 limited
// range coefficients. Chroma is subsampled from the top-left pixel of each
// 2x2 block.
func FromRGBA(img *image.RGBA, dst *NV12) *NV12 {
	w := img.Rect.Dx()
	h := img.Rect.Dy()
	if dst == nil || dst.Width != w || dst.Height != h {
		dst = NewNV12(w, h)
	}

	for row := 0; row < h; row++ {
		src := img.Pix[row*img.Stride:]
		line := dst.Y[row*dst.YStride:]
		for col := 0; col < w; col++ {
			r := int32(src[4*col])
			g := int32(src[4*col+1])
			b := int32(src[4*col+2])
			line[col] = clamp8(((66*r+129*g+25*b+128)>>8)+16)
		}
	}
	for row := 0; row < h/2; row++ {
		src := img.Pix[2*row*img.Stride:]
		line := dst.UV[row*dst.UVStride:]
		for col := 0; col < w/2; col++ {
			r := int32(src[8*col])
			g := int32(src[8*col+1])
			b := int32(src[8*col+2])
			line[2*col] = clamp8(((-38*r-74*g+112*b+128)>>8)+128)
			line[2*col+1] = clamp8(((112*r-94*g-18*b+128)>>8)+128)
		}
	}
	return dst
}

// FromYUY2 converts packed YUY2 (YUYV) bytes into an NV12 frame. Vertical
// chroma subsampling keeps the top line of each pair.
func FromYUY2(raw []byte, width, height int, dst *NV12) (*NV12, error) {
	if len(raw) < width*height*2 {
		return nil, fmt.Errorf("frame: YUY2 buffer too short: %d bytes for %dx%d", len(raw), width, height)
	}
	if dst == nil || dst.Width != width || dst.Height != height {
		dst = NewNV12(width, height)
	}

	for row := 0; row < height; row++ {
		src := raw[row*width*2:]
		line := dst.Y[row*dst.YStride:]
		for col := 0; col < width; col++ {
			line[col] = src[2*col]
		}
		if row%2 != 0 {
			continue
		}
		uv := dst.UV[row/2*dst.UVStride:]
		for col := 0; col < width/2; col++ {
			uv[2*col] = src[4*col+1]
			uv[2*col+1] = src[4*col+3]
		}
	}
	return dst, nil
}

func clamp8(v int32) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}
