package frame

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckerboard(t *testing.T) {
	f := Checkerboard(128, 96)
	require.NoError(t, f.Validate())

	// Top-left block is black, its right neighbor white.
	assert.Equal(t, byte(PatternBlack), f.Y[0])
	assert.Equal(t, byte(PatternWhite), f.Y[PatternBlockSize])
	// One block down the parity flips.
	assert.Equal(t, byte(PatternWhite), f.Y[PatternBlockSize*f.YStride])
	assert.Equal(t, byte(PatternBlack), f.Y[PatternBlockSize*f.YStride+PatternBlockSize])

	for i, v := range f.UV {
		if v != 128 {
			t.Fatalf("chroma byte %d is %d, want neutral 128", i, v)
		}
	}

	assert.Equal(t, f.Y, Checkerboard(128, 96).Y)
}

func TestCheckerboardPartialBlocks(t *testing.T) {
	// 50x34 does not divide evenly into 32x32 blocks.
	f := Checkerboard(50, 34)
	require.NoError(t, f.Validate())
	assert.Equal(t, byte(PatternBlack), f.Y[0])
	assert.Equal(t, byte(PatternWhite), f.Y[49])
	assert.Equal(t, byte(PatternWhite), f.Y[33*f.YStride])
}

func TestValidate(t *testing.T) {
	f := NewNV12(64, 48)
	require.NoError(t, f.Validate())

	f.Width = 63
	assert.Error(t, f.Validate())

	f = NewNV12(64, 48)
	f.Y = f.Y[:10]
	assert.Error(t, f.Validate())

	f = NewNV12(64, 48)
	f.UV = f.UV[:10]
	assert.Error(t, f.Validate())

	assert.Error(t, (&NV12{}).Validate())
}

func TestCopyTo(t *testing.T) {
	f := Checkerboard(64, 32)

	// Padded layout: pitch wider than the row, chroma plane offset past the
	// padded luma plane.
	yPitch, uvPitch := 80, 80
	uvOffset := yPitch * 32
	dst := make([]byte, uvOffset+uvPitch*16)
	require.NoError(t, f.CopyTo(dst, 0, uvOffset, yPitch, uvPitch))

	for row := 0; row < 32; row++ {
		assert.Equal(t, f.Y[row*f.YStride:row*f.YStride+64], dst[row*yPitch:row*yPitch+64])
	}
	assert.Equal(t, byte(128), dst[uvOffset])

	require.Error(t, f.CopyTo(make([]byte, 10), 0, uvOffset, yPitch, uvPitch))
}

func TestFromRGBA(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	// First 2x2 block red, second white.
	for _, p := range []struct{ x, y int }{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
		i := img.PixOffset(p.x, p.y)
		img.Pix[i] = 255
		img.Pix[i+3] = 255
	}
	for _, p := range []struct{ x, y int }{{2, 0}, {3, 0}, {2, 1}, {3, 1}} {
		i := img.PixOffset(p.x, p.y)
		img.Pix[i] = 255
		img.Pix[i+1] = 255
		img.Pix[i+2] = 255
		img.Pix[i+3] = 255
	}

	f := FromRGBA(img, nil)
	require.NoError(t, f.Validate())

	// BT.601 limited range: red is roughly (82, 90, 240), white (235, 128, 128).
	assert.InDelta(t, 82, f.Y[0], 1)
	assert.InDelta(t, 90, f.UV[0], 1)
	assert.InDelta(t, 240, f.UV[1], 1)
	assert.InDelta(t, 235, f.Y[2], 1)
	assert.InDelta(t, 128, f.UV[2], 1)
	assert.InDelta(t, 128, f.UV[3], 1)
}

func TestFromYCbCr(t *testing.T) {
	img := image.NewYCbCr(image.Rect(0, 0, 4, 4), image.YCbCrSubsampleRatio420)
	for i := range img.Y {
		img.Y[i] = byte(i)
	}
	for i := range img.Cb {
		img.Cb[i] = 100
		img.Cr[i] = 200
	}

	f, err := FromYCbCr(img, nil)
	require.NoError(t, err)
	assert.Equal(t, img.Y, f.Y)
	assert.Equal(t, []byte{100, 200, 100, 200, 100, 200, 100, 200}, f.UV)

	img422 := image.NewYCbCr(image.Rect(0, 0, 4, 4), image.YCbCrSubsampleRatio422)
	_, err = FromYCbCr(img422, nil)
	require.Error(t, err)
}

func TestFromYUY2(t *testing.T) {
	// Two lines of 2 pixels: Y0 U Y1 V per pair.
	raw := []byte{
		10, 100, 20, 200,
		30, 101, 40, 201,
	}
	f, err := FromYUY2(raw, 2, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{10, 20, 30, 40}, f.Y)
	// Chroma comes from the even line.
	assert.Equal(t, []byte{100, 200}, f.UV)

	_, err = FromYUY2(raw[:3], 2, 2, nil)
	require.Error(t, err)
}

func TestFromYCbCrReusesDst(t *testing.T) {
	img := image.NewYCbCr(image.Rect(0, 0, 4, 4), image.YCbCrSubsampleRatio420)
	dst := NewNV12(4, 4)
	got, err := FromYCbCr(img, dst)
	require.NoError(t, err)
	assert.Same(t, dst, got)

	small := image.NewYCbCr(image.Rect(0, 0, 2, 2), image.YCbCrSubsampleRatio420)
	got, err = FromYCbCr(small, dst)
	require.NoError(t, err)
	assert.NotSame(t, dst, got)
}
