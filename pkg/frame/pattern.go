package frame

// Luma levels of the checkerboard pattern. 16 and 235 are the nominal black
// and white points of limited-range BT.601/709 video.
const (
	PatternBlack = 16
	PatternWhite = 235

	// PatternBlockSize is the edge length of one checkerboard square.
	PatternBlockSize = 32

	chromaNeutral = 128
)

// FillCheckerboard overwrites the frame with a black/white checkerboard of
// 32x32 pixel blocks and neutral chroma. The pattern is deterministic, so
// repeated calls with equal dimensions produce identical frames.
func FillCheckerboard(f *NV12) {
	for row := 0; row < f.Height; row++ {
		line := f.Y[row*f.YStride:]
		for col := 0; col < f.Width; col++ {
			if (row/PatternBlockSize+col/PatternBlockSize)%2 == 0 {
				line[col] = PatternBlack
			} else {
				line[col] = PatternWhite
			}
		}
	}

	for row := 0; row < f.Height/2; row++ {
		line := f.UV[row*f.UVStride:]
		for col := 0; col < f.Width; col++ {
			line[col] = chromaNeutral
		}
	}
}

// Checkerboard allocates a frame and fills it with the test pattern.
func Checkerboard(width, height int) *NV12 {
	f := NewNV12(width, height)
	FillCheckerboard(f)
	return f
}
