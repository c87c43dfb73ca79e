package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cadubentzen/gamescope-recorder/pkg/frame"
)

func TestPatternSource(t *testing.T) {
	src, err := NewPattern(640, 480)
	require.NoError(t, err)

	w, h := src.Size()
	assert.Equal(t, 640, w)
	assert.Equal(t, 480, h)

	f, err := src.ReadFrame()
	require.NoError(t, err)
	require.NoError(t, f.Validate())
	assert.Equal(t, byte(frame.PatternBlack), f.Y[0])

	require.NoError(t, src.Close())
	_, err = src.ReadFrame()
	assert.Error(t, err)
}

func TestPatternSourceBadSize(t *testing.T) {
	_, err := NewPattern(641, 480)
	require.Error(t, err)
}
