package libvatest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cadubentzen/gamescope-recorder/pkg/libva"
)

func TestProtocolEnforcement(t *testing.T) {
	d := New()

	_, err := d.QueryConfigEntrypoints(libva.ProfileNone)
	assert.Error(t, err)

	// Context requires a live config.
	_, err = d.CreateContext(libva.ConfigID(99), 320, 240, libva.Progressive, nil)
	assert.ErrorIs(t, err, libva.StatusErrInvalidConfig)

	cfg, err := d.CreateConfig(libva.ProfileH264ConstrainedBaseline, libva.EntrypointEncSlice, nil)
	require.NoError(t, err)
	surfs, err := d.CreateSurfaces(libva.RTFormatYUV420, libva.FourCCNV12, 320, 240, 1)
	require.NoError(t, err)
	ctx, err := d.CreateContext(cfg, 320, 240, libva.Progressive, surfs)
	require.NoError(t, err)

	// Render outside a begin/end bracket is rejected.
	err = d.RenderPicture(ctx, nil)
	assert.ErrorIs(t, err, libva.StatusErrOperationFailed)

	coded, err := d.CreateCodedBuffer(ctx, 4096)
	require.NoError(t, err)

	require.NoError(t, d.BeginPicture(ctx, surfs[0]))

	// Nested begin on the same context is rejected.
	err = d.BeginPicture(ctx, surfs[0])
	assert.ErrorIs(t, err, libva.StatusErrOperationFailed)

	// The coded buffer is not readable while the surface is pending.
	_, err = d.MapCodedBuffer(coded)
	assert.ErrorIs(t, err, libva.StatusErrSurfaceBusy)
}

func TestEndPictureFailureEndsBracket(t *testing.T) {
	d := New()
	cfg, err := d.CreateConfig(libva.ProfileH264ConstrainedBaseline, libva.EntrypointEncSlice, nil)
	require.NoError(t, err)
	surfs, err := d.CreateSurfaces(libva.RTFormatYUV420, libva.FourCCNV12, 320, 240, 1)
	require.NoError(t, err)
	ctx, err := d.CreateContext(cfg, 320, 240, libva.Progressive, surfs)
	require.NoError(t, err)

	d.FailOn["EndPicture"] = libva.StatusErrEncodingError
	require.NoError(t, d.BeginPicture(ctx, surfs[0]))
	require.Error(t, d.EndPicture(ctx))

	// A failed end still closes the begin/end bracket, so the next frame
	// can start.
	delete(d.FailOn, "EndPicture")
	require.NoError(t, d.BeginPicture(ctx, surfs[0]))
}

func TestAttributeReporting(t *testing.T) {
	d := New()
	attribs := []libva.ConfigAttrib{
		{Type: libva.ConfigAttribRTFormat},
		{Type: libva.ConfigAttribRateControl},
		{Type: libva.ConfigAttribType(40)},
	}
	require.NoError(t, d.GetConfigAttributes(libva.ProfileH264Main, libva.EntrypointEncSlice, attribs))
	assert.Equal(t, libva.RTFormatYUV420, attribs[0].Value&libva.RTFormatYUV420)
	assert.NotZero(t, attribs[1].Value&uint32(libva.RateControlCQP))
	assert.Equal(t, uint32(libva.AttribNotSupported), attribs[2].Value)
}
