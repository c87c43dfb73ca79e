package vaapi

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cadubentzen/gamescope-recorder/pkg/frame"
	"github.com/cadubentzen/gamescope-recorder/pkg/h264"
	"github.com/cadubentzen/gamescope-recorder/pkg/libva"
	"github.com/cadubentzen/gamescope-recorder/pkg/libva/libvatest"
)

func callNames(calls []string) []string {
	names := make([]string, len(calls))
	for i, c := range calls {
		if idx := strings.IndexByte(c, '('); idx >= 0 {
			c = c[:idx]
		}
		names[i] = c
	}
	return names
}

func TestEncoderCallSequence(t *testing.T) {
	dpy := libvatest.New()
	params, err := NewParams()
	require.NoError(t, err)

	enc, err := NewEncoder(dpy, 1920, 1080, params)
	require.NoError(t, err)

	_, err = enc.Encode(frame.Checkerboard(1920, 1080))
	require.NoError(t, err)

	require.NoError(t, enc.Close())
	require.NoError(t, dpy.Close())

	want := []string{
		// Display and encoder setup.
		"OpenDisplay",
		"Initialize",
		"QueryConfigEntrypoints",
		"GetConfigAttributes",
		"CreateConfig",
		"CreateSurfaces",
		"CreateContext",
		"CreateCodedBuffer",
		// Frame upload.
		"DeriveImage",
		"MapImage",
		"UnmapBuffer",
		"DestroyImage",
		// Parameter submission and encode.
		"CreateSequenceBuffer",
		"CreateRateControlBuffer",
		"CreatePictureBuffer",
		"CreateSliceBuffer",
		"BeginPicture",
		"RenderPicture",
		"EndPicture",
		"SyncSurface",
		// Readback.
		"MapCodedBuffer",
		"UnmapBuffer",
		// Per-frame buffers go away in reverse creation order.
		"DestroyBuffer",
		"DestroyBuffer",
		"DestroyBuffer",
		"DestroyBuffer",
		// Teardown mirrors setup.
		"DestroyBuffer",
		"DestroyContext",
		"DestroySurfaces",
		"DestroyConfig",
		"Terminate",
		"CloseDevice",
	}
	assert.Equal(t, want, callNames(dpy.Calls()))

	// The fake hands out sequential ids, so the exact destruction order is
	// checkable: slice, picture, rate control, sequence, then the coded
	// buffer from setup.
	calls := dpy.Calls()
	destroys := []string{}
	for _, c := range calls {
		if strings.HasPrefix(c, "DestroyBuffer") {
			destroys = append(destroys, c)
		}
	}
	assert.Equal(t, []string{
		"DestroyBuffer(12)",
		"DestroyBuffer(11)",
		"DestroyBuffer(10)",
		"DestroyBuffer(9)",
		"DestroyBuffer(6)",
	}, destroys)
}

func TestEncoderOutput(t *testing.T) {
	dpy := libvatest.New()
	params, err := NewParams()
	require.NoError(t, err)

	enc, err := NewEncoder(dpy, 1920, 1080, params)
	require.NoError(t, err)
	defer enc.Close()

	ef, err := enc.Encode(frame.Checkerboard(1920, 1080))
	require.NoError(t, err)
	assert.True(t, ef.KeyFrame)

	nals := h264.SplitNALUnits(ef.Data)
	require.Len(t, nals, 3)
	assert.Equal(t, h264.NALTypeSPS, nals[0].Type)
	assert.Equal(t, h264.NALTypePPS, nals[1].Type)
	assert.Equal(t, h264.NALTypeIDRSlice, nals[2].Type)

	sps, err := h264.ParseSPS(nals[0])
	require.NoError(t, err)
	assert.Equal(t, h264.ProfileBaseline, sps.ProfileIDC)
	assert.Equal(t, uint8(41), sps.LevelIDC)
	assert.Equal(t, uint32(1920), sps.Width)
	assert.Equal(t, uint32(1080), sps.Height)

	hdr, err := h264.ParseSliceHeader(nals[2])
	require.NoError(t, err)
	assert.True(t, hdr.Intra())

	// 1920x1080 is 120x68 macroblocks.
	seq := dpy.SubmittedSequence()
	require.NotNil(t, seq)
	assert.Equal(t, uint16(120), seq.PictureWidthInMBs)
	assert.Equal(t, uint16(68), seq.PictureHeightInMBs)
	assert.Equal(t, uint32(10_000_000), seq.BitsPerSecond)

	sl := dpy.SubmittedSlice()
	require.NotNil(t, sl)
	assert.Equal(t, uint32(8160), sl.NumMacroblocks)
	assert.Equal(t, libva.SliceTypeI, sl.SliceType)

	rc := dpy.SubmittedRateControl()
	require.NotNil(t, rc)
	assert.Equal(t, uint32(26), rc.InitialQP)
	assert.Equal(t, uint32(10), rc.MinQP)
	assert.Equal(t, uint32(51), rc.MaxQP)
	assert.Equal(t, uint32(100), rc.TargetPercentage)
	assert.Equal(t, uint32(1000), rc.WindowSize)

	pic := dpy.SubmittedPicture()
	require.NotNil(t, pic)
	assert.Equal(t, uint8(26), pic.PicInitQP)
	assert.True(t, pic.IDRPic)
}

func TestEncoderKeyFrameInterval(t *testing.T) {
	dpy := libvatest.New()
	params, err := NewParams()
	require.NoError(t, err)
	params.KeyFrameInterval = 4

	enc, err := NewEncoder(dpy, 320, 240, params)
	require.NoError(t, err)
	defer enc.Close()

	f := frame.Checkerboard(320, 240)
	for i := 0; i < 6; i++ {
		ef, err := enc.Encode(f)
		require.NoError(t, err)
		wantKey := i == 0 || i == 4
		assert.Equal(t, wantKey, ef.KeyFrame, "frame %d", i)

		nals := h264.SplitNALUnits(ef.Data)
		if wantKey {
			require.Len(t, nals, 3, "frame %d", i)
		} else {
			require.Len(t, nals, 1, "frame %d", i)
			assert.Equal(t, h264.NALTypeNonIDRSlice, nals[0].Type)
		}
	}

	enc.ForceKeyFrame()
	ef, err := enc.Encode(f)
	require.NoError(t, err)
	assert.True(t, ef.KeyFrame)
}

func TestEncoderSetupFailure(t *testing.T) {
	dpy := libvatest.New()
	boom := errors.New("boom")
	dpy.FailOn["CreateContext"] = boom

	params, err := NewParams()
	require.NoError(t, err)

	_, err = NewEncoder(dpy, 320, 240, params)
	require.ErrorIs(t, err, boom)

	// Whatever was acquired before the failure must be released again.
	names := callNames(dpy.Calls())
	assert.Contains(t, names, "DestroySurfaces")
	assert.Contains(t, names, "DestroyConfig")
	assert.NotContains(t, names, "DestroyBuffer")
	assert.NotContains(t, names, "DestroyContext")
}

func TestEncoderEncodeFailure(t *testing.T) {
	dpy := libvatest.New()
	params, err := NewParams()
	require.NoError(t, err)

	enc, err := NewEncoder(dpy, 320, 240, params)
	require.NoError(t, err)
	defer enc.Close()

	boom := errors.New("gpu hang")
	dpy.FailOn["EndPicture"] = boom

	f := frame.Checkerboard(320, 240)
	_, err = enc.Encode(f)
	require.ErrorIs(t, err, boom)

	// All four parameter buffers from the failed frame are gone again.
	destroyed := 0
	for _, c := range callNames(dpy.Calls()) {
		if c == "DestroyBuffer" {
			destroyed++
		}
	}
	assert.Equal(t, 4, destroyed)

	// The encoder recovers once the driver does.
	delete(dpy.FailOn, "EndPicture")
	ef, err := enc.Encode(f)
	require.NoError(t, err)
	assert.NotEmpty(t, ef.Data)
}

func TestEncoderFrameSizeMismatch(t *testing.T) {
	dpy := libvatest.New()
	params, err := NewParams()
	require.NoError(t, err)

	enc, err := NewEncoder(dpy, 640, 480, params)
	require.NoError(t, err)
	defer enc.Close()

	_, err = enc.Encode(frame.Checkerboard(320, 240))
	require.Error(t, err)
}

func TestEncoderCloseTwice(t *testing.T) {
	dpy := libvatest.New()
	params, err := NewParams()
	require.NoError(t, err)

	enc, err := NewEncoder(dpy, 320, 240, params)
	require.NoError(t, err)

	require.NoError(t, enc.Close())
	require.NoError(t, enc.Close())

	_, err = enc.Encode(frame.Checkerboard(320, 240))
	require.ErrorIs(t, err, ErrClosed)
}

func TestParamsValidate(t *testing.T) {
	base, err := NewParams()
	require.NoError(t, err)

	cases := []struct {
		name   string
		mutate func(*Params)
	}{
		{"zero bitrate", func(p *Params) { p.BitRate = 0 }},
		{"zero frame rate", func(p *Params) { p.FrameRate = 0 }},
		{"max qp out of range", func(p *Params) { p.MaxQP = 52 }},
		{"min above max", func(p *Params) { p.MinQP = 40; p.MaxQP = 30; p.InitialQP = 35 }},
		{"initial outside band", func(p *Params) { p.InitialQP = 5 }},
		{"zero key frame interval", func(p *Params) { p.KeyFrameInterval = 0 }},
		{"cabac on constrained baseline", func(p *Params) { p.EntropyCodingCABAC = true }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := base
			tc.mutate(&p)
			dpy := libvatest.New()
			_, err := NewEncoder(dpy, 320, 240, p)
			require.Error(t, err)
		})
	}

	_, err = NewEncoder(libvatest.New(), 321, 240, base)
	require.Error(t, err)
}
