package h264

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitNALUnits(t *testing.T) {
	// Mixed 4-byte and 3-byte start codes.
	stream := []byte{
		0, 0, 0, 1, 0x67, 0x42, 0xc0, 0x29,
		0, 0, 1, 0x68, 0xce,
		0, 0, 0, 1, 0x65, 0x88, 0x80,
	}
	nals := SplitNALUnits(stream)
	require.Len(t, nals, 3)
	assert.Equal(t, NALTypeSPS, nals[0].Type)
	assert.Equal(t, NALTypePPS, nals[1].Type)
	assert.Equal(t, NALTypeIDRSlice, nals[2].Type)
	assert.Equal(t, uint8(3), nals[0].RefIDC())
	assert.Equal(t, []byte{0x68, 0xce}, nals[1].Data)
}

func TestSplitNALUnitsEmpty(t *testing.T) {
	assert.Empty(t, SplitNALUnits(nil))
	assert.Empty(t, SplitNALUnits([]byte{0, 0, 0, 1}))
	assert.Empty(t, SplitNALUnits([]byte{0x12, 0x34}))
}

func TestWriteNALUnitEmulationPrevention(t *testing.T) {
	rbsp := []byte{0x11, 0, 0, 0, 0x22, 0, 0, 1, 0, 0, 2}
	nal := WriteNALUnit(NALTypeSEI, 0, rbsp)

	// The payload must not contain a start code.
	assert.NotContains(t, string(nal[4:]), string([]byte{0, 0, 0}))
	assert.Equal(t, []byte{0, 0, 0, 1}, nal[:4])

	nals := SplitNALUnits(nal)
	require.Len(t, nals, 1)
	assert.Equal(t, NALTypeSEI, nals[0].Type)
	assert.True(t, bytes.Equal(rbsp, unescapeRBSP(nals[0].Data[1:])))
}

func TestExpGolombRoundTrip(t *testing.T) {
	w := NewBitstreamWriter(16)
	for _, v := range []uint32{0, 1, 2, 3, 14, 255, 1023} {
		w.WriteUE(v)
	}
	for _, v := range []int32{0, 1, -1, 7, -12} {
		w.WriteSE(v)
	}
	w.WriteTrailingBits()

	r := newBitReader(w.Bytes())
	for _, want := range []uint32{0, 1, 2, 3, 14, 255, 1023} {
		got, err := r.readUE()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	for _, want := range []int32{0, 1, -1, 7, -12} {
		got, err := r.readSE()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestBitReaderShortInput(t *testing.T) {
	r := newBitReader([]byte{0x00})
	_, err := r.readUE()
	assert.ErrorIs(t, err, errBitstreamShort)
}

func TestSPSRoundTrip(t *testing.T) {
	// 1280x720: 80x45 macroblocks, no cropping.
	w := NewBitstreamWriter(32)
	w.WriteBits(uint32(ProfileBaseline), 8)
	w.WriteBits(0xc0, 8)
	w.WriteBits(31, 8)
	w.WriteUE(0)         // sps id
	w.WriteUE(0)         // log2_max_frame_num_minus4
	w.WriteUE(0)         // pic_order_cnt_type
	w.WriteUE(2)         // log2_max_pic_order_cnt_lsb_minus4
	w.WriteUE(1)         // max_num_ref_frames
	w.WriteFlag(false)   // gaps_in_frame_num
	w.WriteUE(79)        // pic_width_in_mbs_minus1
	w.WriteUE(44)        // pic_height_in_map_units_minus1
	w.WriteFlag(true)    // frame_mbs_only
	w.WriteFlag(true)    // direct_8x8_inference
	w.WriteFlag(false)   // frame_cropping
	w.WriteFlag(false)   // vui_parameters_present
	w.WriteTrailingBits()

	nal := SplitNALUnits(WriteNALUnit(NALTypeSPS, 3, w.Bytes()))[0]
	sps, err := ParseSPS(nal)
	require.NoError(t, err)
	assert.Equal(t, ProfileBaseline, sps.ProfileIDC)
	assert.Equal(t, uint8(31), sps.LevelIDC)
	assert.Equal(t, uint32(80), sps.PicWidthInMBs)
	assert.Equal(t, uint32(1280), sps.Width)
	assert.Equal(t, uint32(720), sps.Height)
	assert.True(t, sps.FrameMBsOnly)
}

func TestSPSCropping(t *testing.T) {
	// 1920x1080 needs 8 lines cropped off the 68th macroblock row.
	w := NewBitstreamWriter(32)
	w.WriteBits(uint32(ProfileHigh), 8)
	w.WriteBits(0, 8)
	w.WriteBits(41, 8)
	w.WriteUE(0)
	w.WriteUE(1)       // chroma_format_idc
	w.WriteUE(0)       // bit_depth_luma_minus8
	w.WriteUE(0)       // bit_depth_chroma_minus8
	w.WriteFlag(false) // qpprime_y_zero_transform_bypass
	w.WriteFlag(false) // seq_scaling_matrix_present
	w.WriteUE(0)
	w.WriteUE(0)
	w.WriteUE(2)
	w.WriteUE(1)
	w.WriteFlag(false)
	w.WriteUE(119)
	w.WriteUE(67)
	w.WriteFlag(true)
	w.WriteFlag(true)
	w.WriteFlag(true) // frame_cropping
	w.WriteUE(0)
	w.WriteUE(0)
	w.WriteUE(0)
	w.WriteUE(4)
	w.WriteFlag(false)
	w.WriteTrailingBits()

	nal := SplitNALUnits(WriteNALUnit(NALTypeSPS, 3, w.Bytes()))[0]
	sps, err := ParseSPS(nal)
	require.NoError(t, err)
	assert.Equal(t, ProfileHigh, sps.ProfileIDC)
	assert.Equal(t, uint32(1920), sps.Width)
	assert.Equal(t, uint32(1080), sps.Height)
}

func TestParseSliceHeader(t *testing.T) {
	w := NewBitstreamWriter(8)
	w.WriteUE(0) // first_mb_in_slice
	w.WriteUE(7) // slice_type, all-intra
	w.WriteUE(0) // pps id
	w.WriteTrailingBits()

	nal := SplitNALUnits(WriteNALUnit(NALTypeIDRSlice, 3, w.Bytes()))[0]
	hdr, err := ParseSliceHeader(nal)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), hdr.FirstMBInSlice)
	assert.True(t, hdr.Intra())

	_, err = ParseSliceHeader(NALUnit{Type: NALTypeSPS, Data: []byte{0x67}})
	assert.Error(t, err)
}
