package libvatest

import (
	"github.com/cadubentzen/gamescope-recorder/pkg/h264"
	"github.com/cadubentzen/gamescope-recorder/pkg/libva"
)

// encodeAccessUnit builds the coded bitstream for the picture that was just
// ended. The headers come straight from the submitted parameter records, so a
// test that parses the output sees exactly what the encoder asked for. The
// macroblock payload is filler.
func (d *Display) encodeAccessUnit(width, height int) []byte {
	var out []byte
	if d.pic.IDRPic {
		out = append(out, h264.WriteNALUnit(h264.NALTypeSPS, 3, d.spsRBSP(width, height))...)
		out = append(out, h264.WriteNALUnit(h264.NALTypePPS, 3, d.ppsRBSP())...)
	}

	typ := h264.NALTypeNonIDRSlice
	refIDC := uint8(0)
	if d.pic.IDRPic {
		typ = h264.NALTypeIDRSlice
		refIDC = 3
	} else if d.pic.ReferencePic {
		refIDC = 2
	}
	out = append(out, h264.WriteNALUnit(typ, refIDC, d.sliceRBSP())...)
	return out
}

func (d *Display) profileIDC() (idc uint32, constraints uint32) {
	switch d.profile {
	case libva.ProfileH264ConstrainedBaseline:
		return uint32(h264.ProfileBaseline), 0xc0 // constraint_set0 and constraint_set1
	case libva.ProfileH264Main:
		return uint32(h264.ProfileMain), 0
	case libva.ProfileH264High:
		return uint32(h264.ProfileHigh), 0
	}
	return uint32(h264.ProfileBaseline), 0
}

func (d *Display) spsRBSP(width, height int) []byte {
	seq := d.seq
	w := h264.NewBitstreamWriter(32)

	profile, constraints := d.profileIDC()
	w.WriteBits(profile, 8)
	w.WriteBits(constraints, 8)
	w.WriteBits(uint32(seq.LevelIDC), 8)
	w.WriteUE(uint32(seq.SeqParameterSetID))

	if profile == uint32(h264.ProfileHigh) {
		w.WriteUE(uint32(seq.ChromaFormatIDC))
		w.WriteUE(uint32(seq.BitDepthLumaMinus8))
		w.WriteUE(uint32(seq.BitDepthChromaMinus8))
		w.WriteFlag(false) // qpprime_y_zero_transform_bypass
		w.WriteFlag(false) // seq_scaling_matrix_present
	}

	w.WriteUE(uint32(seq.Log2MaxFrameNumMinus4))
	w.WriteUE(uint32(seq.PicOrderCntType))
	if seq.PicOrderCntType == 0 {
		w.WriteUE(uint32(seq.Log2MaxPicOrderCntLsbMinus4))
	}
	w.WriteUE(seq.MaxNumRefFrames)
	w.WriteFlag(false) // gaps_in_frame_num_value_allowed

	w.WriteUE(uint32(seq.PictureWidthInMBs) - 1)
	w.WriteUE(uint32(seq.PictureHeightInMBs) - 1)
	w.WriteFlag(seq.FrameMBsOnly)
	if !seq.FrameMBsOnly {
		w.WriteFlag(seq.MBAdaptiveFrameField)
	}
	w.WriteFlag(seq.Direct8x8Inference)

	cropRight := (int(seq.PictureWidthInMBs)*16 - width) / 2
	cropBottom := (int(seq.PictureHeightInMBs)*16 - height) / 2
	if cropRight > 0 || cropBottom > 0 {
		w.WriteFlag(true)
		w.WriteUE(0)
		w.WriteUE(uint32(cropRight))
		w.WriteUE(0)
		w.WriteUE(uint32(cropBottom))
	} else {
		w.WriteFlag(false)
	}

	w.WriteFlag(false) // vui_parameters_present
	w.WriteTrailingBits()
	return w.Bytes()
}

func (d *Display) ppsRBSP() []byte {
	pic := d.pic
	w := h264.NewBitstreamWriter(16)

	w.WriteUE(uint32(pic.PicParameterSetID))
	w.WriteUE(uint32(pic.SeqParameterSetID))
	w.WriteFlag(pic.EntropyCodingModeCABAC)
	w.WriteFlag(false) // bottom_field_pic_order_in_frame_present
	w.WriteUE(0)       // num_slice_groups_minus1
	w.WriteUE(uint32(pic.NumRefIdxL0ActiveMinus1))
	w.WriteUE(uint32(pic.NumRefIdxL1ActiveMinus1))
	w.WriteFlag(pic.WeightedPred)
	w.WriteBits(uint32(pic.WeightedBipredIDC), 2)
	w.WriteSE(int32(pic.PicInitQP) - 26)
	w.WriteSE(0) // pic_init_qs_minus26
	w.WriteSE(int32(pic.ChromaQPIndexOffset))
	w.WriteFlag(pic.DeblockingFilterControlPresent)
	w.WriteFlag(pic.ConstrainedIntraPred)
	w.WriteFlag(false) // redundant_pic_cnt_present
	w.WriteTrailingBits()
	return w.Bytes()
}

func (d *Display) sliceRBSP() []byte {
	seq, pic, sl := d.seq, d.pic, d.slice
	w := h264.NewBitstreamWriter(64)

	w.WriteUE(sl.MacroblockAddress)
	w.WriteUE(uint32(sl.SliceType))
	w.WriteUE(uint32(sl.PicParameterSetID))
	w.WriteBits(uint32(pic.FrameNum), int(seq.Log2MaxFrameNumMinus4)+4)
	if pic.IDRPic {
		w.WriteUE(uint32(sl.IDRPicID))
	}
	if seq.PicOrderCntType == 0 {
		lsbBits := int(seq.Log2MaxPicOrderCntLsbMinus4) + 4
		w.WriteBits(uint32(pic.CurrPic.TopFieldOrderCnt)&(1<<lsbBits-1), lsbBits)
	}
	if sl.SliceType == libva.SliceTypeP {
		w.WriteFlag(false) // num_ref_idx_active_override
		w.WriteFlag(false) // ref_pic_list_modification_l0
	}
	if pic.ReferencePic {
		if pic.IDRPic {
			w.WriteFlag(false) // no_output_of_prior_pics
			w.WriteFlag(false) // long_term_reference
		} else {
			w.WriteFlag(false) // adaptive_ref_pic_marking_mode
		}
	}
	w.WriteSE(int32(sl.SliceQPDelta))
	if pic.DeblockingFilterControlPresent {
		w.WriteUE(uint32(sl.DisableDeblockingFilterIDC))
		if sl.DisableDeblockingFilterIDC != 1 {
			w.WriteSE(int32(sl.SliceAlphaC0OffsetDiv2))
			w.WriteSE(int32(sl.SliceBetaOffsetDiv2))
		}
	}

	// Stand-in macroblock data sized by the slice so the coded buffer looks
	// like a real frame.
	payload := int(sl.NumMacroblocks / 16)
	if payload > 4096 {
		payload = 4096
	}
	for i := 0; i < payload; i++ {
		w.WriteBits(0xa5, 8)
	}
	w.WriteTrailingBits()
	return w.Bytes()
}
