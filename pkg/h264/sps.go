package h264

import (
	"errors"
	"fmt"
)

// Profile IDC values for the profiles hardware encoders commonly expose.
const (
	ProfileBaseline uint8 = 66
	ProfileMain     uint8 = 77
	ProfileHigh     uint8 = 100
)

// SPS holds the subset of sequence parameter set fields needed to describe
// the coded stream.
type SPS struct {
	ProfileIDC          uint8
	ConstraintSetFlags  uint8
	LevelIDC            uint8
	SeqParameterSetID   uint32
	ChromaFormatIDC     uint32
	Log2MaxFrameNum     uint32
	PicOrderCntType     uint32
	MaxNumRefFrames     uint32
	PicWidthInMBs       uint32
	PicHeightInMapUnits uint32
	FrameMBsOnly        bool

	// Width and Height are the display dimensions after cropping.
	Width  uint32
	Height uint32
}

// ParseSPS parses a sequence parameter set NAL unit.
func ParseSPS(nal NALUnit) (*SPS, error) {
	if nal.Type != NALTypeSPS {
		return nil, fmt.Errorf("h264: expected SPS NAL unit, got %s", nal.Type)
	}
	if len(nal.Data) < 4 {
		return nil, errBitstreamShort
	}

	r := newBitReader(unescapeRBSP(nal.Data[1:]))
	var sps SPS

	profile, err := r.readBits(8)
	if err != nil {
		return nil, err
	}
	sps.ProfileIDC = uint8(profile)

	constraints, err := r.readBits(8)
	if err != nil {
		return nil, err
	}
	sps.ConstraintSetFlags = uint8(constraints)

	level, err := r.readBits(8)
	if err != nil {
		return nil, err
	}
	sps.LevelIDC = uint8(level)

	if sps.SeqParameterSetID, err = r.readUE(); err != nil {
		return nil, err
	}

	sps.ChromaFormatIDC = 1
	switch sps.ProfileIDC {
	case 100, 110, 122, 244, 44, 83, 86, 118, 128:
		if sps.ChromaFormatIDC, err = r.readUE(); err != nil {
			return nil, err
		}
		if sps.ChromaFormatIDC == 3 {
			if _, err = r.readFlag(); err != nil { // separate_colour_plane_flag
				return nil, err
			}
		}
		if _, err = r.readUE(); err != nil { // bit_depth_luma_minus8
			return nil, err
		}
		if _, err = r.readUE(); err != nil { // bit_depth_chroma_minus8
			return nil, err
		}
		if _, err = r.readFlag(); err != nil { // qpprime_y_zero_transform_bypass_flag
			return nil, err
		}
		scaling, err := r.readFlag()
		if err != nil {
			return nil, err
		}
		if scaling {
			return nil, errors.New("h264: scaling matrices are not supported")
		}
	}

	log2MaxFrameNumMinus4, err := r.readUE()
	if err != nil {
		return nil, err
	}
	sps.Log2MaxFrameNum = log2MaxFrameNumMinus4 + 4

	if sps.PicOrderCntType, err = r.readUE(); err != nil {
		return nil, err
	}
	switch sps.PicOrderCntType {
	case 0:
		if _, err = r.readUE(); err != nil { // log2_max_pic_order_cnt_lsb_minus4
			return nil, err
		}
	case 1:
		if _, err = r.readFlag(); err != nil { // delta_pic_order_always_zero_flag
			return nil, err
		}
		if _, err = r.readSE(); err != nil { // offset_for_non_ref_pic
			return nil, err
		}
		if _, err = r.readSE(); err != nil { // offset_for_top_to_bottom_field
			return nil, err
		}
		n, err := r.readUE()
		if err != nil {
			return nil, err
		}
		for i := uint32(0); i < n; i++ {
			if _, err = r.readSE(); err != nil {
				return nil, err
			}
		}
	}

	if sps.MaxNumRefFrames, err = r.readUE(); err != nil {
		return nil, err
	}
	if _, err = r.readFlag(); err != nil { // gaps_in_frame_num_value_allowed_flag
		return nil, err
	}

	widthMinus1, err := r.readUE()
	if err != nil {
		return nil, err
	}
	sps.PicWidthInMBs = widthMinus1 + 1

	heightMinus1, err := r.readUE()
	if err != nil {
		return nil, err
	}
	sps.PicHeightInMapUnits = heightMinus1 + 1

	if sps.FrameMBsOnly, err = r.readFlag(); err != nil {
		return nil, err
	}
	if !sps.FrameMBsOnly {
		if _, err = r.readFlag(); err != nil { // mb_adaptive_frame_field_flag
			return nil, err
		}
	}
	if _, err = r.readFlag(); err != nil { // direct_8x8_inference_flag
		return nil, err
	}

	frameMBs := sps.PicHeightInMapUnits
	if !sps.FrameMBsOnly {
		frameMBs *= 2
	}
	sps.Width = sps.PicWidthInMBs * 16
	sps.Height = frameMBs * 16

	cropping, err := r.readFlag()
	if err != nil {
		return nil, err
	}
	if cropping {
		left, err := r.readUE()
		if err != nil {
			return nil, err
		}
		right, err := r.readUE()
		if err != nil {
			return nil, err
		}
		top, err := r.readUE()
		if err != nil {
			return nil, err
		}
		bottom, err := r.readUE()
		if err != nil {
			return nil, err
		}

		// 4:2:0 frame cropping units: 2 luma samples horizontally,
		// 2 per field vertically.
		cropY := uint32(2)
		if !sps.FrameMBsOnly {
			cropY *= 2
		}
		sps.Width -= (left + right) * 2
		sps.Height -= (top + bottom) * cropY
	}

	return &sps, nil
}

// SliceHeader holds the leading fields of a slice header, enough to tell
// frames apart and classify slices.
type SliceHeader struct {
	FirstMBInSlice uint32
	SliceType      uint32
}

// Intra reports whether all macroblocks in the slice are intra-coded.
func (h SliceHeader) Intra() bool {
	return h.SliceType == 2 || h.SliceType == 7
}

// ParseSliceHeader parses the first fields of a coded slice NAL unit.
func ParseSliceHeader(nal NALUnit) (*SliceHeader, error) {
	if nal.Type != NALTypeIDRSlice && nal.Type != NALTypeNonIDRSlice {
		return nil, fmt.Errorf("h264: expected coded slice, got %s", nal.Type)
	}
	if len(nal.Data) < 2 {
		return nil, errBitstreamShort
	}

	r := newBitReader(unescapeRBSP(nal.Data[1:]))
	var hdr SliceHeader
	var err error
	if hdr.FirstMBInSlice, err = r.readUE(); err != nil {
		return nil, err
	}
	if hdr.SliceType, err = r.readUE(); err != nil {
		return nil, err
	}
	return &hdr, nil
}
