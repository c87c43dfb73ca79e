package libva

// Parameter records mirror the VA-API H.264 encode parameter buffers field
// for field, but as plain Go structs. The platform backends own the C layout
// translation, so the records stay testable without hardware.

// Slice types of VAEncSliceParameterBufferH264.
const (
	SliceTypeP uint8 = 0
	SliceTypeB uint8 = 1
	SliceTypeI uint8 = 2
)

// Picture flags of PictureH264.
const (
	PictureFlagInvalid            uint32 = 0x00000001
	PictureFlagTopField           uint32 = 0x00000002
	PictureFlagBottomField        uint32 = 0x00000004
	PictureFlagShortTermReference uint32 = 0x00000008
	PictureFlagLongTermReference  uint32 = 0x00000010
)

// SequenceParams describes sequence-level constants of an H.264 encode,
// mirroring VAEncSequenceParameterBufferH264.
type SequenceParams struct {
	SeqParameterSetID uint8
	LevelIDC          uint8

	IntraPeriod    uint32
	IntraIDRPeriod uint32
	IPPeriod       uint32

	BitsPerSecond uint32
	TimeScale     uint32
	NumUnitsInTick uint32

	MaxNumRefFrames    uint32
	PictureWidthInMBs  uint16
	PictureHeightInMBs uint16

	// seq_fields bits.
	ChromaFormatIDC             uint8
	FrameMBsOnly                bool
	MBAdaptiveFrameField        bool
	Direct8x8Inference          bool
	Log2MaxFrameNumMinus4       uint8
	PicOrderCntType             uint8
	Log2MaxPicOrderCntLsbMinus4 uint8
	DeltaPicOrderAlwaysZero     bool

	BitDepthLumaMinus8   uint8
	BitDepthChromaMinus8 uint8
}

// PictureH264 identifies a picture inside picture parameter buffers,
// mirroring VAPictureH264.
type PictureH264 struct {
	PictureID           SurfaceID
	FrameIdx            uint32
	Flags               uint32
	TopFieldOrderCnt    int32
	BottomFieldOrderCnt int32
}

// InvalidPicture marks an unused reference slot.
func InvalidPicture() PictureH264 {
	return PictureH264{PictureID: InvalidID, Flags: PictureFlagInvalid}
}

// PictureParams describes one coded picture, mirroring
// VAEncPictureParameterBufferH264.
type PictureParams struct {
	CurrPic         PictureH264
	ReferenceFrames [16]PictureH264
	CodedBuf        BufferID

	PicParameterSetID uint8
	SeqParameterSetID uint8
	LastPicture       uint8
	FrameNum          uint16
	PicInitQP         uint8

	NumRefIdxL0ActiveMinus1 uint8
	NumRefIdxL1ActiveMinus1 uint8

	ChromaQPIndexOffset       int8
	SecondChromaQPIndexOffset int8

	// pic_fields bits.
	IDRPic                         bool
	ReferencePic                   bool
	EntropyCodingModeCABAC         bool
	WeightedPred                   bool
	WeightedBipredIDC              uint8
	ConstrainedIntraPred           bool
	Transform8x8Mode               bool
	DeblockingFilterControlPresent bool
}

// SliceParams describes one slice, mirroring VAEncSliceParameterBufferH264.
type SliceParams struct {
	MacroblockAddress uint32
	NumMacroblocks    uint32

	PicParameterSetID uint8
	SliceType         uint8
	IDRPicID          uint16

	DirectSpatialMVPred     bool
	NumRefIdxL0ActiveMinus1 uint8
	NumRefIdxL1ActiveMinus1 uint8

	CabacInitIDC               uint8
	SliceQPDelta               int8
	DisableDeblockingFilterIDC uint8
	SliceAlphaC0OffsetDiv2     int8
	SliceBetaOffsetDiv2        int8
}

// RateControlParams describes a rate control target, mirroring
// VAEncMiscParameterRateControl. For constant-QP encoding the driver holds
// the quantizer inside [MinQP, MaxQP] and TargetPercentage is 100.
type RateControlParams struct {
	BitsPerSecond    uint32
	TargetPercentage uint32
	WindowSize       uint32
	InitialQP        uint32
	MinQP            uint32
	MaxQP            uint32
}
