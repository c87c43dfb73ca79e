//go:build cgo && (dragonfly || freebsd || linux || netbsd || openbsd || solaris)

package libva

// #cgo pkg-config: libva libva-drm
// #include <fcntl.h>
// #include <stdlib.h>
// #include <string.h>
// #include <unistd.h>
//
// #include <va/va.h>
// #include <va/va_drm.h>
// #include <va/va_enc_h264.h>
//
// static int openDevice(const char *path) {
//   return open(path, O_RDWR);
// }
//
// static VAGenericValue genValInt(int v) {
//   VAGenericValue g;
//   g.type = VAGenericValueTypeInteger;
//   g.value.i = v;
//   return g;
// }
//
// static VAStatus createBufferRaw(VADisplay d, VAContextID c, VABufferType t,
//                                 unsigned size, unsigned num, size_t data,
//                                 VABufferID *out) {
//   return vaCreateBuffer(d, c, t, size, num, (void *)data, out);
// }
//
// static void setSeqFields(VAEncSequenceParameterBufferH264 *s,
//                          unsigned chroma_format_idc, unsigned frame_mbs_only,
//                          unsigned mb_adaptive, unsigned direct_8x8,
//                          unsigned log2_max_frame_num_minus4, unsigned poc_type,
//                          unsigned log2_max_poc_lsb_minus4, unsigned delta_poc_zero) {
//   s->seq_fields.bits.chroma_format_idc = chroma_format_idc;
//   s->seq_fields.bits.frame_mbs_only_flag = frame_mbs_only;
//   s->seq_fields.bits.mb_adaptive_frame_field_flag = mb_adaptive;
//   s->seq_fields.bits.direct_8x8_inference_flag = direct_8x8;
//   s->seq_fields.bits.log2_max_frame_num_minus4 = log2_max_frame_num_minus4;
//   s->seq_fields.bits.pic_order_cnt_type = poc_type;
//   s->seq_fields.bits.log2_max_pic_order_cnt_lsb_minus4 = log2_max_poc_lsb_minus4;
//   s->seq_fields.bits.delta_pic_order_always_zero_flag = delta_poc_zero;
//   s->seq_fields.bits.seq_scaling_matrix_present_flag = 0;
// }
//
// static void setPicFields(VAEncPictureParameterBufferH264 *p,
//                          unsigned idr, unsigned reference, unsigned cabac,
//                          unsigned weighted_pred, unsigned weighted_bipred_idc,
//                          unsigned constrained_intra, unsigned transform_8x8,
//                          unsigned deblocking_present) {
//   p->pic_fields.bits.idr_pic_flag = idr;
//   p->pic_fields.bits.reference_pic_flag = reference;
//   p->pic_fields.bits.entropy_coding_mode_flag = cabac;
//   p->pic_fields.bits.weighted_pred_flag = weighted_pred;
//   p->pic_fields.bits.weighted_bipred_idc = weighted_bipred_idc;
//   p->pic_fields.bits.constrained_intra_pred_flag = constrained_intra;
//   p->pic_fields.bits.transform_8x8_mode_flag = transform_8x8;
//   p->pic_fields.bits.deblocking_filter_control_present_flag = deblocking_present;
// }
//
// static VAStatus fillRateControl(VADisplay d, VABufferID buf, unsigned bps,
//                                 unsigned target, unsigned window,
//                                 unsigned initial_qp, unsigned min_qp,
//                                 unsigned max_qp) {
//   VAEncMiscParameterBuffer *misc;
//   VAEncMiscParameterRateControl *rc;
//   VAStatus st = vaMapBuffer(d, buf, (void **)&misc);
//   if (st != VA_STATUS_SUCCESS) {
//     return st;
//   }
//   misc->type = VAEncMiscParameterTypeRateControl;
//   rc = (VAEncMiscParameterRateControl *)misc->data;
//   memset(rc, 0, sizeof(*rc));
//   rc->bits_per_second = bps;
//   rc->target_percentage = target;
//   rc->window_size = window;
//   rc->initial_qp = initial_qp;
//   rc->min_qp = min_qp;
//   rc->max_qp = max_qp;
//   return vaUnmapBuffer(d, buf);
// }
//
// static VAStatus mapCodedBuffer(VADisplay d, VABufferID buf,
//                                VACodedBufferSegment **seg) {
//   return vaMapBuffer(d, buf, (void **)seg);
// }
import "C"

import (
	"fmt"
	"unsafe"
)

type drmDisplay struct {
	dpy   C.VADisplay
	fd    C.int
	major int
	minor int
}

// Open opens the DRM render node at path and initializes a VA-API session
// on it. The returned Display owns the device file descriptor.
func Open(path string) (Display, error) {
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))

	fd := C.openDevice(cPath)
	if fd < 0 {
		return nil, fmt.Errorf("libva: failed to open %s", path)
	}

	dpy := C.vaGetDisplayDRM(fd)
	if dpy == nil {
		C.close(fd)
		return nil, fmt.Errorf("libva: no VA display for %s", path)
	}

	var major, minor C.int
	if st := Status(C.vaInitialize(dpy, &major, &minor)); st != StatusSuccess {
		C.close(fd)
		return nil, statusError("vaInitialize", st)
	}

	return &drmDisplay{
		dpy:   dpy,
		fd:    fd,
		major: int(major),
		minor: int(minor),
	}, nil
}

func (d *drmDisplay) Version() (int, int) {
	return d.major, d.minor
}

func (d *drmDisplay) QueryConfigEntrypoints(profile Profile) ([]Entrypoint, error) {
	max := int(C.vaMaxNumEntrypoints(d.dpy))
	if max <= 0 {
		return nil, statusError("vaMaxNumEntrypoints", StatusErrOperationFailed)
	}

	entrypoints := make([]C.VAEntrypoint, max)
	var num C.int
	st := Status(C.vaQueryConfigEntrypoints(d.dpy, C.VAProfile(profile), &entrypoints[0], &num))
	if st != StatusSuccess {
		return nil, statusError("vaQueryConfigEntrypoints", st)
	}

	out := make([]Entrypoint, int(num))
	for i := range out {
		out[i] = Entrypoint(entrypoints[i])
	}
	return out, nil
}

func (d *drmDisplay) GetConfigAttributes(profile Profile, entrypoint Entrypoint, attribs []ConfigAttrib) error {
	if len(attribs) == 0 {
		return nil
	}

	cAttribs := make([]C.VAConfigAttrib, len(attribs))
	for i, a := range attribs {
		cAttribs[i]._type = C.VAConfigAttribType(a.Type)
	}
	st := Status(C.vaGetConfigAttributes(
		d.dpy, C.VAProfile(profile), C.VAEntrypoint(entrypoint),
		&cAttribs[0], C.int(len(cAttribs)),
	))
	if st != StatusSuccess {
		return statusError("vaGetConfigAttributes", st)
	}
	for i := range attribs {
		attribs[i].Value = uint32(cAttribs[i].value)
	}
	return nil
}

func (d *drmDisplay) CreateConfig(profile Profile, entrypoint Entrypoint, attribs []ConfigAttrib) (ConfigID, error) {
	cAttribs := make([]C.VAConfigAttrib, len(attribs))
	for i, a := range attribs {
		cAttribs[i]._type = C.VAConfigAttribType(a.Type)
		cAttribs[i].value = C.uint32_t(a.Value)
	}

	var id C.VAConfigID
	var attrPtr *C.VAConfigAttrib
	if len(cAttribs) > 0 {
		attrPtr = &cAttribs[0]
	}
	st := Status(C.vaCreateConfig(
		d.dpy, C.VAProfile(profile), C.VAEntrypoint(entrypoint),
		attrPtr, C.int(len(cAttribs)), &id,
	))
	if st != StatusSuccess {
		return 0, statusError("vaCreateConfig", st)
	}
	return ConfigID(id), nil
}

func (d *drmDisplay) DestroyConfig(id ConfigID) error {
	return statusError("vaDestroyConfig", Status(C.vaDestroyConfig(d.dpy, C.VAConfigID(id))))
}

func (d *drmDisplay) CreateSurfaces(rtFormat uint32, fourcc FourCC, width, height, count int) ([]SurfaceID, error) {
	attrib := C.VASurfaceAttrib{
		_type: C.VASurfaceAttribPixelFormat,
		flags: C.VA_SURFACE_ATTRIB_SETTABLE,
		value: C.genValInt(C.int(fourcc)),
	}

	surfaces := make([]C.VASurfaceID, count)
	st := Status(C.vaCreateSurfaces(
		d.dpy, C.uint(rtFormat), C.uint(width), C.uint(height),
		&surfaces[0], C.uint(count), &attrib, 1,
	))
	if st != StatusSuccess {
		return nil, statusError("vaCreateSurfaces", st)
	}

	out := make([]SurfaceID, count)
	for i := range out {
		out[i] = SurfaceID(surfaces[i])
	}
	return out, nil
}

func (d *drmDisplay) DestroySurfaces(ids []SurfaceID) error {
	if len(ids) == 0 {
		return nil
	}
	surfaces := make([]C.VASurfaceID, len(ids))
	for i, id := range ids {
		surfaces[i] = C.VASurfaceID(id)
	}
	return statusError("vaDestroySurfaces",
		Status(C.vaDestroySurfaces(d.dpy, &surfaces[0], C.int(len(surfaces)))))
}

func (d *drmDisplay) CreateContext(config ConfigID, width, height int, flags uint32, surfaces []SurfaceID) (ContextID, error) {
	cSurfaces := make([]C.VASurfaceID, len(surfaces))
	for i, s := range surfaces {
		cSurfaces[i] = C.VASurfaceID(s)
	}

	var id C.VAContextID
	var surfPtr *C.VASurfaceID
	if len(cSurfaces) > 0 {
		surfPtr = &cSurfaces[0]
	}
	st := Status(C.vaCreateContext(
		d.dpy, C.VAConfigID(config), C.int(width), C.int(height),
		C.int(flags), surfPtr, C.int(len(cSurfaces)), &id,
	))
	if st != StatusSuccess {
		return 0, statusError("vaCreateContext", st)
	}
	return ContextID(id), nil
}

func (d *drmDisplay) DestroyContext(id ContextID) error {
	return statusError("vaDestroyContext", Status(C.vaDestroyContext(d.dpy, C.VAContextID(id))))
}

func (d *drmDisplay) CreateCodedBuffer(ctx ContextID, size int) (BufferID, error) {
	var id C.VABufferID
	st := Status(C.createBufferRaw(
		d.dpy, C.VAContextID(ctx), C.VAEncCodedBufferType,
		C.uint(size), 1, 0, &id,
	))
	if st != StatusSuccess {
		return 0, statusError("vaCreateBuffer(coded)", st)
	}
	return BufferID(id), nil
}

func (d *drmDisplay) CreateSequenceBuffer(ctx ContextID, p *SequenceParams) (BufferID, error) {
	var seq C.VAEncSequenceParameterBufferH264
	seq.seq_parameter_set_id = C.uint8_t(p.SeqParameterSetID)
	seq.level_idc = C.uint8_t(p.LevelIDC)
	seq.intra_period = C.uint32_t(p.IntraPeriod)
	seq.intra_idr_period = C.uint32_t(p.IntraIDRPeriod)
	seq.ip_period = C.uint32_t(p.IPPeriod)
	seq.bits_per_second = C.uint32_t(p.BitsPerSecond)
	seq.max_num_ref_frames = C.uint32_t(p.MaxNumRefFrames)
	seq.picture_width_in_mbs = C.uint16_t(p.PictureWidthInMBs)
	seq.picture_height_in_mbs = C.uint16_t(p.PictureHeightInMBs)
	seq.time_scale = C.uint32_t(p.TimeScale)
	seq.num_units_in_tick = C.uint32_t(p.NumUnitsInTick)
	seq.bit_depth_luma_minus8 = C.uint8_t(p.BitDepthLumaMinus8)
	seq.bit_depth_chroma_minus8 = C.uint8_t(p.BitDepthChromaMinus8)
	C.setSeqFields(&seq,
		C.uint(p.ChromaFormatIDC), cBool(p.FrameMBsOnly),
		cBool(p.MBAdaptiveFrameField), cBool(p.Direct8x8Inference),
		C.uint(p.Log2MaxFrameNumMinus4), C.uint(p.PicOrderCntType),
		C.uint(p.Log2MaxPicOrderCntLsbMinus4), cBool(p.DeltaPicOrderAlwaysZero),
	)

	var id C.VABufferID
	st := Status(C.createBufferRaw(
		d.dpy, C.VAContextID(ctx), C.VAEncSequenceParameterBufferType,
		C.uint(unsafe.Sizeof(seq)), 1, C.size_t(uintptr(unsafe.Pointer(&seq))), &id,
	))
	if st != StatusSuccess {
		return 0, statusError("vaCreateBuffer(sequence)", st)
	}
	return BufferID(id), nil
}

func (d *drmDisplay) CreatePictureBuffer(ctx ContextID, p *PictureParams) (BufferID, error) {
	var pic C.VAEncPictureParameterBufferH264
	pic.CurrPic = cPicture(p.CurrPic)
	for i, ref := range p.ReferenceFrames {
		pic.ReferenceFrames[i] = cPicture(ref)
	}
	pic.coded_buf = C.VABufferID(p.CodedBuf)
	pic.pic_parameter_set_id = C.uint8_t(p.PicParameterSetID)
	pic.seq_parameter_set_id = C.uint8_t(p.SeqParameterSetID)
	pic.last_picture = C.uint8_t(p.LastPicture)
	pic.frame_num = C.uint16_t(p.FrameNum)
	pic.pic_init_qp = C.uint8_t(p.PicInitQP)
	pic.num_ref_idx_l0_active_minus1 = C.uint8_t(p.NumRefIdxL0ActiveMinus1)
	pic.num_ref_idx_l1_active_minus1 = C.uint8_t(p.NumRefIdxL1ActiveMinus1)
	pic.chroma_qp_index_offset = C.int8_t(p.ChromaQPIndexOffset)
	pic.second_chroma_qp_index_offset = C.int8_t(p.SecondChromaQPIndexOffset)
	C.setPicFields(&pic,
		cBool(p.IDRPic), cBool(p.ReferencePic), cBool(p.EntropyCodingModeCABAC),
		cBool(p.WeightedPred), C.uint(p.WeightedBipredIDC),
		cBool(p.ConstrainedIntraPred), cBool(p.Transform8x8Mode),
		cBool(p.DeblockingFilterControlPresent),
	)

	var id C.VABufferID
	st := Status(C.createBufferRaw(
		d.dpy, C.VAContextID(ctx), C.VAEncPictureParameterBufferType,
		C.uint(unsafe.Sizeof(pic)), 1, C.size_t(uintptr(unsafe.Pointer(&pic))), &id,
	))
	if st != StatusSuccess {
		return 0, statusError("vaCreateBuffer(picture)", st)
	}
	return BufferID(id), nil
}

func (d *drmDisplay) CreateSliceBuffer(ctx ContextID, p *SliceParams) (BufferID, error) {
	var slice C.VAEncSliceParameterBufferH264
	slice.macroblock_address = C.uint32_t(p.MacroblockAddress)
	slice.num_macroblocks = C.uint32_t(p.NumMacroblocks)
	slice.pic_parameter_set_id = C.uint8_t(p.PicParameterSetID)
	slice.slice_type = C.uint8_t(p.SliceType)
	slice.idr_pic_id = C.uint16_t(p.IDRPicID)
	slice.direct_spatial_mv_pred_flag = C.uint8_t(cBool(p.DirectSpatialMVPred))
	slice.num_ref_idx_l0_active_minus1 = C.uint8_t(p.NumRefIdxL0ActiveMinus1)
	slice.num_ref_idx_l1_active_minus1 = C.uint8_t(p.NumRefIdxL1ActiveMinus1)
	slice.cabac_init_idc = C.uint8_t(p.CabacInitIDC)
	slice.slice_qp_delta = C.int8_t(p.SliceQPDelta)
	slice.disable_deblocking_filter_idc = C.uint8_t(p.DisableDeblockingFilterIDC)
	slice.slice_alpha_c0_offset_div2 = C.int8_t(p.SliceAlphaC0OffsetDiv2)
	slice.slice_beta_offset_div2 = C.int8_t(p.SliceBetaOffsetDiv2)

	var id C.VABufferID
	st := Status(C.createBufferRaw(
		d.dpy, C.VAContextID(ctx), C.VAEncSliceParameterBufferType,
		C.uint(unsafe.Sizeof(slice)), 1, C.size_t(uintptr(unsafe.Pointer(&slice))), &id,
	))
	if st != StatusSuccess {
		return 0, statusError("vaCreateBuffer(slice)", st)
	}
	return BufferID(id), nil
}

func (d *drmDisplay) CreateRateControlBuffer(ctx ContextID, p *RateControlParams) (BufferID, error) {
	size := C.uint(C.sizeof_VAEncMiscParameterBuffer + C.sizeof_VAEncMiscParameterRateControl)

	var id C.VABufferID
	st := Status(C.createBufferRaw(
		d.dpy, C.VAContextID(ctx), C.VAEncMiscParameterBufferType,
		size, 1, 0, &id,
	))
	if st != StatusSuccess {
		return 0, statusError("vaCreateBuffer(rate control)", st)
	}

	st = Status(C.fillRateControl(d.dpy, id,
		C.uint(p.BitsPerSecond), C.uint(p.TargetPercentage), C.uint(p.WindowSize),
		C.uint(p.InitialQP), C.uint(p.MinQP), C.uint(p.MaxQP),
	))
	if st != StatusSuccess {
		C.vaDestroyBuffer(d.dpy, id)
		return 0, statusError("vaMapBuffer(rate control)", st)
	}
	return BufferID(id), nil
}

func (d *drmDisplay) DestroyBuffer(id BufferID) error {
	return statusError("vaDestroyBuffer", Status(C.vaDestroyBuffer(d.dpy, C.VABufferID(id))))
}

func (d *drmDisplay) DeriveImage(surface SurfaceID) (*Image, error) {
	var img C.VAImage
	st := Status(C.vaDeriveImage(d.dpy, C.VASurfaceID(surface), &img))
	if st != StatusSuccess {
		return nil, statusError("vaDeriveImage", st)
	}

	out := &Image{
		ID:        ImageID(img.image_id),
		Buf:       BufferID(img.buf),
		Format:    FourCC(img.format.fourcc),
		Width:     int(img.width),
		Height:    int(img.height),
		DataSize:  int(img.data_size),
		NumPlanes: int(img.num_planes),
	}
	for i := 0; i < 3; i++ {
		out.Pitches[i] = int(img.pitches[i])
		out.Offsets[i] = int(img.offsets[i])
	}
	return out, nil
}

func (d *drmDisplay) DestroyImage(id ImageID) error {
	return statusError("vaDestroyImage", Status(C.vaDestroyImage(d.dpy, C.VAImageID(id))))
}

func (d *drmDisplay) MapImage(img *Image) ([]byte, error) {
	var raw unsafe.Pointer
	st := Status(C.vaMapBuffer(d.dpy, C.VABufferID(img.Buf), &raw))
	if st != StatusSuccess {
		return nil, statusError("vaMapBuffer(image)", st)
	}
	return unsafe.Slice((*byte)(raw), img.DataSize), nil
}

func (d *drmDisplay) MapCodedBuffer(id BufferID) ([]byte, error) {
	var seg *C.VACodedBufferSegment
	st := Status(C.mapCodedBuffer(d.dpy, C.VABufferID(id), &seg))
	if st != StatusSuccess {
		return nil, statusError("vaMapBuffer(coded)", st)
	}

	if seg.next == nil {
		return unsafe.Slice((*byte)(seg.buf), int(seg.size)), nil
	}

	// Multiple segments are rare; concatenate them.
	var out []byte
	for s := seg; s != nil; s = (*C.VACodedBufferSegment)(s.next) {
		out = append(out, unsafe.Slice((*byte)(s.buf), int(s.size))...)
	}
	return out, nil
}

func (d *drmDisplay) UnmapBuffer(id BufferID) error {
	return statusError("vaUnmapBuffer", Status(C.vaUnmapBuffer(d.dpy, C.VABufferID(id))))
}

func (d *drmDisplay) BeginPicture(ctx ContextID, target SurfaceID) error {
	return statusError("vaBeginPicture",
		Status(C.vaBeginPicture(d.dpy, C.VAContextID(ctx), C.VASurfaceID(target))))
}

func (d *drmDisplay) RenderPicture(ctx ContextID, buffers []BufferID) error {
	if len(buffers) == 0 {
		return nil
	}
	cBuffers := make([]C.VABufferID, len(buffers))
	for i, b := range buffers {
		cBuffers[i] = C.VABufferID(b)
	}
	return statusError("vaRenderPicture",
		Status(C.vaRenderPicture(d.dpy, C.VAContextID(ctx), &cBuffers[0], C.int(len(cBuffers)))))
}

func (d *drmDisplay) EndPicture(ctx ContextID) error {
	return statusError("vaEndPicture", Status(C.vaEndPicture(d.dpy, C.VAContextID(ctx))))
}

func (d *drmDisplay) SyncSurface(surface SurfaceID) error {
	return statusError("vaSyncSurface", Status(C.vaSyncSurface(d.dpy, C.VASurfaceID(surface))))
}

func (d *drmDisplay) Close() error {
	err := statusError("vaTerminate", Status(C.vaTerminate(d.dpy)))
	C.close(d.fd)
	return err
}

func cBool(v bool) C.uint {
	if v {
		return 1
	}
	return 0
}

func cPicture(p PictureH264) C.VAPictureH264 {
	return C.VAPictureH264{
		picture_id:          C.VASurfaceID(p.PictureID),
		frame_idx:           C.uint32_t(p.FrameIdx),
		flags:               C.uint32_t(p.Flags),
		TopFieldOrderCnt:    C.int32_t(p.TopFieldOrderCnt),
		BottomFieldOrderCnt: C.int32_t(p.BottomFieldOrderCnt),
	}
}
