package vaapi

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pion/logging"

	mlog "github.com/cadubentzen/gamescope-recorder/internal/logging"
	"github.com/cadubentzen/gamescope-recorder/pkg/frame"
	"github.com/cadubentzen/gamescope-recorder/pkg/libva"
)

// ErrClosed is returned by Encode after Close.
var ErrClosed = errors.New("vaapi: encoder closed")

// EncodedFrame is one compressed access unit in Annex B byte stream format.
type EncodedFrame struct {
	Data     []byte
	KeyFrame bool
}

const (
	// One input surface plus two reconstructed frame surfaces the driver
	// alternates between.
	numSurfaces = 3

	log2MaxFrameNumMinus4       = 0
	log2MaxPicOrderCntLsbMinus4 = 2
	maxFrameNum                 = 1 << (log2MaxFrameNumMinus4 + 4)
	maxPicOrderCntLsb           = 1 << (log2MaxPicOrderCntLsbMinus4 + 4)
)

// Encoder drives a VA-API H.264 slice encoder. It is safe for use from a
// single goroutine at a time; Encode and Close are serialized internally.
type Encoder struct {
	mu     sync.Mutex
	dpy    libva.Display
	params Params
	logger logging.LeveledLogger

	width      int
	height     int
	mbWidth    uint16
	mbHeight   uint16
	config     libva.ConfigID
	ctx        libva.ContextID
	surfaces   []libva.SurfaceID
	codedBuf   libva.BufferID
	haveConfig bool
	haveCtx    bool
	haveCoded  bool
	closed     bool

	frameCount uint64
	lastIDR    uint64
	frameNum   uint16
	idrPicID   uint16
	forceIDR   bool
}

// NewEncoder negotiates an encode configuration on dpy and allocates the
// surfaces, context and coded buffer for frames of the given size. The
// display stays owned by the caller and must outlive the encoder.
func NewEncoder(dpy libva.Display, width, height int, params Params) (*Encoder, error) {
	if width <= 0 || height <= 0 || width%2 != 0 || height%2 != 0 {
		return nil, fmt.Errorf("vaapi: frame size must be positive and even, got %dx%d", width, height)
	}
	if err := params.validate(); err != nil {
		return nil, err
	}

	e := &Encoder{
		dpy:      dpy,
		params:   params,
		logger:   mlog.NewLogger("vaapi-h264"),
		width:    width,
		height:   height,
		mbWidth:  uint16((width + 15) / 16),
		mbHeight: uint16((height + 15) / 16),
	}
	if err := e.setup(); err != nil {
		e.teardown()
		return nil, err
	}
	return e, nil
}

func (e *Encoder) setup() error {
	entrypoints, err := e.dpy.QueryConfigEntrypoints(e.params.Profile)
	if err != nil {
		return fmt.Errorf("vaapi: query entrypoints: %w", err)
	}
	found := false
	for _, ep := range entrypoints {
		if ep == libva.EntrypointEncSlice {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("vaapi: profile %d has no slice encode entrypoint", e.params.Profile)
	}

	attribs := []libva.ConfigAttrib{
		{Type: libva.ConfigAttribRTFormat},
		{Type: libva.ConfigAttribRateControl},
	}
	if err := e.dpy.GetConfigAttributes(e.params.Profile, libva.EntrypointEncSlice, attribs); err != nil {
		return fmt.Errorf("vaapi: get config attributes: %w", err)
	}
	if attribs[0].Value&libva.RTFormatYUV420 == 0 {
		return errors.New("vaapi: driver does not encode from YUV 4:2:0 surfaces")
	}
	if attribs[1].Value == libva.AttribNotSupported || attribs[1].Value&uint32(e.params.RateControlMode) == 0 {
		return fmt.Errorf("vaapi: rate control mode %#x not supported (driver offers %#x)",
			e.params.RateControlMode, attribs[1].Value)
	}
	attribs[0].Value = libva.RTFormatYUV420
	attribs[1].Value = uint32(e.params.RateControlMode)

	e.config, err = e.dpy.CreateConfig(e.params.Profile, libva.EntrypointEncSlice, attribs)
	if err != nil {
		return fmt.Errorf("vaapi: create config: %w", err)
	}
	e.haveConfig = true

	e.surfaces, err = e.dpy.CreateSurfaces(libva.RTFormatYUV420, libva.FourCCNV12, e.width, e.height, numSurfaces)
	if err != nil {
		return fmt.Errorf("vaapi: create surfaces: %w", err)
	}

	e.ctx, err = e.dpy.CreateContext(e.config, e.width, e.height, libva.Progressive, e.surfaces)
	if err != nil {
		return fmt.Errorf("vaapi: create context: %w", err)
	}
	e.haveCtx = true

	// Worst case for a hardware encoder is well under the raw frame size.
	e.codedBuf, err = e.dpy.CreateCodedBuffer(e.ctx, e.width*e.height*3/2)
	if err != nil {
		return fmt.Errorf("vaapi: create coded buffer: %w", err)
	}
	e.haveCoded = true

	major, minor := e.dpy.Version()
	e.logger.Infof("initialized %dx%d encoder, VA-API %d.%d, profile %d",
		e.width, e.height, major, minor, e.params.Profile)
	return nil
}

// teardown releases everything setup acquired, in reverse order of
// acquisition. Safe to call on a partially built encoder.
func (e *Encoder) teardown() error {
	var errs []error
	if e.haveCoded {
		errs = append(errs, e.dpy.DestroyBuffer(e.codedBuf))
		e.haveCoded = false
	}
	if e.haveCtx {
		errs = append(errs, e.dpy.DestroyContext(e.ctx))
		e.haveCtx = false
	}
	if len(e.surfaces) > 0 {
		errs = append(errs, e.dpy.DestroySurfaces(e.surfaces))
		e.surfaces = nil
	}
	if e.haveConfig {
		errs = append(errs, e.dpy.DestroyConfig(e.config))
		e.haveConfig = false
	}
	return errors.Join(errs...)
}

// ForceKeyFrame makes the next encoded frame an IDR frame.
func (e *Encoder) ForceKeyFrame() {
	e.mu.Lock()
	e.forceIDR = true
	e.mu.Unlock()
}

// Encode compresses one frame and returns the coded access unit. IDR frames
// carry SPS and PPS in front of the slice. The returned data is a copy and
// stays valid after the next call.
func (e *Encoder) Encode(f *frame.NV12) (EncodedFrame, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return EncodedFrame{}, ErrClosed
	}
	if err := f.Validate(); err != nil {
		return EncodedFrame{}, err
	}
	if f.Width != e.width || f.Height != e.height {
		return EncodedFrame{}, fmt.Errorf("vaapi: frame is %dx%d, encoder expects %dx%d",
			f.Width, f.Height, e.width, e.height)
	}

	idr := e.forceIDR || e.frameCount == 0 ||
		e.frameCount-e.lastIDR >= uint64(e.params.KeyFrameInterval)
	if idr {
		e.frameNum = 0
		e.lastIDR = e.frameCount
		e.forceIDR = false
	}

	srcSurface := e.surfaces[0]
	reconSurface := e.surfaces[1+int(e.frameCount%2)]
	prevRecon := e.surfaces[1+int((e.frameCount+1)%2)]

	if err := e.upload(srcSurface, f); err != nil {
		return EncodedFrame{}, err
	}
	data, err := e.encodePicture(srcSurface, reconSurface, prevRecon, idr)
	if err != nil {
		return EncodedFrame{}, err
	}

	e.frameCount++
	e.frameNum = (e.frameNum + 1) % maxFrameNum
	if idr {
		e.idrPicID++
	}
	return EncodedFrame{Data: data, KeyFrame: idr}, nil
}

// upload copies the raw frame into the surface through a derived image.
func (e *Encoder) upload(surf libva.SurfaceID, f *frame.NV12) error {
	img, err := e.dpy.DeriveImage(surf)
	if err != nil {
		return fmt.Errorf("vaapi: derive image: %w", err)
	}
	data, err := e.dpy.MapImage(img)
	if err != nil {
		e.dpy.DestroyImage(img.ID)
		return fmt.Errorf("vaapi: map image: %w", err)
	}

	if err := f.CopyTo(data, img.Offsets[0], img.Offsets[1], img.Pitches[0], img.Pitches[1]); err != nil {
		e.dpy.UnmapBuffer(img.Buf)
		e.dpy.DestroyImage(img.ID)
		return err
	}

	if err := e.dpy.UnmapBuffer(img.Buf); err != nil {
		e.dpy.DestroyImage(img.ID)
		return fmt.Errorf("vaapi: unmap image: %w", err)
	}
	if err := e.dpy.DestroyImage(img.ID); err != nil {
		return fmt.Errorf("vaapi: destroy image: %w", err)
	}
	return nil
}

func (e *Encoder) encodePicture(src, recon, prevRecon libva.SurfaceID, idr bool) ([]byte, error) {
	poc := int32(2*(e.frameCount-e.lastIDR)) % maxPicOrderCntLsb

	var paramBufs []libva.BufferID
	destroyParams := func() {
		for i := len(paramBufs) - 1; i >= 0; i-- {
			e.dpy.DestroyBuffer(paramBufs[i])
		}
	}

	seqBuf, err := e.dpy.CreateSequenceBuffer(e.ctx, e.sequenceParams())
	if err != nil {
		return nil, fmt.Errorf("vaapi: create sequence buffer: %w", err)
	}
	paramBufs = append(paramBufs, seqBuf)

	rcBuf, err := e.dpy.CreateRateControlBuffer(e.ctx, &libva.RateControlParams{
		BitsPerSecond:    uint32(e.params.BitRate),
		TargetPercentage: e.params.TargetPercentage,
		WindowSize:       e.params.WindowSize,
		InitialQP:        e.params.InitialQP,
		MinQP:            e.params.MinQP,
		MaxQP:            e.params.MaxQP,
	})
	if err != nil {
		destroyParams()
		return nil, fmt.Errorf("vaapi: create rate control buffer: %w", err)
	}
	paramBufs = append(paramBufs, rcBuf)

	picBuf, err := e.dpy.CreatePictureBuffer(e.ctx, e.pictureParams(recon, prevRecon, poc, idr))
	if err != nil {
		destroyParams()
		return nil, fmt.Errorf("vaapi: create picture buffer: %w", err)
	}
	paramBufs = append(paramBufs, picBuf)

	sliceBuf, err := e.dpy.CreateSliceBuffer(e.ctx, e.sliceParams(idr))
	if err != nil {
		destroyParams()
		return nil, fmt.Errorf("vaapi: create slice buffer: %w", err)
	}
	paramBufs = append(paramBufs, sliceBuf)

	if err := e.dpy.BeginPicture(e.ctx, src); err != nil {
		destroyParams()
		return nil, fmt.Errorf("vaapi: begin picture: %w", err)
	}
	if err := e.dpy.RenderPicture(e.ctx, paramBufs); err != nil {
		destroyParams()
		return nil, fmt.Errorf("vaapi: render picture: %w", err)
	}
	if err := e.dpy.EndPicture(e.ctx); err != nil {
		destroyParams()
		return nil, fmt.Errorf("vaapi: end picture: %w", err)
	}
	if err := e.dpy.SyncSurface(src); err != nil {
		destroyParams()
		return nil, fmt.Errorf("vaapi: sync surface: %w", err)
	}

	coded, err := e.dpy.MapCodedBuffer(e.codedBuf)
	if err != nil {
		destroyParams()
		return nil, fmt.Errorf("vaapi: map coded buffer: %w", err)
	}
	out := make([]byte, len(coded))
	copy(out, coded)
	if err := e.dpy.UnmapBuffer(e.codedBuf); err != nil {
		destroyParams()
		return nil, fmt.Errorf("vaapi: unmap coded buffer: %w", err)
	}

	destroyParams()
	return out, nil
}

func (e *Encoder) sequenceParams() *libva.SequenceParams {
	return &libva.SequenceParams{
		LevelIDC:           e.params.LevelIDC,
		IntraPeriod:        e.params.KeyFrameInterval,
		IntraIDRPeriod:     e.params.KeyFrameInterval,
		IPPeriod:           1,
		BitsPerSecond:      uint32(e.params.BitRate),
		TimeScale:          uint32(e.params.FrameRate * 2000),
		NumUnitsInTick:     1000,
		MaxNumRefFrames:    1,
		PictureWidthInMBs:  e.mbWidth,
		PictureHeightInMBs: e.mbHeight,

		ChromaFormatIDC:             1,
		FrameMBsOnly:                true,
		Direct8x8Inference:          true,
		Log2MaxFrameNumMinus4:       log2MaxFrameNumMinus4,
		PicOrderCntType:             0,
		Log2MaxPicOrderCntLsbMinus4: log2MaxPicOrderCntLsbMinus4,
	}
}

func (e *Encoder) pictureParams(recon, prevRecon libva.SurfaceID, poc int32, idr bool) *libva.PictureParams {
	p := &libva.PictureParams{
		CurrPic: libva.PictureH264{
			PictureID:           recon,
			TopFieldOrderCnt:    poc,
			BottomFieldOrderCnt: poc,
		},
		CodedBuf:  e.codedBuf,
		FrameNum:  e.frameNum,
		PicInitQP: uint8(e.params.InitialQP),

		IDRPic:                         idr,
		ReferencePic:                   true,
		EntropyCodingModeCABAC:         e.params.EntropyCodingCABAC,
		DeblockingFilterControlPresent: true,
	}
	for i := range p.ReferenceFrames {
		p.ReferenceFrames[i] = libva.InvalidPicture()
	}
	if !idr {
		p.ReferenceFrames[0] = libva.PictureH264{
			PictureID: prevRecon,
			Flags:     libva.PictureFlagShortTermReference,
		}
	}
	return p
}

func (e *Encoder) sliceParams(idr bool) *libva.SliceParams {
	sliceType := libva.SliceTypeP
	if idr {
		sliceType = libva.SliceTypeI
	}
	return &libva.SliceParams{
		NumMacroblocks: uint32(e.mbWidth) * uint32(e.mbHeight),
		SliceType:      sliceType,
		IDRPicID:       e.idrPicID,
	}
}

// Close releases the encoder resources in reverse order of acquisition.
// Closing twice is a no-op. The display is left open for the caller.
func (e *Encoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	return e.teardown()
}
