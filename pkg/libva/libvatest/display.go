// Package libvatest provides an in-memory libva.Display for tests. The fake
// records every driver call in order, enforces the call protocol, and
// synthesizes a structurally valid H.264 access unit from the submitted
// parameter buffers so scenario tests can parse the output.
package libvatest

import (
	"fmt"

	"github.com/cadubentzen/gamescope-recorder/pkg/libva"
)

type bufferKind int

const (
	kindCoded bufferKind = iota
	kindImage
	kindSequence
	kindPicture
	kindSlice
	kindRateControl
)

func (k bufferKind) String() string {
	switch k {
	case kindCoded:
		return "coded"
	case kindImage:
		return "image"
	case kindSequence:
		return "sequence"
	case kindPicture:
		return "picture"
	case kindSlice:
		return "slice"
	case kindRateControl:
		return "rate control"
	}
	return "unknown"
}

type buffer struct {
	kind   bufferKind
	data   []byte
	mapped bool
}

type surface struct {
	width  int
	height int
	synced bool
}

type image struct {
	buf libva.BufferID
}

// Display is a recording fake implementation of libva.Display.
type Display struct {
	calls  []string
	nextID uint32
	closed bool

	// Entrypoints lists what QueryConfigEntrypoints advertises per profile.
	Entrypoints map[libva.Profile][]libva.Entrypoint
	// RTFormats and RateControlModes are the attribute values reported by
	// GetConfigAttributes.
	RTFormats        uint32
	RateControlModes uint32

	// FailOn injects an error into the named call.
	FailOn map[string]error

	configs  map[libva.ConfigID]bool
	contexts map[libva.ContextID]bool
	surfaces map[libva.SurfaceID]*surface
	buffers  map[libva.BufferID]*buffer
	images   map[libva.ImageID]*image

	seq   *libva.SequenceParams
	pic   *libva.PictureParams
	slice *libva.SliceParams
	rc    *libva.RateControlParams

	profile   libva.Profile
	inPicture bool
	target    libva.SurfaceID
	rendered  []libva.BufferID
}

// New returns a fake display advertising an H.264 slice encoder for the
// constrained baseline, main and high profiles with YUV 4:2:0 and CQP/CBR
// rate control.
func New() *Display {
	d := &Display{
		nextID: 1,
		Entrypoints: map[libva.Profile][]libva.Entrypoint{
			libva.ProfileH264ConstrainedBaseline: {libva.EntrypointVLD, libva.EntrypointEncSlice},
			libva.ProfileH264Main:                {libva.EntrypointVLD, libva.EntrypointEncSlice},
			libva.ProfileH264High:                {libva.EntrypointVLD, libva.EntrypointEncSlice},
		},
		RTFormats:        libva.RTFormatYUV420,
		RateControlModes: uint32(libva.RateControlCQP | libva.RateControlCBR),
		FailOn:           map[string]error{},
		configs:          map[libva.ConfigID]bool{},
		contexts:         map[libva.ContextID]bool{},
		surfaces:         map[libva.SurfaceID]*surface{},
		buffers:          map[libva.BufferID]*buffer{},
		images:           map[libva.ImageID]*image{},
	}
	d.record("OpenDisplay")
	d.record("Initialize")
	return d
}

// Calls returns the recorded call sequence.
func (d *Display) Calls() []string {
	return d.calls
}

// SubmittedSequence returns the last submitted sequence parameter record.
func (d *Display) SubmittedSequence() *libva.SequenceParams { return d.seq }

// SubmittedPicture returns the last submitted picture parameter record.
func (d *Display) SubmittedPicture() *libva.PictureParams { return d.pic }

// SubmittedSlice returns the last submitted slice parameter record.
func (d *Display) SubmittedSlice() *libva.SliceParams { return d.slice }

// SubmittedRateControl returns the last submitted rate control record.
func (d *Display) SubmittedRateControl() *libva.RateControlParams { return d.rc }

func (d *Display) record(call string, args ...any) string {
	name := call
	if len(args) > 0 {
		name = call + "("
		for i, a := range args {
			if i > 0 {
				name += ","
			}
			name += fmt.Sprint(a)
		}
		name += ")"
	}
	d.calls = append(d.calls, name)
	return call
}

func (d *Display) injected(call string) error {
	if err, ok := d.FailOn[call]; ok {
		return err
	}
	return nil
}

func (d *Display) id() uint32 {
	id := d.nextID
	d.nextID++
	return id
}

func (d *Display) Version() (int, int) { return 1, 22 }

func (d *Display) QueryConfigEntrypoints(profile libva.Profile) ([]libva.Entrypoint, error) {
	call := d.record("QueryConfigEntrypoints")
	if err := d.injected(call); err != nil {
		return nil, err
	}
	eps, ok := d.Entrypoints[profile]
	if !ok {
		return nil, libva.StatusErrUnsupportedProfile
	}
	return append([]libva.Entrypoint(nil), eps...), nil
}

func (d *Display) GetConfigAttributes(profile libva.Profile, entrypoint libva.Entrypoint, attribs []libva.ConfigAttrib) error {
	call := d.record("GetConfigAttributes")
	if err := d.injected(call); err != nil {
		return err
	}
	for i := range attribs {
		switch attribs[i].Type {
		case libva.ConfigAttribRTFormat:
			attribs[i].Value = d.RTFormats
		case libva.ConfigAttribRateControl:
			attribs[i].Value = d.RateControlModes
		default:
			attribs[i].Value = libva.AttribNotSupported
		}
	}
	return nil
}

func (d *Display) CreateConfig(profile libva.Profile, entrypoint libva.Entrypoint, attribs []libva.ConfigAttrib) (libva.ConfigID, error) {
	call := d.record("CreateConfig")
	if err := d.injected(call); err != nil {
		return 0, err
	}
	id := libva.ConfigID(d.id())
	d.configs[id] = true
	d.profile = profile
	return id, nil
}

func (d *Display) DestroyConfig(id libva.ConfigID) error {
	call := d.record("DestroyConfig", uint32(id))
	if err := d.injected(call); err != nil {
		return err
	}
	if !d.configs[id] {
		return libva.StatusErrInvalidConfig
	}
	delete(d.configs, id)
	return nil
}

func (d *Display) CreateSurfaces(rtFormat uint32, fourcc libva.FourCC, width, height, count int) ([]libva.SurfaceID, error) {
	call := d.record("CreateSurfaces")
	if err := d.injected(call); err != nil {
		return nil, err
	}
	ids := make([]libva.SurfaceID, count)
	for i := range ids {
		id := libva.SurfaceID(d.id())
		d.surfaces[id] = &surface{width: width, height: height}
		ids[i] = id
	}
	return ids, nil
}

func (d *Display) DestroySurfaces(ids []libva.SurfaceID) error {
	call := d.record("DestroySurfaces")
	if err := d.injected(call); err != nil {
		return err
	}
	for _, id := range ids {
		if d.surfaces[id] == nil {
			return libva.StatusErrInvalidSurface
		}
		delete(d.surfaces, id)
	}
	return nil
}

func (d *Display) CreateContext(config libva.ConfigID, width, height int, flags uint32, surfaces []libva.SurfaceID) (libva.ContextID, error) {
	call := d.record("CreateContext")
	if err := d.injected(call); err != nil {
		return 0, err
	}
	if !d.configs[config] {
		return 0, libva.StatusErrInvalidConfig
	}
	for _, s := range surfaces {
		if d.surfaces[s] == nil {
			return 0, libva.StatusErrInvalidSurface
		}
	}
	id := libva.ContextID(d.id())
	d.contexts[id] = true
	return id, nil
}

func (d *Display) DestroyContext(id libva.ContextID) error {
	call := d.record("DestroyContext", uint32(id))
	if err := d.injected(call); err != nil {
		return err
	}
	if !d.contexts[id] {
		return libva.StatusErrInvalidContext
	}
	delete(d.contexts, id)
	return nil
}

func (d *Display) createBuffer(call string, ctx libva.ContextID, kind bufferKind) (libva.BufferID, error) {
	if err := d.injected(call); err != nil {
		return 0, err
	}
	if !d.contexts[ctx] {
		return 0, libva.StatusErrInvalidContext
	}
	id := libva.BufferID(d.id())
	d.buffers[id] = &buffer{kind: kind}
	return id, nil
}

func (d *Display) CreateCodedBuffer(ctx libva.ContextID, size int) (libva.BufferID, error) {
	return d.createBuffer(d.record("CreateCodedBuffer"), ctx, kindCoded)
}

func (d *Display) CreateSequenceBuffer(ctx libva.ContextID, p *libva.SequenceParams) (libva.BufferID, error) {
	id, err := d.createBuffer(d.record("CreateSequenceBuffer"), ctx, kindSequence)
	if err == nil {
		cp := *p
		d.seq = &cp
	}
	return id, err
}

func (d *Display) CreatePictureBuffer(ctx libva.ContextID, p *libva.PictureParams) (libva.BufferID, error) {
	id, err := d.createBuffer(d.record("CreatePictureBuffer"), ctx, kindPicture)
	if err == nil {
		cp := *p
		d.pic = &cp
	}
	return id, err
}

func (d *Display) CreateSliceBuffer(ctx libva.ContextID, p *libva.SliceParams) (libva.BufferID, error) {
	id, err := d.createBuffer(d.record("CreateSliceBuffer"), ctx, kindSlice)
	if err == nil {
		cp := *p
		d.slice = &cp
	}
	return id, err
}

func (d *Display) CreateRateControlBuffer(ctx libva.ContextID, p *libva.RateControlParams) (libva.BufferID, error) {
	id, err := d.createBuffer(d.record("CreateRateControlBuffer"), ctx, kindRateControl)
	if err == nil {
		cp := *p
		d.rc = &cp
	}
	return id, err
}

func (d *Display) DestroyBuffer(id libva.BufferID) error {
	call := d.record("DestroyBuffer", uint32(id))
	if err := d.injected(call); err != nil {
		return err
	}
	if d.buffers[id] == nil {
		return libva.StatusErrInvalidBuffer
	}
	delete(d.buffers, id)
	return nil
}

func (d *Display) DeriveImage(surf libva.SurfaceID) (*libva.Image, error) {
	call := d.record("DeriveImage")
	if err := d.injected(call); err != nil {
		return nil, err
	}
	s := d.surfaces[surf]
	if s == nil {
		return nil, libva.StatusErrInvalidSurface
	}

	buf := libva.BufferID(d.id())
	d.buffers[buf] = &buffer{kind: kindImage, data: make([]byte, s.width*s.height*3/2)}
	id := libva.ImageID(d.id())
	d.images[id] = &image{buf: buf}

	return &libva.Image{
		ID:        id,
		Buf:       buf,
		Format:    libva.FourCCNV12,
		Width:     s.width,
		Height:    s.height,
		DataSize:  s.width * s.height * 3 / 2,
		NumPlanes: 2,
		Pitches:   [3]int{s.width, s.width, 0},
		Offsets:   [3]int{0, s.width * s.height, 0},
	}, nil
}

func (d *Display) DestroyImage(id libva.ImageID) error {
	call := d.record("DestroyImage", uint32(id))
	if err := d.injected(call); err != nil {
		return err
	}
	img := d.images[id]
	if img == nil {
		return libva.StatusErrInvalidImage
	}
	delete(d.buffers, img.buf)
	delete(d.images, id)
	return nil
}

func (d *Display) MapImage(img *libva.Image) ([]byte, error) {
	call := d.record("MapImage")
	if err := d.injected(call); err != nil {
		return nil, err
	}
	b := d.buffers[img.Buf]
	if b == nil {
		return nil, libva.StatusErrInvalidBuffer
	}
	b.mapped = true
	return b.data, nil
}

func (d *Display) MapCodedBuffer(id libva.BufferID) ([]byte, error) {
	call := d.record("MapCodedBuffer")
	if err := d.injected(call); err != nil {
		return nil, err
	}
	b := d.buffers[id]
	if b == nil || b.kind != kindCoded {
		return nil, libva.StatusErrInvalidBuffer
	}
	if d.target != 0 {
		if s := d.surfaces[d.target]; s != nil && !s.synced {
			return nil, libva.StatusErrSurfaceBusy
		}
	}
	b.mapped = true
	return b.data, nil
}

func (d *Display) UnmapBuffer(id libva.BufferID) error {
	call := d.record("UnmapBuffer", uint32(id))
	if err := d.injected(call); err != nil {
		return err
	}
	b := d.buffers[id]
	if b == nil || !b.mapped {
		return libva.StatusErrInvalidBuffer
	}
	b.mapped = false
	return nil
}

func (d *Display) BeginPicture(ctx libva.ContextID, target libva.SurfaceID) error {
	call := d.record("BeginPicture")
	if err := d.injected(call); err != nil {
		return err
	}
	if !d.contexts[ctx] {
		return libva.StatusErrInvalidContext
	}
	if d.surfaces[target] == nil {
		return libva.StatusErrInvalidSurface
	}
	if d.inPicture {
		return libva.StatusErrOperationFailed
	}
	d.inPicture = true
	d.target = target
	d.surfaces[target].synced = false
	d.rendered = nil
	return nil
}

func (d *Display) RenderPicture(ctx libva.ContextID, buffers []libva.BufferID) error {
	call := d.record("RenderPicture")
	if err := d.injected(call); err != nil {
		return err
	}
	if !d.inPicture {
		return libva.StatusErrOperationFailed
	}
	for _, id := range buffers {
		if d.buffers[id] == nil {
			return libva.StatusErrInvalidBuffer
		}
	}
	d.rendered = append(d.rendered, buffers...)
	return nil
}

func (d *Display) EndPicture(ctx libva.ContextID) error {
	call := d.record("EndPicture")
	if !d.inPicture {
		return libva.StatusErrOperationFailed
	}
	// The bracket ends whether or not the encode succeeds.
	d.inPicture = false
	d.rendered = nil
	if err := d.injected(call); err != nil {
		return err
	}

	if d.seq == nil || d.pic == nil || d.slice == nil {
		return libva.StatusErrEncodingError
	}
	coded := d.buffers[d.pic.CodedBuf]
	if coded == nil || coded.kind != kindCoded {
		return libva.StatusErrInvalidBuffer
	}

	s := d.surfaces[d.target]
	coded.data = d.encodeAccessUnit(s.width, s.height)
	return nil
}

func (d *Display) SyncSurface(surf libva.SurfaceID) error {
	call := d.record("SyncSurface")
	if err := d.injected(call); err != nil {
		return err
	}
	s := d.surfaces[surf]
	if s == nil {
		return libva.StatusErrInvalidSurface
	}
	s.synced = true
	return nil
}

func (d *Display) Close() error {
	d.record("Terminate")
	d.record("CloseDevice")
	if d.closed {
		return libva.StatusErrInvalidDisplay
	}
	d.closed = true
	return nil
}
