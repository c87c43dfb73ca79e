// Package libva binds the VA-API video acceleration interface. The real
// implementation drives libva over a DRM render node through cgo; the
// Display interface keeps the driver surface mockable so encode pipelines
// can be exercised without hardware (see the libvatest subpackage).
//
// Callers must follow the driver protocol: query entrypoints before creating
// a configuration, create the configuration and surfaces before the context,
// create all parameter buffers before beginning a picture, bracket per-frame
// submission between BeginPicture and EndPicture, sync before reading the
// coded buffer, and destroy resources in reverse order of creation.
package libva

import "errors"

// ErrUnsupported is returned by Open on platforms without VA-API support.
var ErrUnsupported = errors.New("libva: not supported on this platform")

// Resource handle types. A zero handle is not meaningful; InvalidID marks
// absent references.
type (
	ConfigID  uint32
	ContextID uint32
	SurfaceID uint32
	BufferID  uint32
	ImageID   uint32
)

// InvalidID marks an absent surface or buffer reference.
const InvalidID = 0xffffffff

// Profile selects the codec profile of a configuration.
type Profile int32

const (
	ProfileNone                    Profile = -1
	ProfileH264Main                Profile = 6
	ProfileH264High                Profile = 7
	ProfileH264ConstrainedBaseline Profile = 13
)

// Entrypoint selects the hardware pipeline of a configuration.
type Entrypoint int32

const (
	EntrypointVLD        Entrypoint = 1
	EntrypointEncSlice   Entrypoint = 6
	EntrypointEncPicture Entrypoint = 7
	EntrypointEncSliceLP Entrypoint = 8
	EntrypointVideoProc  Entrypoint = 10
)

// ConfigAttribType identifies a configuration attribute.
type ConfigAttribType int32

const (
	ConfigAttribRTFormat    ConfigAttribType = 2
	ConfigAttribRateControl ConfigAttribType = 5
)

// AttribNotSupported is reported in ConfigAttrib.Value when the driver does
// not support the queried attribute.
const AttribNotSupported = 0x80000000

// ConfigAttrib is a single negotiated configuration attribute.
type ConfigAttrib struct {
	Type  ConfigAttribType
	Value uint32
}

// Render target formats.
const (
	RTFormatYUV420 uint32 = 0x00000001
)

// FourCC identifies a pixel format.
type FourCC uint32

const (
	FourCCNV12 FourCC = 0x3231564e
	FourCCI420 FourCC = 0x30323449
)

// RateControlMode represents a driver rate control mode bit.
// Supported modes depend on the codec and acceleration hardware.
type RateControlMode uint32

const (
	RateControlCBR            RateControlMode = 0x00000002
	RateControlVBR            RateControlMode = 0x00000004
	RateControlVCM            RateControlMode = 0x00000008
	RateControlCQP            RateControlMode = 0x00000010
	RateControlVBRConstrained RateControlMode = 0x00000020
	RateControlICQ            RateControlMode = 0x00000040
)

// Progressive is the picture structure flag for frame-only contexts.
const Progressive uint32 = 0x1

// Image describes a derived image backed by a mappable driver buffer.
// Offsets and Pitches describe the plane layout inside the mapped data.
type Image struct {
	ID        ImageID
	Buf       BufferID
	Format    FourCC
	Width     int
	Height    int
	DataSize  int
	NumPlanes int
	Pitches   [3]int
	Offsets   [3]int
}

// Display is an open acceleration session. Implementations are not safe for
// concurrent use; the protocol is inherently sequential.
type Display interface {
	// Version reports the VA-API version negotiated at initialization.
	Version() (major, minor int)

	QueryConfigEntrypoints(profile Profile) ([]Entrypoint, error)
	// GetConfigAttributes fills Value for each queried attribute in place.
	GetConfigAttributes(profile Profile, entrypoint Entrypoint, attribs []ConfigAttrib) error
	CreateConfig(profile Profile, entrypoint Entrypoint, attribs []ConfigAttrib) (ConfigID, error)
	DestroyConfig(id ConfigID) error

	CreateSurfaces(rtFormat uint32, fourcc FourCC, width, height, count int) ([]SurfaceID, error)
	DestroySurfaces(ids []SurfaceID) error

	CreateContext(config ConfigID, width, height int, flags uint32, surfaces []SurfaceID) (ContextID, error)
	DestroyContext(id ContextID) error

	CreateCodedBuffer(ctx ContextID, size int) (BufferID, error)
	CreateSequenceBuffer(ctx ContextID, p *SequenceParams) (BufferID, error)
	CreatePictureBuffer(ctx ContextID, p *PictureParams) (BufferID, error)
	CreateSliceBuffer(ctx ContextID, p *SliceParams) (BufferID, error)
	CreateRateControlBuffer(ctx ContextID, p *RateControlParams) (BufferID, error)
	DestroyBuffer(id BufferID) error

	DeriveImage(surface SurfaceID) (*Image, error)
	DestroyImage(id ImageID) error
	// MapImage maps the buffer backing a derived image into host memory.
	// The returned slice aliases driver memory and is only valid until
	// UnmapBuffer.
	MapImage(img *Image) ([]byte, error)
	// MapCodedBuffer maps an encoded output buffer after SyncSurface and
	// returns the coded bytes. The slice is only valid until UnmapBuffer.
	MapCodedBuffer(id BufferID) ([]byte, error)
	UnmapBuffer(id BufferID) error

	BeginPicture(ctx ContextID, target SurfaceID) error
	RenderPicture(ctx ContextID, buffers []BufferID) error
	EndPicture(ctx ContextID) error
	// SyncSurface blocks until all pending operations on the surface
	// complete. There is no timeout; a hung driver hangs the caller.
	SyncSurface(surface SurfaceID) error

	// Close terminates the session and closes the device node.
	Close() error
}
