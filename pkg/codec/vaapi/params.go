// Package vaapi implements an H.264 encoder on top of VA-API hardware
// encode slice entrypoints.
package vaapi

import (
	"fmt"

	"github.com/cadubentzen/gamescope-recorder/pkg/libva"
)

// Params stores h264 encoding parameters.
type Params struct {
	// Profile selects the H.264 profile to encode with.
	Profile libva.Profile
	// LevelIDC caps the decoder resources the stream may demand. 41 is
	// level 4.1, enough for 1920x1080 at 30 fps.
	LevelIDC uint8

	// BitRate is the target bitrate in bits per second.
	BitRate int
	// FrameRate is used to derive the sequence timing fields.
	FrameRate float32

	// RateControlMode selects the driver rate control algorithm.
	RateControlMode libva.RateControlMode
	// InitialQP, MinQP and MaxQP bound the quantizer. Under constant-QP
	// rate control the driver holds the quantizer at InitialQP.
	InitialQP uint32
	MinQP     uint32
	MaxQP     uint32
	// TargetPercentage is the target fraction of BitRate in percent.
	TargetPercentage uint32
	// WindowSize is the rate control averaging window in milliseconds.
	WindowSize uint32

	// KeyFrameInterval is the distance between IDR frames. 1 makes every
	// frame an IDR frame.
	KeyFrameInterval uint32

	// EntropyCodingCABAC selects CABAC entropy coding. Off means CAVLC,
	// which every profile supports.
	EntropyCodingCABAC bool
}

// NewParams returns default parameters: constrained baseline, level 4.1,
// constant-QP rate control pinned at QP 26 and a nominal 10 Mbps target.
func NewParams() (Params, error) {
	return Params{
		Profile:          libva.ProfileH264ConstrainedBaseline,
		LevelIDC:         41,
		BitRate:          10_000_000,
		FrameRate:        30,
		RateControlMode:  libva.RateControlCQP,
		InitialQP:        26,
		MinQP:            10,
		MaxQP:            51,
		TargetPercentage: 100,
		WindowSize:       1000,
		KeyFrameInterval: 60,
	}, nil
}

func (p *Params) validate() error {
	if p.BitRate <= 0 {
		return fmt.Errorf("vaapi: bitrate must be positive, got %d", p.BitRate)
	}
	if p.FrameRate <= 0 {
		return fmt.Errorf("vaapi: frame rate must be positive, got %v", p.FrameRate)
	}
	if p.MaxQP > 51 {
		return fmt.Errorf("vaapi: max QP %d out of range [0, 51]", p.MaxQP)
	}
	if p.MinQP > p.MaxQP {
		return fmt.Errorf("vaapi: min QP %d above max QP %d", p.MinQP, p.MaxQP)
	}
	if p.InitialQP < p.MinQP || p.InitialQP > p.MaxQP {
		return fmt.Errorf("vaapi: initial QP %d outside [%d, %d]", p.InitialQP, p.MinQP, p.MaxQP)
	}
	if p.KeyFrameInterval == 0 {
		return fmt.Errorf("vaapi: key frame interval must be positive")
	}
	if p.EntropyCodingCABAC && p.Profile == libva.ProfileH264ConstrainedBaseline {
		return fmt.Errorf("vaapi: CABAC requires main profile or higher")
	}
	return nil
}
