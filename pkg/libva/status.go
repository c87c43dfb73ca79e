package libva

import "fmt"

// Status is a VA-API driver status code. Any value other than StatusSuccess
// is an error.
type Status int32

const (
	StatusSuccess                Status = 0x00000000
	StatusErrOperationFailed     Status = 0x00000001
	StatusErrAllocationFailed    Status = 0x00000002
	StatusErrInvalidDisplay      Status = 0x00000003
	StatusErrInvalidConfig       Status = 0x00000004
	StatusErrInvalidContext      Status = 0x00000005
	StatusErrInvalidSurface      Status = 0x00000006
	StatusErrInvalidBuffer       Status = 0x00000007
	StatusErrInvalidImage        Status = 0x00000008
	StatusErrAttrNotSupported    Status = 0x0000000a
	StatusErrMaxNumExceeded      Status = 0x0000000b
	StatusErrUnsupportedProfile  Status = 0x0000000c
	StatusErrUnsupportedEntryp   Status = 0x0000000d
	StatusErrUnsupportedRTFormat Status = 0x0000000e
	StatusErrSurfaceBusy         Status = 0x00000011
	StatusErrDecodingError       Status = 0x00000017
	StatusErrEncodingError       Status = 0x00000018
)

var statusNames = map[Status]string{
	StatusSuccess:                "success",
	StatusErrOperationFailed:     "operation failed",
	StatusErrAllocationFailed:    "allocation failed",
	StatusErrInvalidDisplay:      "invalid display",
	StatusErrInvalidConfig:       "invalid config",
	StatusErrInvalidContext:      "invalid context",
	StatusErrInvalidSurface:      "invalid surface",
	StatusErrInvalidBuffer:       "invalid buffer",
	StatusErrInvalidImage:        "invalid image",
	StatusErrAttrNotSupported:    "attribute not supported",
	StatusErrMaxNumExceeded:      "maximum number exceeded",
	StatusErrUnsupportedProfile:  "unsupported profile",
	StatusErrUnsupportedEntryp:   "unsupported entrypoint",
	StatusErrUnsupportedRTFormat: "unsupported render target format",
	StatusErrSurfaceBusy:         "surface busy",
	StatusErrDecodingError:       "decoding error",
	StatusErrEncodingError:       "encoding error",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status 0x%08x", uint32(s))
}

// Error makes a non-success Status usable as an error value.
func (s Status) Error() string {
	return s.String()
}

// statusError wraps a non-success status with the failing call name.
// It returns nil for StatusSuccess so driver calls can be checked directly.
func statusError(call string, s Status) error {
	if s == StatusSuccess {
		return nil
	}
	return fmt.Errorf("libva: %s: %w", call, s)
}
