//go:build !linux

package capture

import "errors"

// NewCamera requires V4L2 and is only available on Linux.
func NewCamera(path string, width, height int) (Source, error) {
	return nil, errors.New("capture: camera capture requires Linux")
}
