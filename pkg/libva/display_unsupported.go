//go:build !cgo || (!dragonfly && !freebsd && !linux && !netbsd && !openbsd && !solaris)

package libva

// Open is unavailable on platforms without VA-API and DRM render nodes.
func Open(path string) (Display, error) {
	return nil, ErrUnsupported
}
