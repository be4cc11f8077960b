//go:build !gl

package bake

import "errors"

// ErrGLUnavailable is returned when the binary was built without the gl tag.
var ErrGLUnavailable = errors.New("gl backend not compiled in (build with -tags gl)")

// NewGLBackend reports that GPU synthesis is unavailable in this build.
func NewGLBackend() (Backend, error) {
	return nil, ErrGLUnavailable
}
