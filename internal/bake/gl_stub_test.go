//go:build !gl

package bake

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGLBackendUnavailable(t *testing.T) {
	b, err := NewBackend("gl", 0)
	assert.Nil(t, b)
	assert.ErrorIs(t, err, ErrGLUnavailable)
}
