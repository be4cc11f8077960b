//go:build gl

package bake

import (
	"context"
	_ "embed"
	"fmt"
	"runtime"
	"sync"

	"github.com/go-gl/gl/v4.3-core/gl"
	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/densitybaker/internal/logger"
	"github.com/Faultbox/densitybaker/pkg/field"
	"github.com/Faultbox/densitybaker/pkg/volume"
)

//go:embed shaders/volume.comp
var volumeShaderSrc string

//go:embed shaders/slice.comp
var sliceShaderSrc string

const (
	synthGroupSize = 8
	sliceGroupSize = 32
)

// GLBackend synthesizes volumes with OpenGL compute shaders in a hidden SDL
// window. All GL calls run on one locked OS thread.
type GLBackend struct {
	calls chan func()
	quit  chan struct{}
	done  chan struct{}
	once  sync.Once

	window    *sdl.Window
	glContext sdl.GLContext

	volumeProg uint32
	sliceProg  uint32

	log *zap.Logger
}

// NewGLBackend creates the GL context and compiles the compute programs.
func NewGLBackend() (Backend, error) {
	b := &GLBackend{
		calls: make(chan func()),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
		log:   logger.Named("gl"),
	}
	ready := make(chan error, 1)
	go b.loop(ready)
	if err := <-ready; err != nil {
		return nil, err
	}
	return b, nil
}

func (b *GLBackend) Name() string { return "gl" }

// loop owns the GL context for the lifetime of the backend.
func (b *GLBackend) loop(ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(b.done)

	if err := b.init(); err != nil {
		b.teardown()
		ready <- err
		return
	}
	ready <- nil

	for {
		select {
		case f := <-b.calls:
			f()
		case <-b.quit:
			b.teardown()
			return
		}
	}
}

// do runs f on the GL thread and waits for it.
func (b *GLBackend) do(f func() error) error {
	errc := make(chan error, 1)
	select {
	case b.calls <- func() { errc <- f() }:
	case <-b.done:
		return fmt.Errorf("gl backend closed")
	}
	return <-errc
}

func (b *GLBackend) init() error {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return fmt.Errorf("SDL_Init failed: %w", err)
	}

	// Compute shaders need 4.3.
	sdl.GLSetAttribute(sdl.GL_CONTEXT_MAJOR_VERSION, 4)
	sdl.GLSetAttribute(sdl.GL_CONTEXT_MINOR_VERSION, 3)
	sdl.GLSetAttribute(sdl.GL_CONTEXT_PROFILE_MASK, sdl.GL_CONTEXT_PROFILE_CORE)

	var err error
	b.window, err = sdl.CreateWindow("volbake", sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		1, 1, uint32(sdl.WINDOW_OPENGL|sdl.WINDOW_HIDDEN))
	if err != nil {
		return fmt.Errorf("SDL_CreateWindow failed: %w", err)
	}
	b.glContext, err = b.window.GLCreateContext()
	if err != nil {
		return fmt.Errorf("SDL_GL_CreateContext failed: %w", err)
	}
	if err := gl.Init(); err != nil {
		return fmt.Errorf("gl init: %w", err)
	}

	b.log.Info("gl context created",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)

	if b.volumeProg, err = compileCompute(volumeShaderSrc, "volume"); err != nil {
		return err
	}
	if b.sliceProg, err = compileCompute(sliceShaderSrc, "slice"); err != nil {
		return err
	}
	return nil
}

func (b *GLBackend) teardown() {
	if b.volumeProg != 0 {
		gl.DeleteProgram(b.volumeProg)
	}
	if b.sliceProg != 0 {
		gl.DeleteProgram(b.sliceProg)
	}
	if b.glContext != nil {
		sdl.GLDeleteContext(b.glContext)
	}
	if b.window != nil {
		b.window.Destroy()
	}
	sdl.Quit()
}

// Close stops the GL thread and destroys the context.
func (b *GLBackend) Close() error {
	b.once.Do(func() {
		close(b.quit)
		<-b.done
	})
	return nil
}

// Synthesize dispatches the volume program over an r³ RGBA16F texture.
func (b *GLBackend) Synthesize(ctx context.Context, ev *field.Evaluator, r int) (Volume, error) {
	if ev == nil {
		return nil, errNilEvaluator("synthesize")
	}
	if err := volume.ValidateResolution(r); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var tex uint32
	err := b.do(func() error {
		gl.GenTextures(1, &tex)
		gl.BindTexture(gl.TEXTURE_3D, tex)
		gl.TexStorage3D(gl.TEXTURE_3D, 1, gl.RGBA16F, int32(r), int32(r), int32(r))
		gl.TexParameteri(gl.TEXTURE_3D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
		gl.TexParameteri(gl.TEXTURE_3D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
		gl.TexParameteri(gl.TEXTURE_3D, gl.TEXTURE_WRAP_R, gl.CLAMP_TO_EDGE)
		gl.TexParameteri(gl.TEXTURE_3D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
		gl.TexParameteri(gl.TEXTURE_3D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
		if err := glError("allocate volume"); err != nil {
			gl.DeleteTextures(1, &tex)
			return &volume.BakeError{Kind: volume.KindAllocation, Op: "synthesize", Err: err}
		}

		gl.UseProgram(b.volumeProg)
		setVolumeUniforms(b.volumeProg, ev.Params(), r)
		gl.BindImageTexture(0, tex, 0, true, 0, gl.WRITE_ONLY, gl.RGBA16F)

		groups := synthGroups(r)
		gl.DispatchCompute(groups, groups, groups)
		gl.MemoryBarrier(gl.SHADER_IMAGE_ACCESS_BARRIER_BIT | gl.TEXTURE_UPDATE_BARRIER_BIT)
		gl.Finish()
		if err := glError("dispatch volume"); err != nil {
			gl.DeleteTextures(1, &tex)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	b.log.Debug("volume dispatched", zap.Int("resolution", r), zap.Uint32("groups", synthGroups(r)))
	return &glVolume{b: b, tex: tex, r: r}, nil
}

// synthGroups covers r voxels per axis with 8-wide groups, never fewer than
// eight groups.
func synthGroups(r int) uint32 {
	return uint32(max(8, ceilDiv(r, synthGroupSize)))
}

func sliceGroups(r int) uint32 {
	return uint32(ceilDiv(r, sliceGroupSize))
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

func setVolumeUniforms(prog uint32, p field.Params, r int) {
	u := func(name string) int32 {
		return gl.GetUniformLocation(prog, gl.Str(name+"\x00"))
	}
	gl.Uniform1i(u("uResolution"), int32(r))
	gl.Uniform1i(u("uShape"), int32(p.Shape.Kind()))
	gl.Uniform1f(u("uFallOff"), p.FallOff)
	switch s := p.Shape.(type) {
	case field.Sphere:
		gl.Uniform1f(u("uRadius"), s.Radius)
	case field.Cylinder:
		gl.Uniform1f(u("uRadius"), s.Radius)
	case field.Torus:
		gl.Uniform1f(u("uMajorRadius"), s.Major)
		gl.Uniform1f(u("uMinorRadius"), s.Minor)
	}
	enabled := int32(0)
	if p.Noise.Enabled {
		enabled = 1
	}
	gl.Uniform1i(u("uNoiseEnabled"), enabled)
	gl.Uniform1f(u("uNoiseDensity"), p.Noise.Density)
	gl.Uniform1f(u("uNoiseIntensity"), p.Noise.Intensity)
}

// glVolume is a density texture on the GPU.
type glVolume struct {
	b    *GLBackend
	tex  uint32
	r    int
	once sync.Once
}

func (v *glVolume) Resolution() int { return v.r }

// ExtractLayer copies depth z into an RGBA32F slice texture and reads it
// back. Calls from concurrent workers are serialized on the GL thread.
func (v *glVolume) ExtractLayer(ctx context.Context, z int) (*volume.Layer, error) {
	if err := checkDepth(z, v.r); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	layer, err := volume.NewLayer(z, v.r)
	if err != nil {
		return nil, err
	}

	err = v.b.do(func() error {
		var slice uint32
		gl.GenTextures(1, &slice)
		defer gl.DeleteTextures(1, &slice)
		gl.BindTexture(gl.TEXTURE_2D, slice)
		gl.TexStorage2D(gl.TEXTURE_2D, 1, gl.RGBA32F, int32(v.r), int32(v.r))

		gl.UseProgram(v.b.sliceProg)
		gl.Uniform1i(gl.GetUniformLocation(v.b.sliceProg, gl.Str("uResolution\x00")), int32(v.r))
		gl.Uniform1i(gl.GetUniformLocation(v.b.sliceProg, gl.Str("uLayer\x00")), int32(z))
		gl.BindImageTexture(0, v.tex, 0, true, 0, gl.READ_ONLY, gl.RGBA16F)
		gl.BindImageTexture(1, slice, 0, false, 0, gl.WRITE_ONLY, gl.RGBA32F)

		groups := sliceGroups(v.r)
		gl.DispatchCompute(groups, groups, 1)
		gl.MemoryBarrier(gl.TEXTURE_UPDATE_BARRIER_BIT)

		// Texel (X, Y) is read back at X + Y*R, which the shader filled
		// with voxel (Y, X): the layer's v + u*R layout.
		gl.BindTexture(gl.TEXTURE_2D, slice)
		gl.GetTexImage(gl.TEXTURE_2D, 0, gl.RGBA, gl.FLOAT, gl.Ptr(&layer.Pix[0]))
		return glError(fmt.Sprintf("extract layer %d", z))
	})
	if err != nil {
		return nil, err
	}
	return layer, nil
}

// ReadPacked reads the red channel of the whole texture. The texture is
// x-fastest, matching the packed grid order.
func (v *glVolume) ReadPacked(ctx context.Context) (*volume.PackedGrid, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	grid, err := volume.NewPackedGrid(v.r)
	if err != nil {
		return nil, err
	}
	err = v.b.do(func() error {
		gl.MemoryBarrier(gl.TEXTURE_UPDATE_BARRIER_BIT)
		gl.BindTexture(gl.TEXTURE_3D, v.tex)
		gl.PixelStorei(gl.PACK_ALIGNMENT, 4)
		gl.GetTexImage(gl.TEXTURE_3D, 0, gl.RED, gl.FLOAT, gl.Ptr(&grid.Values[0]))
		return glError("read packed")
	})
	if err != nil {
		return nil, err
	}
	return grid, nil
}

func (v *glVolume) Release() {
	v.once.Do(func() {
		_ = v.b.do(func() error {
			gl.DeleteTextures(1, &v.tex)
			return nil
		})
	})
}

func compileCompute(source, name string) (uint32, error) {
	shader := gl.CreateShader(gl.COMPUTE_SHADER)
	csource, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csource, nil)
	free()
	gl.CompileShader(shader)
	defer gl.DeleteShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		log := make([]byte, logLen+1)
		gl.GetShaderInfoLog(shader, logLen, nil, &log[0])
		return 0, fmt.Errorf("%s shader: %s", name, string(log))
	}

	program := gl.CreateProgram()
	gl.AttachShader(program, shader)
	gl.LinkProgram(program)

	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLen)
		log := make([]byte, logLen+1)
		gl.GetProgramInfoLog(program, logLen, nil, &log[0])
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("link %s: %s", name, string(log))
	}
	return program, nil
}

func glError(op string) error {
	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("%s: gl error 0x%x", op, code)
	}
	return nil
}
