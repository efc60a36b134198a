// Package glrender implements the texpreview Renderer on OpenGL, with
// GLFW providing the native window and context.
//
// Captured frames are imported by uploading the payload into a single
// reused GL texture. The first import allocates the texture storage;
// every later one rewrites it in place, so steady-state rendering
// allocates nothing on the GL side.
//
// All methods except DestroyWindow run on the render worker's locked OS
// thread. DestroyWindow runs on the controller after the worker has
// exited.
package glrender

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/hassaan-janjua/led-localization/texpreview"
)

// Config holds the renderer configuration.
type Config struct {
	// Title is the window title. Empty selects a default.
	Title string

	// VSync synchronizes display swaps with the monitor refresh. Off by
	// default: the pipeline is paced by capture delivery, not the
	// display.
	VSync bool

	// Logger receives all renderer logging. nil selects slog.Default().
	Logger *slog.Logger
}

const defaultTitle = "led-localization preview"

// Texture identifies the GL texture holding the current frame. It is
// the concrete type behind the texpreview.Image handles this renderer
// returns.
type Texture struct {
	ID     uint32
	Width  int
	Height int
}

// Renderer implements texpreview.Renderer on an OpenGL 4.1 core context.
type Renderer struct {
	title string
	vsync bool
	log   *slog.Logger

	window *glfw.Window
	tex    *Texture
	width  int
	height int

	destroyed atomic.Bool
}

// New creates a renderer. No GL or window resources are touched until
// CreateWindow runs on the render worker.
func New(cfg Config) *Renderer {
	title := cfg.Title
	if title == "" {
		title = defaultTitle
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Renderer{
		title: title,
		vsync: cfg.VSync,
		log:   log,
	}
}

// CreateWindow opens the native window, makes the GL context current on
// the calling thread and prepares the viewport.
func (r *Renderer) CreateWindow(st *texpreview.RenderState) error {
	if err := glfw.Init(); err != nil {
		return fmt.Errorf("glrender: glfw init: %w", err)
	}

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Resizable, glfw.False)

	window, err := glfw.CreateWindow(st.Width, st.Height, r.title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return fmt.Errorf("glrender: create window %dx%d: %w", st.Width, st.Height, err)
	}
	window.MakeContextCurrent()

	if err := gl.Init(); err != nil {
		window.Destroy()
		glfw.Terminate()
		return fmt.Errorf("glrender: gl init: %w", err)
	}

	if r.vsync {
		glfw.SwapInterval(1)
	} else {
		glfw.SwapInterval(0)
	}

	if st.Opacity < 255 {
		window.SetOpacity(float32(st.Opacity) / 255.0)
	}

	gl.Viewport(0, 0, int32(st.Width), int32(st.Height))

	r.window = window
	r.width = st.Width
	r.height = st.Height

	r.log.Info("glrender: window created",
		"size", fmt.Sprintf("%dx%d", st.Width, st.Height),
		"gl_version", gl.GoStr(gl.GetString(gl.VERSION)),
		"vsync", r.vsync,
	)
	return nil
}

// UpdateTexture imports one frame payload into the GL texture. The
// first call allocates the texture; later calls rewrite its storage.
// The returned handle stays the same for the whole session.
func (r *Renderer) UpdateTexture(payload []byte, st *texpreview.RenderState) (texpreview.Image, error) {
	if r.window == nil {
		return nil, fmt.Errorf("glrender: no GL context")
	}
	need := r.width * r.height * 4
	if len(payload) < need {
		return nil, fmt.Errorf("glrender: payload %d bytes, need %d for %dx%d RGBA",
			len(payload), need, r.width, r.height)
	}

	if r.tex == nil {
		var id uint32
		gl.GenTextures(1, &id)
		gl.BindTexture(gl.TEXTURE_2D, id)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8,
			int32(r.width), int32(r.height), 0,
			gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(payload))

		if e := gl.GetError(); e != gl.NO_ERROR {
			gl.DeleteTextures(1, &id)
			return nil, fmt.Errorf("glrender: texture allocation failed, gl error 0x%04x", e)
		}

		r.tex = &Texture{ID: id, Width: r.width, Height: r.height}
		r.log.Debug("glrender: frame texture allocated", "texture", id)
		return r.tex, nil
	}

	gl.BindTexture(gl.TEXTURE_2D, r.tex.ID)
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0,
		int32(r.width), int32(r.height),
		gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(payload))

	if e := gl.GetError(); e != gl.NO_ERROR {
		return nil, fmt.Errorf("glrender: texture upload failed, gl error 0x%04x", e)
	}
	return r.tex, nil
}

// SwapBuffers presents the drawn frame and pumps window events. A close
// request from the window system is reported as an error, which ends
// the render session.
func (r *Renderer) SwapBuffers() error {
	if r.window == nil {
		return fmt.Errorf("glrender: no window")
	}
	r.window.SwapBuffers()
	glfw.PollEvents()
	if r.window.ShouldClose() {
		return fmt.Errorf("glrender: window closed")
	}
	return nil
}

// TerminateGL releases GL objects and detaches the context from the
// worker thread. Safe to call when CreateWindow failed part way.
func (r *Renderer) TerminateGL() {
	if r.tex != nil {
		gl.DeleteTextures(1, &r.tex.ID)
		r.tex = nil
	}
	if r.window != nil {
		glfw.DetachCurrentContext()
	}
	r.log.Debug("glrender: GL context released")
}

// DestroyWindow closes the native window and shuts GLFW down.
// Idempotent; runs on the controller after the render worker exited.
func (r *Renderer) DestroyWindow() {
	if !r.destroyed.CompareAndSwap(false, true) {
		return
	}
	if r.window != nil {
		r.window.Destroy()
		r.window = nil
		glfw.Terminate()
		r.log.Info("glrender: window destroyed")
	}
}
