package display

import (
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/rs/zerolog"

	"github.com/normanking/puppetcam/internal/render"
)

// Config controls the presentation window.
type Config struct {
	Width  int
	Height int
	Title  string
	VSync  bool
}

// Window is a GLFW-backed presentation surface. All OpenGL work happens on
// the thread that runs the event loop; Present hands frames over from the
// render goroutine and blocks until the frame has been swapped, which pins
// the render loop to the display refresh rate when vsync is on.
type Window struct {
	win    *glfw.Window
	config Config
	logger zerolog.Logger

	blitShader *Shader
	frameTex   uint32
	quadVAO    uint32

	frames chan *image.RGBA
	acks   chan error

	closeOnce sync.Once
	closed    chan struct{}
}

// NewWindow creates the window and the blit pipeline. Must be called on the
// main thread after glfw.Init.
func NewWindow(cfg Config, logger zerolog.Logger) (*Window, error) {
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Resizable, glfw.False)

	win, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create window: %w", err)
	}
	win.MakeContextCurrent()

	if err := gl.Init(); err != nil {
		win.Destroy()
		return nil, fmt.Errorf("gl init: %w", err)
	}

	if cfg.VSync {
		glfw.SwapInterval(1)
	} else {
		glfw.SwapInterval(0)
	}

	w := &Window{
		win:    win,
		config: cfg,
		logger: logger.With().Str("component", "display").Logger(),
		frames: make(chan *image.RGBA),
		acks:   make(chan error),
		closed: make(chan struct{}),
	}

	w.blitShader, err = NewShaderFromSource(blitVertSrc, blitFragSrc)
	if err != nil {
		win.Destroy()
		return nil, fmt.Errorf("blit shader: %w", err)
	}

	gl.GenVertexArrays(1, &w.quadVAO)

	gl.GenTextures(1, &w.frameTex)
	gl.BindTexture(gl.TEXTURE_2D, w.frameTex)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8,
		int32(cfg.Width), int32(cfg.Height),
		0, gl.RGBA, gl.UNSIGNED_BYTE, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	return w, nil
}

// Size returns the drawing surface dimensions in pixels.
func (w *Window) Size() (int, int) {
	return w.config.Width, w.config.Height
}

// Present hands a finished frame to the event loop and waits for the swap.
// Returns ErrSurfaceUnavailable once the window is gone.
func (w *Window) Present(img *image.RGBA) error {
	select {
	case w.frames <- img:
	case <-w.closed:
		return render.ErrSurfaceUnavailable
	}
	select {
	case err := <-w.acks:
		return err
	case <-w.closed:
		return render.ErrSurfaceUnavailable
	}
}

// RunEventLoop drives the window until it is closed by the user or Close is
// called. Must run on the main thread.
func (w *Window) RunEventLoop() {
	for !w.win.ShouldClose() {
		select {
		case <-w.closed:
			return
		case img := <-w.frames:
			w.blit(img)
			w.win.SwapBuffers()
			w.acks <- nil
		case <-time.After(100 * time.Millisecond):
			// Keep the window responsive while no session is rendering.
		}
		glfw.PollEvents()
	}
	w.markClosed()
	w.logger.Info().Msg("Window closed")
}

func (w *Window) blit(img *image.RGBA) {
	bounds := img.Bounds()
	gl.BindTexture(gl.TEXTURE_2D, w.frameTex)
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0,
		int32(bounds.Dx()), int32(bounds.Dy()),
		gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))

	gl.Clear(gl.COLOR_BUFFER_BIT)

	w.blitShader.Use()
	gl.ActiveTexture(gl.TEXTURE0)
	w.blitShader.SetInt("uFrame", 0)

	gl.BindVertexArray(w.quadVAO)
	gl.DrawArrays(gl.TRIANGLES, 0, 3)
	gl.BindVertexArray(0)
}

func (w *Window) markClosed() {
	w.closeOnce.Do(func() { close(w.closed) })
}

// Close unblocks Present callers and stops the event loop. Safe to call
// from any goroutine and more than once.
func (w *Window) Close() {
	w.markClosed()
	w.win.SetShouldClose(true)
	glfw.PostEmptyEvent()
}

// Closed is closed once the window can no longer present frames.
func (w *Window) Closed() <-chan struct{} {
	return w.closed
}

// Destroy releases GL resources and the window. Main thread only, after the
// event loop has exited.
func (w *Window) Destroy() {
	w.markClosed()
	w.blitShader.Delete()
	gl.DeleteVertexArrays(1, &w.quadVAO)
	gl.DeleteTextures(1, &w.frameTex)
	w.win.Destroy()
}
