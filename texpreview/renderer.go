package texpreview

// Renderer is the GPU/display side of the pipeline. All methods except
// DestroyWindow are invoked on the render worker goroutine, which is
// locked to an OS thread so GL context affinity holds.
type Renderer interface {
	// CreateWindow brings up the native window and the GL context. Runs
	// first on the render worker, before any scene hook.
	CreateWindow(st *RenderState) error

	// UpdateTexture imports the payload as a GPU image and binds it to
	// the preview texture, replacing the image from the previous frame.
	// It returns the new image handle. A renderer that cannot produce an
	// image yet may return (nil, nil); the pipeline then skips drawing
	// for this frame without error. A non-nil error is fatal to the
	// running session.
	UpdateTexture(payload []byte, st *RenderState) (Image, error)

	// SwapBuffers presents the most recently drawn frame.
	SwapBuffers() error

	// TerminateGL tears down the GL context on the render worker as it
	// exits. Must be safe to call even if CreateWindow failed.
	TerminateGL()

	// DestroyWindow releases the native window. Called from the
	// controller during Destroy; must be idempotent and safe when no
	// window was ever created.
	DestroyWindow()
}

// Scene is the caller-supplied drawing collaborator. It receives the
// shared render state on every hook; the tunable fields on the state are
// the scene's configuration, passed through untouched by the pipeline.
type Scene interface {
	// Open runs once during Init, before the render worker exists. No GL
	// context is available yet.
	Open(st *RenderState) error

	// Init runs on the render worker after the GL context is up and
	// before the first frame.
	Init(st *RenderState) error

	// Draw runs once per imported frame. A failure stops the session.
	Draw(st *RenderState) error
}
