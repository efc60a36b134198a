package texpreview

import "errors"

var (
	// ErrInit is returned when one-time session setup fails.
	ErrInit = errors.New("texpreview: init failed")

	// ErrAllocation is returned when the buffer pool or pending queue
	// cannot be created with the requested dimensions.
	ErrAllocation = errors.New("texpreview: allocation failed")

	// ErrConfigure is returned when capture source configuration fails.
	// Partial resources from the failed attempt are torn down before the
	// error is returned.
	ErrConfigure = errors.New("texpreview: source configuration failed")

	// ErrStart is returned when the render worker cannot be brought up,
	// including native window and scene initialization on the worker.
	ErrStart = errors.New("texpreview: start failed")

	// ErrImport is returned through Stop/Err when a GPU image import or
	// texture update fails. It is fatal to the running session.
	ErrImport = errors.New("texpreview: image import failed")

	// ErrWorkerActive is returned by Destroy while the render worker has
	// not exited yet.
	ErrWorkerActive = errors.New("texpreview: render worker still active")
)
