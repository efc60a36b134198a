// Package texpreview implements a zero-copy camera preview pipeline:
// captured frames travel from the camera to an on-screen GPU texture as
// recycled opaque buffers, never as copies.
//
// # Philosophy
//
// "Hand the buffer around, never the bytes."
//
// A fixed set of buffers is allocated once and then circulates between
// three stations: the capture source fills them, the arrival queue holds
// them in order, and the render worker imports them into a texture. At
// every instant each buffer belongs to exactly one station; releasing it
// returns it to the idle pool for the next lap. Frame payloads are never
// duplicated on the capture-to-texture path.
//
// # Design Principles
//
//  1. Non-blocking completion: the capture callback classifies, stamps and
//     enqueues. It never blocks and never touches the GPU.
//  2. Single render worker: one goroutine owns the GL context, the texture
//     and the current buffer. No GPU state is shared.
//  3. Deferred recycling: the buffer backing the on-screen texture is
//     released only after the next buffer has replaced it, so the GPU
//     never samples from a buffer the camera is overwriting.
//  4. Ordered delivery: the arrival queue is strictly FIFO. Frames render
//     in capture order or not at all.
//  5. Bounded idle poll: when no frame is pending the worker sleeps for
//     PollInterval instead of spinning.
//
// # Architecture
//
//	capture source ── completion callback ──→ arrival queue (FIFO)
//	      ↑                                        │
//	      │ SendEmptyBuffer                        │ TryGet
//	      │                                        ↓
//	  idle pool ←──────── Release ────────── render worker ──→ texture → scene → display
//
// The capture source and the renderer are interfaces; gstcapture provides
// a GStreamer-backed Source and glrender an OpenGL-backed Renderer.
//
// # Basic Usage
//
//	cfg := texpreview.DefaultConfig()
//	cfg.Logger = slog.Default()
//
//	pipe, err := texpreview.New(cfg, source, renderer, scene)
//	if err != nil {
//	    log.Fatalf("pipeline: %v", err)
//	}
//
//	if err := pipe.Init(); err != nil {
//	    log.Fatalf("init: %v", err)
//	}
//	if err := pipe.ConfigureSource(); err != nil {
//	    log.Fatalf("configure: %v", err)
//	}
//	if err := pipe.Start(); err != nil {
//	    log.Fatalf("start: %v", err)
//	}
//
//	// ... run until interrupted ...
//
//	if err := pipe.Stop(); err != nil {
//	    log.Printf("session ended with error: %v", err)
//	}
//	pipe.Destroy()
//
// Stop is idempotent and joins the render worker. Destroy releases the
// pool, the queue and the native window; it refuses to run while the
// worker is still alive.
//
// # End of Stream and Errors
//
// A zero-length buffer from the source marks end of stream: the worker
// drains the queue, releases every pending buffer and exits. The
// lifecycle phase stays Running until the controller calls Stop; Stats
// reports the EOS flag and Err stays nil for a clean drain.
//
// A texture import or scene draw failure is fatal to the session. The
// worker records the error, begins shutdown, and Stop (or Err) surfaces
// it after the fact.
//
// # Monitoring
//
// Check session health with Stats():
//
//	st := pipe.Stats()
//	if st.RefillFailures > 0 {
//	    log.Warn("source slow to accept buffers", "failures", st.RefillFailures)
//	}
//	if st.DoubleReleases > 0 {
//	    log.Error("buffer ownership bug upstream", "count", st.DoubleReleases)
//	}
//
// # Limitations
//
// The pipeline renders frames as delivered. Color-space conversion,
// texture filtering and per-pixel processing belong to the source
// pipeline or the scene, not to this package.
package texpreview
