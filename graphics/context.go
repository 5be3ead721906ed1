package graphics

// Context defines the interface for an OpenGL context owned by one render thread.
type Context interface {
	MakeCurrent()
	Shutdown()
	ShouldClose() bool
	// EndFrame presents the frame and processes window events.
	EndFrame()
	// PollEvents processes window events without presenting.
	PollEvents()
	GetFramebufferSize() (int, int)
	Time() float64
}
