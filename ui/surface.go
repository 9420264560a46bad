package ui

// Surface is what the refresh loop needs from a screen.
// Schedule may be called from any goroutine; fn runs later on the UI loop,
// and a newer fn for the same id replaces a pending one. Attach and Detach
// are only called from inside scheduled functions or during assembly.
type Surface interface {
	Schedule(id string, fn func())
	Attach(w Widget) error
	Detach(w Widget)
}
