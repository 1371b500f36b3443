//go:build windows

package worker

// ListenForSignals is a no-op on platforms without the POSIX signal set
// spec.md §4.9 assigns meaning to. Callers still control the worker via
// RequestShutdown/RequestForceShutdown/RequestPause/RequestResume/
// RequestKillChild directly.
func (w *Worker) ListenForSignals() func() {
	return func() {}
}
