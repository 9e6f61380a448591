// Package safego runs the few helper goroutines of the pty host (display
// input reader, resize watcher) so that a panic in one of them is logged and
// reported instead of tearing the process down with the display still in raw
// mode.
package safego

import (
	"runtime/debug"
	"sync"

	"github.com/andyrewlee/ncte/internal/logging"
)

// PanicHandler receives panic details from recovered goroutines.
type PanicHandler func(name string, recovered any, stack []byte)

var (
	panicHandlerMu sync.RWMutex
	panicHandler   PanicHandler
)

// SetPanicHandler registers a global handler for recovered panics.
func SetPanicHandler(handler PanicHandler) {
	panicHandlerMu.Lock()
	panicHandler = handler
	panicHandlerMu.Unlock()
}

// Run executes fn and converts panics into logged errors.
// This does not recover from runtime-fatal errors (e.g., concurrent map writes).
func Run(name string, fn func()) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		label := name
		if label == "" {
			label = "goroutine"
		}
		stack := debug.Stack()
		logging.Error("panic in %s: %v\n%s", label, r, stack)

		panicHandlerMu.RLock()
		handler := panicHandler
		panicHandlerMu.RUnlock()
		if handler == nil {
			return
		}
		defer func() { _ = recover() }()
		handler(label, r, stack)
	}()
	fn()
}

// Go runs fn in a new goroutine with panic recovery. The returned channel is
// closed once fn has returned or panicked.
func Go(name string, fn func()) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		Run(name, fn)
	}()
	return done
}
