// Package dispatch runs event handlers with panic recovery.
//
// The core delivers every event to every component synchronously, in
// registration order. A handler that panics must not prevent the remaining
// components from receiving the event, so each delivery goes through an
// Executor which converts panics into a Result.
//
// # Usage
//
//	exec := dispatch.NewExecutor(
//	    dispatch.WithPanicHandler(func(ev event.Event, v any, stack []byte) {
//	        log.Error("handler panic", zap.Any("value", v))
//	    }),
//	)
//	if result := exec.Execute(ev, comp.OnEvent); result.Panicked {
//	    // Log and continue with the next component
//	}
package dispatch
