package routing

import "net/http"

// HandlerWrapper is middleware: Wrap returns a handler that runs around h
type HandlerWrapper interface {
	Wrap(h http.Handler) http.Handler
}

// WrapperFunc adapts a plain middleware func to HandlerWrapper
type WrapperFunc func(http.Handler) http.Handler

func (f WrapperFunc) Wrap(h http.Handler) http.Handler {
	return f(h)
}

// Chain applies wrappers so that wrappers[0] runs first
func Chain(h http.Handler, wrappers ...HandlerWrapper) http.Handler {
	for i := len(wrappers) - 1; i >= 0; i-- {
		h = wrappers[i].Wrap(h)
	}
	return h
}
