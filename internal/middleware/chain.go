package middleware

import "net/http"

// Chain applies middleware in the order given: the first one runs first.
//
// Example:
//
//	handler := Chain(mux,
//	    RequestID,
//	    RequestLogging,
//	    Auth(authService),
//	)
func Chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
