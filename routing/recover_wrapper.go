package routing

import (
	"log"
	"net/http"
	"runtime/debug"

	"github.com/zeptools/gw-invoice/requests"
	"github.com/zeptools/gw-invoice/responses"
)

// RecoverWrapper turns a handler panic into a plain-text 500
var RecoverWrapper = WrapperFunc(func(inner http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("[PANIC][%s] recovered: %v\n%s", requests.RequestID(r.Context()), rec, debug.Stack())
				responses.WriteErrorText(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		inner.ServeHTTP(w, r)
	})
})
