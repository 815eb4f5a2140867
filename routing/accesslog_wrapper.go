package routing

import (
	"log"
	"net/http"
	"time"

	"github.com/zeptools/gw-invoice/requests"
	"github.com/zeptools/gw-invoice/rw"
)

// AccessLogWrapper tags each request with an id (X-Request-ID) and logs one line when it ends
var AccessLogWrapper = WrapperFunc(func(inner http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := requests.IncomingOrNewRequestID(r)
		w.Header().Set(requests.HeaderRequestID, id)
		sw := rw.NewStatusWriter(w)
		r = r.WithContext(requests.WithRequestID(r.Context(), id))
		inner.ServeHTTP(sw, r)
		log.Printf("[INFO][%s] %s %s %s -> %d %dB %s",
			id,
			requests.ClientIP(r, true),
			r.Method,
			requests.RequestURL(r),
			sw.StatusCode(),
			sw.BytesWritten(),
			time.Since(start).Round(time.Microsecond),
		)
	})
})
