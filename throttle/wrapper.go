package throttle

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/zeptools/gw-invoice/requests"
	"github.com/zeptools/gw-invoice/responses"
)

// Wrap throttles by client IP (proxy headers only with TrustProxy) and answers 429 with Retry-After once the bucket is empty
func (s *BucketStore) Wrap(inner http.Handler) http.Handler {
	retryAfter := strconv.Itoa(max(1, int(s.conf.Period/time.Second)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := requests.ClientIP(r, s.conf.TrustProxy)
		if !s.Allow(ip, time.Now()) {
			log.Printf("[WARN][%s] throttled %s", requests.RequestID(r.Context()), ip)
			w.Header().Set("Retry-After", retryAfter)
			responses.WriteErrorText(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		inner.ServeHTTP(w, r)
	})
}
