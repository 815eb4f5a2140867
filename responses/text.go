package responses

import (
	"log"
	"net/http"
)

// WriteErrorText writes `Error: <msg>` as text/plain
func WriteErrorText(w http.ResponseWriter, HTTPStatusCode int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(HTTPStatusCode) // Response Header Sent & Frozen
	if _, err := w.Write([]byte("Error: " + msg)); err != nil {
		log.Printf("[ERROR] writing error text to response: %v", err)
	}
}
