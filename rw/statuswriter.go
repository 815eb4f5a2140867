package rw

import "net/http"

// StatusWriter wraps an http.ResponseWriter to remember the status code
// and body size for access logs and metrics.
type StatusWriter struct {
	http.ResponseWriter
	Status int
	cw     *CountWriter
}

func NewStatusWriter(w http.ResponseWriter) *StatusWriter {
	return &StatusWriter{ResponseWriter: w, cw: NewCountWriter(w)}
}

func (sw *StatusWriter) WriteHeader(code int) {
	if sw.Status == 0 {
		sw.Status = code
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *StatusWriter) Write(p []byte) (int, error) {
	if sw.Status == 0 {
		sw.Status = http.StatusOK
	}
	return sw.cw.Write(p)
}

// StatusCode is 200 when the handler never wrote anything explicit
func (sw *StatusWriter) StatusCode() int {
	if sw.Status == 0 {
		return http.StatusOK
	}
	return sw.Status
}

func (sw *StatusWriter) BytesWritten() int64 {
	return sw.cw.BytesWritten()
}

// Unwrap lets http.ResponseController reach the underlying writer
func (sw *StatusWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}
