package responses

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
)

// Payload is a fully rendered, in-memory response body
type Payload interface {
	io.WriterTo
	Len() int
	ContentType() string
}

// WriteAttachment writes a document as a download, e.g. `invoice_7.pdf`
func WriteAttachment(w http.ResponseWriter, filename string, p Payload) {
	WriteAttachmentHeaders(w, filename, p.ContentType(), p.Len())
	if _, err := p.WriteTo(w); err != nil {
		log.Printf("[ERROR] writing %s to response: %v", filename, err)
	}
}

// WriteAttachmentHeaders writes HTTP response headers for a downloaded file. i.e. headers are frozen
func WriteAttachmentHeaders(w http.ResponseWriter, filename string, contentType string, size int) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.Header().Set("Content-Length", strconv.Itoa(size))
	w.WriteHeader(http.StatusOK) // Response Header Sent & Frozen
}
