package responses

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

type payload struct{ b []byte }

func (p payload) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(p.b)
	return int64(n), err
}
func (p payload) Len() int            { return len(p.b) }
func (p payload) ContentType() string { return "application/pdf" }

func TestWriteAttachment(t *testing.T) {
	rec := httptest.NewRecorder()
	body := []byte("%PDF-1.4 test")
	WriteAttachment(rec, "invoice_3.pdf", payload{b: body})

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/pdf" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := rec.Header().Get("Content-Disposition"); got != "attachment; filename=invoice_3.pdf" {
		t.Errorf("Content-Disposition = %q", got)
	}
	if !bytes.Equal(rec.Body.Bytes(), body) {
		t.Errorf("body = %q", rec.Body.Bytes())
	}
}

func TestWriteErrorText(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteErrorText(rec, http.StatusInternalServerError, "boom")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "text/plain; charset=utf-8" {
		t.Errorf("Content-Type = %q", got)
	}
	if rec.Body.String() != "Error: boom" {
		t.Errorf("body = %q", rec.Body.String())
	}
}
