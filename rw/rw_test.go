package rw

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCountWriter(t *testing.T) {
	var buf bytes.Buffer
	cw := NewCountWriter(&buf)
	_, _ = cw.Write([]byte("hello "))
	_, _ = cw.Write([]byte("world"))
	if cw.BytesWritten() != 11 {
		t.Errorf("BytesWritten = %d, want 11", cw.BytesWritten())
	}
	if buf.String() != "hello world" {
		t.Errorf("got %q", buf.String())
	}
}

func TestStatusWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := NewStatusWriter(rec)
	if sw.StatusCode() != http.StatusOK {
		t.Errorf("default status = %d", sw.StatusCode())
	}
	sw.WriteHeader(http.StatusInternalServerError)
	_, _ = sw.Write([]byte("Error: boom"))
	if sw.StatusCode() != http.StatusInternalServerError {
		t.Errorf("status = %d", sw.StatusCode())
	}
	if sw.BytesWritten() != int64(len("Error: boom")) {
		t.Errorf("BytesWritten = %d", sw.BytesWritten())
	}
	if rec.Code != http.StatusInternalServerError || rec.Body.String() != "Error: boom" {
		t.Errorf("recorder got %d %q", rec.Code, rec.Body.String())
	}
}
