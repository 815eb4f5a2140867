package invoicesvc

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/zeptools/gw-invoice/archive"
	"github.com/zeptools/gw-invoice/counter"
	"github.com/zeptools/gw-invoice/invoice"
	"github.com/zeptools/gw-invoice/metrics"
	"github.com/zeptools/gw-invoice/pdfs"
	"github.com/zeptools/gw-invoice/requests"
	"github.com/zeptools/gw-invoice/responses"
)

const DefaultMaxBodyBytes = 1 << 20

// Composer turns one record into a finished document
type Composer interface {
	Compose(rec *invoice.Record) (*pdfs.Document, error)
}

// Generator serves POST /generate-invoice/.
// Order: decode, compose, take the next number, archive, respond.
// A number is consumed only for a document that is already composed.
type Generator struct {
	Composer     Composer
	Counter      counter.Counter
	Archiver     *archive.Archiver // nil = archiving off
	Metrics      *metrics.Metrics
	MaxBodyBytes int64
	stats        Stats
}

func NewGenerator(c Composer, ctr counter.Counter, a *archive.Archiver, m *metrics.Metrics) *Generator {
	g := &Generator{
		Composer:     c,
		Counter:      ctr,
		Archiver:     a,
		Metrics:      m,
		MaxBodyBytes: DefaultMaxBodyBytes,
	}
	g.stats.started = time.Now()
	return g
}

func Filename(seq int64) string {
	return fmt.Sprintf("invoice_%d.pdf", seq)
}

func (g *Generator) Stats() StatsSnapshot {
	return g.stats.Snapshot()
}

func (g *Generator) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := requests.RequestID(ctx)

	doc, seq, err := g.generate(ctx, w, r)
	if err != nil {
		g.stats.failed.Add(1)
		g.Metrics.Invoices.WithLabelValues(resultLabel(err)).Inc()
		log.Printf("[ERROR][%s] generate invoice: %v", reqID, err)
		responses.WriteErrorText(w, http.StatusInternalServerError, err.Error())
		return
	}
	g.stats.succeeded.Add(1)
	g.stats.raiseLastSeq(seq)
	g.Metrics.Invoices.WithLabelValues("ok").Inc()
	g.Metrics.RaiseLastSequence(seq)
	g.Metrics.PDFBytes.Observe(float64(doc.Len()))

	filename := Filename(seq)
	g.archive(ctx, reqID, seq, filename, doc)
	log.Printf("[INFO][%s] issued %s (%d bytes)", reqID, filename, doc.Len())
	responses.WriteAttachment(w, filename, doc)
}

func (g *Generator) generate(ctx context.Context, w http.ResponseWriter, r *http.Request) (*pdfs.Document, int64, error) {
	body := http.MaxBytesReader(w, r.Body, g.MaxBodyBytes)
	defer body.Close()
	rec, err := invoice.Decode(body)
	if err != nil {
		return nil, 0, err
	}

	start := time.Now()
	doc, err := g.Composer.Compose(rec)
	if err != nil {
		return nil, 0, err
	}
	g.Metrics.ComposeTime.Observe(time.Since(start).Seconds())

	seq, err := g.Counter.Next(ctx)
	if err != nil {
		return nil, 0, err
	}
	return doc, seq, nil
}

// archive failures are logged and counted. The caller still gets the document.
func (g *Generator) archive(ctx context.Context, reqID string, seq int64, filename string, doc *pdfs.Document) {
	if g.Archiver == nil {
		return
	}
	// the archive write should finish even if the client hangs up
	ctx = context.WithoutCancel(ctx)
	if err := g.Archiver.Save(ctx, seq, filename, doc.ContentType(), doc.Bytes()); err != nil {
		g.Metrics.ArchiveFails.Inc()
		log.Printf("[WARN][%s] archive %s: %v", reqID, filename, err)
		return
	}
	g.stats.archived.Add(1)
}

func resultLabel(err error) string {
	var ce *invoice.CompositionError
	var se *counter.StorageError
	switch {
	case errors.As(err, &ce):
		return "composition_error"
	case errors.As(err, &se):
		return "storage_error"
	}
	return "bad_request"
}
