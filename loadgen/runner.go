// Package loadgen drives the invoice endpoint one request at a time, from a CSV
// export or from synthetic records, and reports how the run went.
package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

const DefaultURL = "http://127.0.0.1:8000/generate-invoice/"

// StatusError is a non-200 answer. Body holds the server's plain-text message.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Body)
}

// Runner sends requests sequentially with a fixed Delay between attempts.
// Failed attempts are counted and skipped, never retried.
type Runner struct {
	Client    *http.Client
	URL       string
	Token     string        // bearer token. empty = none
	Delay     time.Duration // pause between attempts
	OutDir    string        // save returned documents here. empty = discard
	Verify    bool          // check every returned document with pdfcpu
	CPUSample time.Duration // CPU sampling window for the report. default 1s
}

func (r *Runner) client() *http.Client {
	if r.Client == nil {
		return http.DefaultClient
	}
	return r.Client
}

// Post sends one payload and returns the document bytes on 200
func (r *Runner) Post(ctx context.Context, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/pdf")
	if r.Token != "" {
		req.Header.Set("Authorization", "Bearer "+r.Token)
	}
	res, err := r.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			log.Printf("[WARN] %v", err)
		}
	}()
	if res.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return nil, &StatusError{Code: res.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	doc, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if r.Verify {
		if err = verifyPDF(doc); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

func verifyPDF(doc []byte) error {
	pages, err := api.PageCount(bytes.NewReader(doc), nil)
	if err != nil {
		return fmt.Errorf("invalid pdf: %w", err)
	}
	if pages != 1 {
		return fmt.Errorf("invalid pdf: %d pages, want 1", pages)
	}
	return nil
}

// pause waits Delay unless ctx ends first
func (r *Runner) pause(ctx context.Context) error {
	if r.Delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(r.Delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunCSV posts every row of src, waiting Delay between requests.
// Rows that fail to parse are counted as failures without a request or a wait.
// A 200 body is saved as <OutDir>/invoice_<row>.pdf.
func (r *Runner) RunCSV(ctx context.Context, src io.Reader) (*Report, error) {
	rows, err := NewCSVRows(src)
	if err != nil {
		return nil, err
	}
	if r.OutDir != "" {
		if err = os.MkdirAll(r.OutDir, 0o755); err != nil {
			return nil, err
		}
	}
	rep := newReport()
	sent := false
	for {
		row, payload, err := rows.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		var rowErr *RowError
		if errors.As(err, &rowErr) {
			// no request went out, so no delay either
			log.Printf("[WARN] parse %v", rowErr)
			rep.Failed++
			continue
		}
		if err != nil {
			return nil, err
		}
		if sent {
			if err = r.pause(ctx); err != nil {
				break
			}
		}
		sent = true

		log.Printf("[INFO] sending invoice #%d", row)
		doc, err := r.Post(ctx, payload)
		if err != nil {
			log.Printf("[ERROR] invoice #%d: %v", row, err)
			rep.Failed++
			continue
		}
		if r.OutDir != "" {
			path := filepath.Join(r.OutDir, fmt.Sprintf("invoice_%d.pdf", row))
			if err = os.WriteFile(path, doc, 0o644); err != nil {
				log.Printf("[ERROR] invoice #%d: %v", row, err)
				rep.Failed++
				continue
			}
			log.Printf("[INFO] saved %s", path)
		}
		rep.Success++
	}
	rep.finish(r.CPUSample)
	return rep, ctx.Err()
}

// RunFake posts n synthetic records
func (r *Runner) RunFake(ctx context.Context, n int, f *gofakeit.Faker) (*Report, error) {
	rep := newReport()
	for i := 1; i <= n; i++ {
		if i > 1 {
			if err := r.pause(ctx); err != nil {
				break
			}
		}
		log.Printf("[INFO] sending invoice #%d", i)
		if _, err := r.Post(ctx, FakeRecord(f)); err != nil {
			log.Printf("[ERROR] invoice #%d: %v", i, err)
			rep.Failed++
			continue
		}
		log.Printf("[INFO] invoice #%d ok", i)
		rep.Success++
	}
	rep.finish(r.CPUSample)
	return rep, ctx.Err()
}
