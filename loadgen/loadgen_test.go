package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/jung-kurt/gofpdf"
	"github.com/zeptools/gw-invoice/invoice"
)

func TestParseLiteral(t *testing.T) {
	cases := []struct {
		in   string
		want string // JSON of the parsed value
	}{
		{`['HS1', "HS2"]`, `["HS1","HS2"]`},
		{`[1, 2, 3,]`, `[1,2,3]`},
		{`[100.50, .5, -2, 1e3, 310.0]`, `[100.5,0.5,-2,1000.0,310.0]`},
		{`[1e16, 0.00001]`, `[1e+16,1e-05]`},
		{`{'net': 120.5, 'gross': 'N/A'}`, `{"gross":"N/A","net":120.5}`},
		{`('a', 'b')`, `["a","b"]`},
		{`[]`, `[]`},
		{`[True, False, None]`, `[true,false,null]`},
		{`['it\'s', "x\ny"]`, `["it's","x\ny"]`},
		{`  {'nested': [{'a': 1}]}  `, `{"nested":[{"a":1}]}`},
	}
	for _, c := range cases {
		v, err := ParseLiteral(c.in)
		if err != nil {
			t.Errorf("ParseLiteral(%q): %v", c.in, err)
			continue
		}
		got, err := json.Marshal(v)
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != c.want {
			t.Errorf("ParseLiteral(%q) = %s, want %s", c.in, got, c.want)
		}
	}
}

func TestParseLiteralErrors(t *testing.T) {
	for _, in := range []string{``, `[1, 2`, `{'a' 1}`, `{1: 'a'}`, `'open`, `[1] x`, `[--]`, `nope`} {
		if _, err := ParseLiteral(in); err == nil {
			t.Errorf("ParseLiteral(%q) should fail", in)
		}
	}
}

const testCSVHeader = "exporter,invoice_no,exporter_ref,consignee,buyer,place_of_receipt,origin,destination,vessel," +
	"port_loading,port_discharge,final_destination,pre_carriage_by,terms_delivery,payment_terms," +
	"hs_codes,marks_and_nos,packages,descriptions,quantities,rates,weights,total_amount_text,company_name\n"

const testCSVParties = `R-1,Globex,Globex,Bishkek,KG,DE,MV Test,Poti,Hamburg,Berlin,Truck,FOB,30 days,`

const testCSV = testCSVHeader +
	`Acme,A-1,` + testCSVParties + `"['HS1']","['m']","['p']","['d']",[2],[1.5],"{'net': 1, 'gross': 2}",USD 3.00,Acme Ltd` + "\n" +
	`Bad,A-2,` + testCSVParties + `"['HS1'","['m']","['p']","['d']",[2],[1.5],"{'net': 1}",USD 3.00,Acme Ltd` + "\n" +
	`Acme,A-3,` + testCSVParties + `"['HS1', 'HS2']","['m', 'n']","['p', 'q']","['d', 'e']","[1, 1]","[1, 2]","{'net': 1, 'gross': 2}",USD 3.00,Acme Ltd` + "\n"

func TestCSVRows(t *testing.T) {
	rows, err := NewCSVRows(strings.NewReader("\ufeff" + testCSV))
	if err != nil {
		t.Fatal(err)
	}
	n, p, err := rows.Next()
	if err != nil || n != 1 {
		t.Fatalf("row 1: %d %v", n, err)
	}
	if p["exporter"] != "Acme" {
		t.Errorf("BOM not stripped from the first header: %v", p)
	}
	if w, ok := p["weights"].(map[string]any); !ok || w["net"] != json.Number("1") {
		t.Errorf("weights = %#v", p["weights"])
	}
	n, _, err = rows.Next()
	var rowErr *RowError
	if !errors.As(err, &rowErr) || n != 2 || !strings.Contains(err.Error(), "hs_codes") {
		t.Fatalf("row 2: expected a hs_codes RowError, got %d %v", n, err)
	}
	n, _, err = rows.Next()
	if err != nil || n != 3 {
		t.Fatalf("row 3 should still be read after a bad row: %d %v", n, err)
	}
	if _, _, err = rows.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}

	// the payload decodes as an invoice
	rows, _ = NewCSVRows(strings.NewReader(testCSV))
	_, p, _ = rows.Next()
	b, _ := json.Marshal(p)
	rec, err := invoice.Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if _, err = rec.LineItems(); err != nil {
		t.Fatal(err)
	}
}

func TestFakeRecord(t *testing.T) {
	f := gofakeit.New(42)
	for i := 0; i < 50; i++ {
		rec := FakeRecord(f)
		items, err := rec.LineItems()
		if err != nil {
			t.Fatalf("LineItems: %v", err)
		}
		if len(items) < 1 || len(items) > 5 {
			t.Fatalf("%d items", len(items))
		}
		total := 0.0
		for _, it := range items {
			if !strings.HasPrefix(it.HSCode, "HS") || len(it.HSCode) != 5 {
				t.Errorf("hs code %q", it.HSCode)
			}
			if it.Quantity < 1 || it.Quantity > 20 {
				t.Errorf("quantity %d", it.Quantity)
			}
			if it.Rate < 100 || it.Rate > 1000 || round2(it.Rate) != it.Rate {
				t.Errorf("rate %v", it.Rate)
			}
			total += it.Amount()
		}
		net, gross := rec.Weights["net"].(float64), rec.Weights["gross"].(float64)
		if net < 100 || net > 500 || gross-net < 49.99 || gross-net > 200.01 {
			t.Errorf("weights net=%v gross=%v", net, gross)
		}
		if want := "USD " + invoice.FormatMoney(round2(total)); rec.TotalAmountText != want {
			t.Errorf("total %q, want %q", rec.TotalAmountText, want)
		}
	}
}

func onePagePDF(t *testing.T) []byte {
	t.Helper()
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.AddPage()
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// fakeEndpoint answers like the invoice service: PDF or "Error: ..." with 500
func fakeEndpoint(t *testing.T, doc []byte, auth string) (*httptest.Server, *atomic.Int32) {
	var seq atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth != "" && r.Header.Get("Authorization") != "Bearer "+auth {
			http.Error(w, "Error: unauthorized", http.StatusUnauthorized)
			return
		}
		rec, err := invoice.Decode(r.Body)
		if err != nil {
			http.Error(w, "Error: "+err.Error(), http.StatusInternalServerError)
			return
		}
		if rec.Exporter == "Fail" {
			http.Error(w, "Error: composition failed", http.StatusInternalServerError)
			return
		}
		n := seq.Add(1)
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=invoice_%d.pdf", n))
		_, _ = w.Write(doc)
	}))
	t.Cleanup(srv.Close)
	return srv, &seq
}

func TestRunCSV(t *testing.T) {
	srv, seq := fakeEndpoint(t, onePagePDF(t), "")
	out := t.TempDir()
	r := &Runner{Client: srv.Client(), URL: srv.URL, OutDir: out, Verify: true, CPUSample: 10 * time.Millisecond}
	csvData := testCSV + strings.Replace(strings.SplitN(testCSV, "\n", 3)[1], "Acme,A-1", "Fail,A-4", 1) + "\n"
	rep, err := r.RunCSV(context.Background(), strings.NewReader(csvData))
	if err != nil {
		t.Fatal(err)
	}
	if rep.Success != 2 || rep.Failed != 2 || rep.Total() != 4 {
		t.Errorf("report = %+v", rep)
	}
	if seq.Load() != 2 {
		t.Errorf("server saw %d good requests", seq.Load())
	}
	for _, name := range []string{"invoice_1.pdf", "invoice_3.pdf"} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("%s not saved: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(out, "invoice_2.pdf")); err == nil {
		t.Error("unparsable row must not produce a file")
	}
	if rep.RSSMB <= 0 {
		t.Error("rss not measured")
	}
	var buf bytes.Buffer
	rep.Print(&buf)
	if !strings.Contains(buf.String(), "success:    2") {
		t.Errorf("report text:\n%s", buf.String())
	}
}

func TestVerifyRejectsNonPDF(t *testing.T) {
	srv, _ := fakeEndpoint(t, []byte("not a pdf"), "")
	r := &Runner{Client: srv.Client(), URL: srv.URL, Verify: true}
	if _, err := r.Post(context.Background(), FakeRecord(gofakeit.New(1))); err == nil {
		t.Fatal("expected verification failure")
	}
}

func TestRunFakeWithToken(t *testing.T) {
	srv, seq := fakeEndpoint(t, onePagePDF(t), "tok")
	r := &Runner{Client: srv.Client(), URL: srv.URL, Token: "tok", Delay: time.Millisecond, CPUSample: 10 * time.Millisecond}
	rep, err := r.RunFake(context.Background(), 5, gofakeit.New(7))
	if err != nil {
		t.Fatal(err)
	}
	if rep.Success != 5 || rep.Failed != 0 || seq.Load() != 5 {
		t.Errorf("report = %+v, server count %d", rep, seq.Load())
	}

	r.Token = "wrong"
	_, err = r.Post(context.Background(), FakeRecord(gofakeit.New(7)))
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusUnauthorized || se.Body != "Error: unauthorized" {
		t.Fatalf("expected 401 StatusError, got %v", err)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	srv, _ := fakeEndpoint(t, onePagePDF(t), "")
	r := &Runner{Client: srv.Client(), URL: srv.URL, Delay: time.Hour, CPUSample: 10 * time.Millisecond}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	rep, err := r.RunFake(ctx, 10, gofakeit.New(1))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got %v", err)
	}
	if rep.Success != 1 {
		t.Errorf("only the first request should go out, got %+v", rep)
	}
}

func TestRunCSVSkipsDelayAfterParseFailure(t *testing.T) {
	srv, seq := fakeEndpoint(t, onePagePDF(t), "")
	r := &Runner{Client: srv.Client(), URL: srv.URL, Delay: time.Hour, CPUSample: 10 * time.Millisecond}
	lines := strings.Split(testCSV, "\n") // header, good, bad, good, ""
	csvData := lines[0] + "\n" + lines[2] + "\n" + lines[1] + "\n" + lines[2] + "\n"

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	rep, err := r.RunCSV(ctx, strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("a single request must not wait: %v", err)
	}
	if rep.Success != 1 || rep.Failed != 2 || seq.Load() != 1 {
		t.Errorf("report = %+v, server saw %d", rep, seq.Load())
	}
}
