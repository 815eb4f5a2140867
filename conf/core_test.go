package conf

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/zeptools/gw-invoice/archive"
	"github.com/zeptools/gw-invoice/invoice"
	"github.com/zeptools/gw-invoice/metrics"
)

const testCoreJSON = `{
	"app_name": "invoice-test",
	"listen": "127.0.0.1:0",
	"shutdown_timeout": 5,
	"template": {"dir": "templates", "name": "tpl.png", "preload": true},
	"font": {"path": "fonts/missing.ttf", "size": 18},
	"counter": {"type": "file", "path": "data/counter.txt"},
	"archive": {"driver": "memory"},
	"throttle": {"burst": 100, "increment": 100, "period": 1000000000}
}`

const testRecordJSON = `{
	"exporter": "Acme", "invoice_no": "A-1", "exporter_ref": "R-1",
	"consignee": "Globex", "buyer": "Globex", "place_of_receipt": "Bishkek",
	"origin": "KG", "destination": "DE", "vessel": "MV Test",
	"port_loading": "Poti", "port_discharge": "Hamburg", "final_destination": "Berlin",
	"pre_carriage_by": "Truck", "terms_delivery": "FOB", "payment_terms": "30 days",
	"hs_codes": ["HS1"], "marks_and_nos": ["m"], "packages": ["p"], "descriptions": ["d"],
	"quantities": [2], "rates": [1.5],
	"weights": {"net": 1, "gross": 2},
	"total_amount_text": "USD 3.00", "company_name": "Acme Ltd"
}`

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func newAppRoot(t *testing.T, coreJSON string) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "config", ".core.json"), []byte(coreJSON))
	img := image.NewRGBA(image.Rect(0, 0, 800, 1000))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	img.Set(1, 1, color.Black)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(root, "templates", "tpl.png"), buf.Bytes())
	return root
}

func newCore(t *testing.T, root string) *Core {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	c := &Core{}
	if err := c.BaseInit(root, ctx, cancel); err != nil {
		t.Fatalf("BaseInit: %v", err)
	}
	return c
}

func TestBaseInitDefaults(t *testing.T) {
	c := newCore(t, newAppRoot(t, `{}`))
	if c.AppName != "gw-invoice" || c.Listen != ":8000" {
		t.Errorf("defaults not applied: %q %q", c.AppName, c.Listen)
	}
	if c.BackendHttpClient == nil {
		t.Error("backend http client not prepared")
	}
}

func TestBaseInitBadJSON(t *testing.T) {
	root := newAppRoot(t, `{"listen": 8000}`)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	err := (&Core{}).BaseInit(root, ctx, cancel)
	if err == nil || !strings.Contains(err.Error(), ".core.json") {
		t.Fatalf("expected a .core.json decode error, got %v", err)
	}
}

func TestOptionalDatabaseFiles(t *testing.T) {
	c := newCore(t, newAppRoot(t, `{}`))
	if err := c.PrepareKVDatabases(); err != nil {
		t.Fatalf("PrepareKVDatabases without file: %v", err)
	}
	if err := c.PrepareSQLDatabases(); err != nil {
		t.Fatalf("PrepareSQLDatabases without file: %v", err)
	}
	if len(c.BackendKVDBClients) != 0 || len(c.BackendSQLDBClients) != 0 {
		t.Error("no clients expected")
	}
}

func TestSQLiteCounterFromConfig(t *testing.T) {
	root := newAppRoot(t, `{"counter": {"type": "sql", "sql_db": "main", "key": "inv"}}`)
	writeFile(t, filepath.Join(root, "config", ".sql-databases.json"),
		[]byte(`{"main": {"type": "sqlite", "db": "data/invoice.db"}}`))
	c := newCore(t, root)
	defer c.ResourceCleanUp()
	if err := c.PrepareSQLDatabases(); err != nil {
		t.Fatal(err)
	}
	if err := c.PrepareCounter(); err != nil {
		t.Fatal(err)
	}
	for want := int64(1); want <= 2; want++ {
		got, err := c.InvoiceCounter.Next(context.Background())
		if err != nil || got != want {
			t.Fatalf("Next = %d, %v; want %d", got, err, want)
		}
	}
	if _, err := os.Stat(filepath.Join(root, "data", "invoice.db")); err != nil {
		t.Errorf("sqlite file not under app root: %v", err)
	}
}

func TestUnknownCounterDatabase(t *testing.T) {
	c := newCore(t, newAppRoot(t, `{"counter": {"type": "kv", "kv_db": "nope"}}`))
	if err := c.PrepareKVDatabases(); err != nil {
		t.Fatal(err)
	}
	if err := c.PrepareCounter(); err == nil {
		t.Fatal("expected error for an unconfigured kv database")
	}
}

func TestAuthMissingKeys(t *testing.T) {
	root := newAppRoot(t, `{"auth": {"public_key_dir": "keys"}}`)
	if err := os.MkdirAll(filepath.Join(root, "keys"), 0o755); err != nil {
		t.Fatal(err)
	}
	c := newCore(t, root)
	if err := c.PrepareAuth(); err == nil {
		t.Fatal("expected error when no public keys are found")
	}
}

func TestServeAndShutdown(t *testing.T) {
	root := newAppRoot(t, testCoreJSON)
	c := newCore(t, root)
	for _, prep := range []func() error{c.PrepareCompositor, c.PrepareCounter, c.PrepareArchiver, c.PrepareAuth} {
		if err := prep(); err != nil {
			t.Fatal(err)
		}
	}
	if c.BearerAuth != nil {
		t.Fatal("auth should be off")
	}
	c.PrepareThrottleBucketStore(time.Minute, time.Minute)
	m := metrics.New("invoice_test")
	router := c.PrepareInvoiceRouter(m)
	c.PrepareScheduler(m)
	c.PrepareWebService(router)
	if err := c.StartServices(); err != nil {
		t.Fatal(err)
	}

	url := "http://" + c.WebService.Addr() + "/generate-invoice/"
	for want := 1; want <= 2; want++ {
		res, err := http.Post(url, "application/json", strings.NewReader(testRecordJSON))
		if err != nil {
			t.Fatal(err)
		}
		body, _ := io.ReadAll(res.Body)
		_ = res.Body.Close()
		if res.StatusCode != http.StatusOK {
			t.Fatalf("status %d: %s", res.StatusCode, body)
		}
		wantCD := fmt.Sprintf("attachment; filename=invoice_%d.pdf", want)
		if cd := res.Header.Get("Content-Disposition"); cd != wantCD {
			t.Errorf("Content-Disposition = %q, want %q", cd, wantCD)
		}
		if !bytes.HasPrefix(body, []byte("%PDF-")) {
			t.Error("body is not a PDF")
		}
	}

	stored, err := os.ReadFile(filepath.Join(root, "data", "counter.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(stored)) != "2" {
		t.Errorf("counter file = %q, want 2", stored)
	}
	mem, ok := c.Archiver.Store.(*archive.MemoryStore)
	if !ok || len(mem.Keys()) != 2 {
		t.Errorf("expected 2 archived documents")
	}

	res, err := http.Get("http://" + c.WebService.Addr() + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	var health map[string]any
	_ = json.NewDecoder(res.Body).Decode(&health)
	_ = res.Body.Close()
	if health["status"] != "ok" || health["font"] != "gobold" {
		t.Errorf("healthz = %v", health)
	}

	c.RootCancel()
	done := make(chan error, 1)
	go func() { done <- c.WaitServicesDone() }()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("WaitServicesDone: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("services did not stop")
	}
	c.ResourceCleanUp()
}

func TestCounterGaugeJob(t *testing.T) {
	c := newCore(t, newAppRoot(t, `{"counter": {"type": "memory"}}`))
	if err := c.PrepareCounter(); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if _, err := c.InvoiceCounter.Next(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	m := metrics.New("invoice_test")
	c.PrepareScheduler(m)
	if c.Scheduler.RunDue(time.Now()) != 1 {
		t.Fatal("counter gauge job should be due every minute")
	}
	c.Scheduler.Wait()
	if got := testutil.ToFloat64(m.LastSequence); got != 3 {
		t.Errorf("last sequence gauge = %v, want 3", got)
	}
}

func shippedAppRoot(t *testing.T) string {
	t.Helper()
	coreJSON, err := os.ReadFile(filepath.Join("..", "config", ".core.json"))
	if err != nil {
		t.Fatal(err)
	}
	layoutYAML, err := os.ReadFile(filepath.Join("..", "config", "layout.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	root := newAppRoot(t, string(coreJSON))
	writeFile(t, filepath.Join(root, "config", "layout.yaml"), layoutYAML)
	return root
}

func TestShippedConfigStartsWithoutTemplate(t *testing.T) {
	c := newCore(t, shippedAppRoot(t))
	if c.Template.Preload {
		t.Fatal("shipped config preloads the template")
	}
	if err := c.PrepareCompositor(); err != nil {
		t.Fatalf("PrepareCompositor: %v", err)
	}
	rec, err := invoice.Decode(strings.NewReader(testRecordJSON))
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.Compositor.Compose(rec)
	var ce *invoice.CompositionError
	if !errors.As(err, &ce) || ce.Op != "template" {
		t.Fatalf("expected template CompositionError, got %v", err)
	}
}

func TestPreloadMissingTemplateFailsStartup(t *testing.T) {
	c := newCore(t, shippedAppRoot(t))
	c.Template.Preload = true
	if err := c.PrepareCompositor(); err == nil {
		t.Fatal("expected PrepareCompositor to fail on a missing template")
	}
}
