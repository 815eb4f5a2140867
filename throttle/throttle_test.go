package throttle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestBucketRefill(t *testing.T) {
	conf := &BucketConf{Burst: 2, Increment: 1, Period: time.Second}
	s := NewBucketStore(context.Background(), conf, time.Minute, time.Hour)
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	if !s.Allow("a", t0) || !s.Allow("a", t0) {
		t.Fatal("burst of 2 should pass")
	}
	if s.Allow("a", t0) {
		t.Fatal("third call within the period should be throttled")
	}
	if !s.Allow("b", t0) {
		t.Fatal("other keys have their own bucket")
	}
	if !s.Allow("a", t0.Add(time.Second)) {
		t.Fatal("one token should be back after a period")
	}
	if s.Allow("a", t0.Add(time.Second)) {
		t.Fatal("only one token refilled")
	}
}

func TestCleanup(t *testing.T) {
	conf := &BucketConf{Burst: 1, Increment: 1, Period: time.Second}
	s := NewBucketStore(context.Background(), conf, time.Minute, time.Minute)
	t0 := time.Now()
	s.Allow("a", t0)
	s.Allow("b", t0.Add(2*time.Minute))
	if n := s.Cleanup(t0.Add(2 * time.Minute)); n != 1 {
		t.Errorf("removed %d, want 1", n)
	}
}

func TestServiceLifecycle(t *testing.T) {
	conf := &BucketConf{Burst: 1, Increment: 1, Period: time.Second}
	s := NewBucketStore(context.Background(), conf, 10*time.Millisecond, time.Minute)
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(); err == nil {
		t.Error("second Start should fail")
	}
	s.Stop()
	select {
	case err := <-s.Done():
		if err != nil {
			t.Errorf("Done: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("service did not stop")
	}
}

func TestWrap(t *testing.T) {
	conf := &BucketConf{Burst: 1, Increment: 1, Period: time.Hour}
	s := NewBucketStore(context.Background(), conf, time.Minute, time.Hour)
	h := s.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request: %d", rec.Code)
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "3600" {
		t.Errorf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}
}

func TestWrapIgnoresForwardedUnlessTrusted(t *testing.T) {
	for _, trust := range []bool{false, true} {
		conf := &BucketConf{Burst: 1, Increment: 1, Period: time.Hour, TrustProxy: trust}
		s := NewBucketStore(context.Background(), conf, time.Minute, time.Hour)
		h := s.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		codes := make([]int, 0, 2)
		for _, xff := range []string{"203.0.113.1", "203.0.113.2"} {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			req.RemoteAddr = "10.0.0.1:1234"
			req.Header.Set("X-Forwarded-For", xff)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			codes = append(codes, rec.Code)
		}
		want := http.StatusTooManyRequests
		if trust {
			want = http.StatusOK
		}
		if codes[1] != want {
			t.Errorf("trust=%v: second client got %d, want %d", trust, codes[1], want)
		}
	}
}
