package ipfs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestPrime(t *testing.T) {
	id := mustCID(t, rootCIDStr)

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/ipfs/") {
			t.Errorf("unexpected request path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer good.Close()

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer bad.Close()

	primer := NewPrimer([]string{good.URL, bad.URL, "http://127.0.0.1:0"}, 2*time.Second)
	results := primer.Prime(context.Background(), id)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Err != nil || results[0].Status != http.StatusOK {
		t.Errorf("good gateway should succeed: %+v", results[0])
	}
	if results[1].Err == nil || results[1].Status != http.StatusBadGateway {
		t.Errorf("bad gateway should record its status: %+v", results[1])
	}
	if results[2].Err == nil {
		t.Errorf("unreachable gateway should record an error: %+v", results[2])
	}
}

func TestPrimeCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	primer := NewPrimer([]string{"http://127.0.0.1:0", "http://127.0.0.1:0"}, time.Second)
	results := primer.Prime(ctx, mustCID(t, rootCIDStr))

	// The loop stops after the first request once the context is gone.
	if len(results) != 1 {
		t.Errorf("expected 1 result with cancelled context, got %d", len(results))
	}
}
