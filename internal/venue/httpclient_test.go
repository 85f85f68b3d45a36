package venue

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRESTClientDoIssuesRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	client := NewRESTClient(DefaultHTTPClientConfig(), 100, 100)
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do() returned error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
	}
}

func TestRESTClientDoRespectsContextCancellation(t *testing.T) {
	client := NewRESTClient(DefaultHTTPClientConfig(), 0.001, 1)
	// Drain the single burst token so the next Wait call blocks on refill.
	client.limiter.Wait(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://127.0.0.1:0", nil)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}

	_, err = client.Do(req)
	if err == nil {
		t.Fatal("expected an error once the context deadline is exceeded while waiting on the limiter")
	}
}

func TestDefaultHTTPClientConfigIsPositive(t *testing.T) {
	cfg := DefaultHTTPClientConfig()
	if cfg.ConnectTimeout <= 0 || cfg.ReadTimeout <= 0 || cfg.TotalTimeout <= 0 {
		t.Errorf("expected positive timeouts, got %+v", cfg)
	}
}

func TestRESTClientClose(t *testing.T) {
	client := NewRESTClient(DefaultHTTPClientConfig(), 10, 20)
	client.Close() // must not panic with no outstanding connections
}
