package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetchReturnsWholeBody(t *testing.T) {
	body := "|KQED|88.5  MHz|FM|\n|KALW|91.7  MHz|FM|\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	c := NewClient(time.Second)
	c.FMURL = srv.URL

	got, err := c.FetchFM(context.Background())
	if err != nil {
		t.Fatalf("FetchFM() error: %v", err)
	}
	if got != body {
		t.Errorf("FetchFM() = %q, want %q", got, body)
	}
}

func TestFetchFailsOnBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "server busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(time.Second)
	c.AMURL = srv.URL

	if _, err := c.FetchAM(context.Background()); err == nil {
		t.Fatal("FetchAM() = nil error, want failure on 503")
	}
}

func TestFetchHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := NewClient(time.Minute)
	c.FMURL = srv.URL

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := c.FetchFM(ctx); err == nil {
		t.Fatal("FetchFM() = nil error, want context deadline failure")
	}
}
