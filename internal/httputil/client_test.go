package httputil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewClientDefaults(t *testing.T) {
	client := NewClient(ClientConfig{BaseURL: "http://localhost:3100/"})

	if client.baseURL != "http://localhost:3100" {
		t.Errorf("baseURL = %s, want http://localhost:3100", client.baseURL)
	}
	if client.maxRetries != 2 {
		t.Errorf("default maxRetries = %d, want 2", client.maxRetries)
	}
}

func TestGetDecodesJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/packages/get" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"alice/led-matrix"}`))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL, Timeout: time.Second})
	resp, err := client.Get(context.Background(), "/api/packages/get")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var body struct {
		Name string `json:"name"`
	}
	if err := DecodeResponse(resp, &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Name != "alice/led-matrix" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL, Timeout: time.Second, MaxRetries: 3})
	resp, err := client.Get(context.Background(), "/")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected eventual success, got %d", resp.StatusCode)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Fatalf("expected 3 calls, got %d", n)
	}
}

func TestDecodeResponseRejectsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL, Timeout: time.Second})
	resp, err := client.Get(context.Background(), "/missing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if err := DecodeResponse(resp, nil); err == nil {
		t.Fatalf("expected error for 404 response")
	}
}
