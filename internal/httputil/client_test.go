package httputil

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewClient(t *testing.T) {
	client := NewClient(Config{
		Timeout:    10 * time.Second,
		MaxRetries: 3,
	})

	if client == nil {
		t.Fatal("NewClient() returned nil")
	}
	if client.maxRetries != 3 {
		t.Errorf("maxRetries = %d, want 3", client.maxRetries)
	}
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient(Config{})

	if client.maxRetries != 2 {
		t.Errorf("default maxRetries = %d, want 2", client.maxRetries)
	}
	if client.httpClient.Timeout != 30*time.Second {
		t.Errorf("default timeout = %v, want 30s", client.httpClient.Timeout)
	}
}

func TestClient_GetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("Method = %s, want GET", r.Method)
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer server.Close()

	client := NewClient(Config{})

	var result map[string]string
	if err := client.GetJSON(context.Background(), server.URL, &result); err != nil {
		t.Fatalf("GetJSON() error = %v", err)
	}
	if result["status"] != "ok" {
		t.Errorf("status = %s, want ok", result["status"])
	}
}

func TestClient_PostJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Method = %s, want POST", r.Method)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Content-Type = %s, want application/json", r.Header.Get("Content-Type"))
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Authorization = %s, want Bearer test-key", r.Header.Get("Authorization"))
		}

		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["key"] != "value" {
			t.Errorf("body[key] = %s, want value", body["key"])
		}

		json.NewEncoder(w).Encode(map[string]string{"echo": body["key"]})
	}))
	defer server.Close()

	client := NewClient(Config{})

	var result map[string]string
	err := client.PostJSON(context.Background(), server.URL,
		map[string]string{"Authorization": "Bearer test-key"},
		map[string]string{"key": "value"}, &result)
	if err != nil {
		t.Fatalf("PostJSON() error = %v", err)
	}
	if result["echo"] != "value" {
		t.Errorf("echo = %s, want value", result["echo"])
	}
}

func TestClient_PostJSONRaw(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"hi"}}]}`))
	}))
	defer server.Close()

	client := NewClient(Config{})

	raw, err := client.PostJSONRaw(context.Background(), server.URL, nil, map[string]string{})
	if err != nil {
		t.Fatalf("PostJSONRaw() error = %v", err)
	}
	if !strings.Contains(string(raw), "choices") {
		t.Errorf("unexpected raw body %s", raw)
	}
}

func TestClient_RetryOnServerError(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(Config{MaxRetries: 3})

	var result map[string]string
	if err := client.GetJSON(context.Background(), server.URL, &result); err != nil {
		t.Fatalf("GetJSON() error = %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestDecodeResponse_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("bad request"))
	}))
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("http.Get() error = %v", err)
	}

	err = DecodeResponse(resp, nil)
	if err == nil {
		t.Error("DecodeResponse() should return error for 4xx status")
	}
	if !strings.Contains(err.Error(), "bad request") {
		t.Errorf("error should carry the response body, got %v", err)
	}
}

func TestReadAllWithLimit(t *testing.T) {
	body, truncated, err := ReadAllWithLimit(strings.NewReader("hello world"), 5)
	if err != nil {
		t.Fatalf("ReadAllWithLimit() error = %v", err)
	}
	if !truncated {
		t.Error("expected truncation")
	}
	if string(body) != "hello" {
		t.Errorf("body = %q, want hello", body)
	}

	if _, err := ReadAllStrict(strings.NewReader("hello world"), 5); err == nil {
		t.Error("ReadAllStrict should fail when body exceeds limit")
	}
}
