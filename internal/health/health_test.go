package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLiveness(t *testing.T) {
	c := NewChecker(nil, "1.0.0", nil)

	rec := httptest.NewRecorder()
	c.Liveness(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" || body["version"] != "1.0.0" {
		t.Fatalf("body %+v", body)
	}
}

func TestReadiness(t *testing.T) {
	ok := PingerFunc(func(context.Context) error { return nil })
	bad := PingerFunc(func(context.Context) error { return errors.New("connection refused") })

	c := NewChecker(map[string]Pinger{"database": ok, "cache": ok}, "", nil)
	rec := httptest.NewRecorder()
	c.Readiness(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("all healthy: %d", rec.Code)
	}

	c = NewChecker(map[string]Pinger{"database": ok, "cache": bad}, "", nil)
	rec = httptest.NewRecorder()
	c.Readiness(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("unhealthy dependency: %d", rec.Code)
	}

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "unavailable" || body.Checks["database"] != "ok" || body.Checks["cache"] == "ok" {
		t.Fatalf("body %+v", body)
	}
}

func TestSystem(t *testing.T) {
	c := NewChecker(nil, "", nil)
	rec := httptest.NewRecorder()
	c.System(rec, httptest.NewRequest(http.MethodGet, "/health/system", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := body["goroutines"]; !ok {
		t.Fatalf("missing goroutines: %+v", body)
	}
}
