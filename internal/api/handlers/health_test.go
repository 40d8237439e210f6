package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func okPing(context.Context) error   { return nil }
func failPing(context.Context) error { return errors.New("connection refused") }

func TestHealthLive(t *testing.T) {
	h := NewHealthHandler()
	rec := httptest.NewRecorder()
	h.HealthLive(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d, ожидается 200", rec.Code)
	}
	var resp healthLiveResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != StatusOK || resp.Service != serviceName {
		t.Errorf("ответ = %+v", resp)
	}
}

func TestHealthReady(t *testing.T) {
	tests := []struct {
		name       string
		checks     []Check
		wantStatus string
		wantCode   int
	}{
		{
			name:       "все доступны",
			checks:     []Check{{NewPingChecker("agro-api", time.Second, okPing), true}, {NewPingChecker("postgresql", time.Second, okPing), false}},
			wantStatus: StatusOK,
			wantCode:   http.StatusOK,
		},
		{
			name:       "некритичная недоступна",
			checks:     []Check{{NewPingChecker("agro-api", time.Second, okPing), true}, {NewPingChecker("postgresql", time.Second, failPing), false}},
			wantStatus: StatusDegraded,
			wantCode:   http.StatusOK,
		},
		{
			name:       "критичная недоступна",
			checks:     []Check{{NewPingChecker("agro-api", time.Second, failPing), true}},
			wantStatus: StatusFail,
			wantCode:   http.StatusServiceUnavailable,
		},
		{
			name:       "без проверок",
			wantStatus: StatusOK,
			wantCode:   http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.checks...)
			rec := httptest.NewRecorder()
			h.HealthReady(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("статус = %d, ожидается %d", rec.Code, tt.wantCode)
			}
			var resp healthReadyResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatal(err)
			}
			if resp.Status != tt.wantStatus {
				t.Errorf("status = %q, ожидается %q", resp.Status, tt.wantStatus)
			}
			if len(resp.Checks) != len(tt.checks) {
				t.Errorf("checks = %v", resp.Checks)
			}
		})
	}
}

func TestPingChecker_Timeout(t *testing.T) {
	c := NewPingChecker("agro-api", 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	status, msg := c.CheckReady(context.Background())
	if status != StatusFail || msg == "" {
		t.Errorf("CheckReady = (%q, %q), ожидается fail", status, msg)
	}
}
