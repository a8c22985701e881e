package web

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"e2gc/internal/config"
	"e2gc/internal/model"
)

func testBatch() model.Batch {
	return model.Batch{
		Events: []model.Event{{
			Row:     1,
			Subject: "Mathe - Prof. Meier",
			Start:   time.Date(2025, 9, 3, 8, 0, 0, 0, time.UTC),
			End:     time.Date(2025, 9, 3, 9, 30, 0, 0, time.UTC),
		}},
		Skipped: 1,
		Skips:   []model.Skip{{Row: 2, Reason: "date unparseable", Column: "Datum", Value: "morgen"}},
	}
}

func newTestServer(cfg *config.Config, batch model.Batch, err error) (*Server, *int) {
	calls := 0
	s := NewServerWith(cfg, func() (model.Batch, error) {
		calls++
		return batch, err
	})
	return s, &calls
}

func TestHandleEvents(t *testing.T) {
	s, calls := newTestServer(config.DefaultConfig(), testBatch(), nil)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}

		var resp eventsResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatal(err)
		}
		if len(resp.Events) != 1 || resp.Skipped != 1 {
			t.Fatalf("resp = %+v", resp)
		}
		if ev := resp.Events[0]; ev.Start != "2025-09-03T08:00" || ev.End != "2025-09-03T09:30" {
			t.Errorf("times = %q - %q", ev.Start, ev.End)
		}
	}
	if *calls != 1 {
		t.Errorf("converter called %d times, want 1 (cached)", *calls)
	}

	s.Refresh()
	if *calls != 2 {
		t.Errorf("Refresh did not reconvert: %d calls", *calls)
	}
}

func TestHandleExport(t *testing.T) {
	s, _ := newTestServer(config.DefaultConfig(), testBatch(), nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/calendar.csv", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("csv status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Mathe - Prof. Meier,09/03/2025,08:00 AM,09/03/2025,09:30 AM,False,,,False") {
		t.Errorf("csv body = %q", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/calendar.ics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("ics status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "X-WR-CALNAME:Stundenplan") {
		t.Errorf("ics body lacks calendar name: %q", rec.Body.String())
	}
}

func TestHandleExportEmpty(t *testing.T) {
	s, _ := newTestServer(config.DefaultConfig(), model.Batch{Skipped: 4}, nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/calendar.ics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestConvertFailure(t *testing.T) {
	s, _ := newTestServer(config.DefaultConfig(), model.Batch{}, errors.New("no such file"))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestBasicAuth(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "geheim"}
	s, _ := newTestServer(cfg, testBatch(), nil)
	h := s.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("/health status = %d, want 200 without auth", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.SetBasicAuth("admin", "geheim")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("authenticated status = %d, want 200", rec.Code)
	}
}

func TestRunInvalidRefreshCron(t *testing.T) {
	// Occupy the listen address: a bind error here would mean Run started
	// serving before validating the schedule.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	cfg := config.DefaultConfig()
	cfg.Listen = ln.Addr().String()
	cfg.RefreshCron = "bogus"
	s, calls := newTestServer(cfg, testBatch(), nil)

	err = s.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "refresh schedule") {
		t.Fatalf("Run error = %v, want refresh schedule error", err)
	}
	if *calls != 0 {
		t.Errorf("converter called %d times before schedule was validated", *calls)
	}
}

func TestRunShutdown(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Listen = "127.0.0.1:0"

	refreshed := make(chan struct{}, 1)
	s := NewServerWith(cfg, func() (model.Batch, error) {
		select {
		case refreshed <- struct{}{}:
		default:
		}
		return testBatch(), nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case <-refreshed:
	case err := <-done:
		t.Fatalf("Run returned early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("initial refresh did not happen")
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run = %v, want nil after cancel", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if bc := s.current(); bc.batch.Len() != 1 {
		t.Errorf("cached batch = %+v", bc.batch)
	}
}
