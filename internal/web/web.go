package web

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"e2gc/internal/config"
	"e2gc/internal/export"
	appLog "e2gc/internal/log"
	"e2gc/internal/model"
	"e2gc/internal/pipeline"
)

// ConvertFunc produces the batch served by the HTTP endpoints.
type ConvertFunc func() (model.Batch, error)

// Server exposes the converted schedule over HTTP.
// 변환 결과는 메모리에 캐시되고 cron 스케줄에 따라 입력 파일을 다시 읽는다.
type Server struct {
	cfg     *config.Config
	convert ConvertFunc
	mux     *http.ServeMux
	now     func() time.Time

	batchMu    sync.RWMutex
	batchCache *batchCache
}

// batchCache holds the last converted batch and its timestamp.
type batchCache struct {
	batch     model.Batch
	err       error
	updatedAt time.Time
}

// NewServer constructs a Server that converts input with the configured
// columns.
func NewServer(cfg *config.Config, input string) *Server {
	cols := pipeline.Columns(cfg.Columns)
	return NewServerWith(cfg, func() (model.Batch, error) {
		return pipeline.Convert(input, cols, appLog.Default())
	})
}

// NewServerWith constructs a Server around an arbitrary converter.
func NewServerWith(cfg *config.Config, convert ConvertFunc) *Server {
	s := &Server{
		cfg:     cfg,
		convert: convert,
		mux:     http.NewServeMux(),
		now:     time.Now,
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// 빈 사용자명 또는 비밀번호가 설정된 경우에는 비활성화로 취급한다.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="e2gc", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Run converts once, schedules refreshes on cfg.RefreshCron and serves
// until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(s.cfg.RefreshCron, s.Refresh); err != nil {
		return fmt.Errorf("refresh schedule %q: %w", s.cfg.RefreshCron, err)
	}

	s.Refresh()
	c.Start()
	defer c.Stop()

	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen, "refresh", s.cfg.RefreshCron)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Refresh re-runs the conversion and replaces the cached batch.
func (s *Server) Refresh() {
	batch, err := s.convert()
	if err != nil {
		appLog.Error("refresh failed", err)
	} else {
		appLog.Info("refresh completed", "events", batch.Len(), "skipped", batch.Skipped)
	}

	s.batchMu.Lock()
	s.batchCache = &batchCache{batch: batch, err: err, updatedAt: s.now()}
	s.batchMu.Unlock()
}

// current returns the cached batch, converting on first use.
func (s *Server) current() *batchCache {
	s.batchMu.RLock()
	bc := s.batchCache
	s.batchMu.RUnlock()
	if bc != nil {
		return bc
	}

	s.Refresh()
	s.batchMu.RLock()
	defer s.batchMu.RUnlock()
	return s.batchCache
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/events", s.handleEvents)
	s.mux.HandleFunc("/calendar.ics", s.handleExport(export.FormatICS, "text/calendar; charset=utf-8"))
	s.mux.HandleFunc("/calendar.csv", s.handleExport(export.FormatCSV, "text/csv; charset=utf-8"))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// eventsResponse is the JSON response shape for /api/events.
type eventsResponse struct {
	Events    []eventDTO   `json:"events"`
	Skipped   int          `json:"skipped"`
	Skips     []model.Skip `json:"skips,omitempty"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// eventDTO is a JSON-friendly view of an event. Times are wall-clock
// values without zone.
type eventDTO struct {
	Row         int    `json:"row"`
	Subject     string `json:"subject"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Private     bool   `json:"private"`
}

const dtoLayout = "2006-01-02T15:04"

func (s *Server) handleEvents(w http.ResponseWriter, _ *http.Request) {
	bc := s.current()
	if bc.err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read schedule")
		return
	}

	dtos := make([]eventDTO, 0, bc.batch.Len())
	for _, ev := range bc.batch.Events {
		dtos = append(dtos, eventDTO{
			Row:         ev.Row,
			Subject:     ev.Subject,
			Start:       ev.Start.Format(dtoLayout),
			End:         ev.End.Format(dtoLayout),
			Description: ev.Description,
			Location:    ev.Location,
			Private:     ev.Private,
		})
	}

	writeJSON(w, http.StatusOK, eventsResponse{
		Events:    dtos,
		Skipped:   bc.batch.Skipped,
		Skips:     bc.batch.Skips,
		UpdatedAt: bc.updatedAt,
	})
}

func (s *Server) handleExport(f export.Format, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		bc := s.current()
		if bc.err != nil {
			writeError(w, http.StatusInternalServerError, "failed to read schedule")
			return
		}

		// DTSTAMP follows the conversion time so repeated downloads match.
		opts := export.ICSOptions{
			ProductID:    s.cfg.Calendar.ProductID,
			CalendarName: s.cfg.Calendar.Name,
			Now:          func() time.Time { return bc.updatedAt },
		}

		var buf bytes.Buffer
		if err := export.Write(&buf, f, bc.batch, opts); err != nil {
			if errors.Is(err, export.ErrEmptyBatch) {
				writeError(w, http.StatusNotFound, err.Error())
				return
			}
			appLog.Error("export failed", err, "format", string(f))
			writeError(w, http.StatusInternalServerError, "export failed")
			return
		}

		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
