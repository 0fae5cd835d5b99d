package internal

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"go.uber.org/zap"
)

//go:embed web/index.html
var indexHTML []byte

// RunState is the server's view of one run
type RunState struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Stage     Stage     `json:"stage"`
	Progress  int       `json:"progress"`
	Message   string    `json:"message,omitempty"`
	Error     string    `json:"error,omitempty"`
	StartedAt time.Time `json:"started_at"`

	Result       *Result `json:"result,omitempty"`
	SummaryHTML  string  `json:"summary_html,omitempty"`
	AnalysisHTML string  `json:"analysis_html,omitempty"`
}

// RunRequest is the body of POST /api/runs
type RunRequest struct {
	URL            string `json:"url"`
	Style          string `json:"style"`
	Language       string `json:"language"`
	SourceLanguage string `json:"source_language"`
	Format         string `json:"format"`
}

// Server is the web UI: a form, live stage updates over websocket and
// rendered results
type Server struct {
	app    *App
	hub    *Hub
	logger *zap.Logger
	md     goldmark.Markdown

	mu     sync.Mutex
	runs   map[string]*RunState
	active string
	// finished holds finished run IDs, oldest first; only the last
	// retain of them are kept in memory
	finished []string
	retain   int

	// base is the parent context for runs; cancelled on shutdown
	base context.Context
}

// NewServer creates a web server around app
func NewServer(app *App, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		app:    app,
		hub:    NewHub(logger),
		logger: logger,
		md:     goldmark.New(goldmark.WithExtensions(extension.GFM)),
		runs:   make(map[string]*RunState),
		retain: 100,
		base:   context.Background(),
	}
}

// Router builds the HTTP routes
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/", s.handleIndex)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/runs", s.handleStartRun)
		r.Get("/runs/{id}", s.handleGetRun)
		r.Get("/history", s.handleHistory)
	})
	r.Get("/ws/{id}", s.handleWS)

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.base = ctx
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server started", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

// POST /api/runs
func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	opts := s.app.RunOptionsFromConfig(req.URL)
	var err error
	if req.Style != "" {
		if opts.Style, err = ParseSummaryStyle(req.Style); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if req.Language != "" {
		if opts.Language, err = ParseLanguage(req.Language); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if req.SourceLanguage != "" {
		if opts.SourceLanguage, err = ParseLanguage(req.SourceLanguage); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if req.Format != "" {
		if opts.Format, err = ParseAudioFormat(req.Format); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	s.mu.Lock()
	if s.active != "" {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, ErrBusy.Error())
		return
	}
	state := &RunState{
		ID:        uuid.NewString(),
		URL:       req.URL,
		Stage:     StageIdle,
		StartedAt: time.Now(),
	}
	s.active = state.ID
	s.runs[state.ID] = state
	s.mu.Unlock()

	opts.RunID = state.ID
	opts.OnStage = s.onStage
	go s.run(opts)

	writeJSON(w, http.StatusAccepted, map[string]string{"id": state.ID})
}

func (s *Server) run(opts RunOptions) {
	result, err := s.app.Analyze(s.base, opts)

	final := StageEvent{RunID: opts.RunID, Stage: StageDone, Progress: StageDone.Progress(), Time: time.Now()}

	s.mu.Lock()
	s.active = ""
	state := s.runs[opts.RunID]
	if err != nil {
		state.Stage = StageError
		state.Error = err.Error()
		final.Stage, final.Progress, final.Message = StageError, state.Progress, err.Error()
		s.logger.Warn("run failed", zap.String("run_id", opts.RunID), zap.Error(err))
	} else {
		state.Stage = StageDone
		state.Progress = final.Progress
		state.Message = ""
		state.Result = result
		if result.Summary != nil {
			state.SummaryHTML = s.renderHTML(result.Summary.Text)
		}
		if result.Analysis != nil {
			state.AnalysisHTML = s.renderHTML(result.Analysis.Text)
		}
	}
	evicted := s.retire(opts.RunID)
	s.mu.Unlock()

	// clients acting on the final event see the stored result and a free server
	s.hub.Publish(final)
	for _, id := range evicted {
		s.hub.Forget(id)
	}
}

// retire marks id finished and drops the oldest finished runs beyond
// retain. Dropped runs are still served from the ledger. Callers hold s.mu.
func (s *Server) retire(id string) []string {
	s.finished = append(s.finished, id)
	if len(s.finished) <= s.retain {
		return nil
	}
	n := len(s.finished) - s.retain
	evicted := append([]string(nil), s.finished[:n]...)
	s.finished = s.finished[n:]
	for _, old := range evicted {
		delete(s.runs, old)
	}
	return evicted
}

// onStage records progress and forwards it to websocket clients. Terminal
// events are sent by run once the outcome is stored.
func (s *Server) onStage(ev StageEvent) {
	if ev.Stage.IsFinished() {
		return
	}

	s.mu.Lock()
	if state, ok := s.runs[ev.RunID]; ok {
		state.Stage = ev.Stage
		state.Progress = ev.Progress
		state.Message = ev.Message
	}
	s.mu.Unlock()

	s.hub.Publish(ev)
}

func (s *Server) renderHTML(src string) string {
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(src), &buf); err != nil {
		s.logger.Warn("markdown render", zap.Error(err))
		return ""
	}
	return buf.String()
}

// GET /api/runs/{id}
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	state, ok := s.runs[id]
	var snapshot RunState
	if ok {
		snapshot = *state
	}
	s.mu.Unlock()

	if ok {
		writeJSON(w, http.StatusOK, snapshot)
		return
	}

	// runs from earlier sessions only exist in the ledger
	run, err := s.app.LookupRun(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, RunState{
		ID:        run.ID,
		URL:       run.URL,
		Stage:     run.Stage,
		Progress:  run.Stage.Progress(),
		Error:     run.Error,
		StartedAt: run.StartedAt,
	})
}

// GET /api/history
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	runs, err := s.app.History(r.Context(), 50)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if runs == nil {
		runs = []Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// GET /ws/{id}
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	conn, err := Upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade", zap.Error(err))
		return
	}

	s.hub.Register(id, conn)
	defer s.hub.Unregister(id, conn)

	// Clients only listen; reading detects the close
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
