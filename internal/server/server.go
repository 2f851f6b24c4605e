package server

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/kapu/kfp-startpage/internal/domain"
	"github.com/kapu/kfp-startpage/internal/util"
	"github.com/kapu/kfp-startpage/internal/view"
	"go.uber.org/zap"
)

//go:embed templates/*
var templateFS embed.FS

// RefreshPublisher spreads a local refresh to other replicas.
type RefreshPublisher interface {
	PublishRefresh(ctx context.Context) error
}

type Options struct {
	Page          *view.Page
	Publisher     RefreshPublisher
	CircuitStatus func() *util.CircuitBreakerStatus
	Logger        *zap.Logger
}

// Server serves the Getting Started page, its refresh action and live updates.
type Server struct {
	page          *view.Page
	shell         *Shell
	publisher     RefreshPublisher
	circuitStatus func() *util.CircuitBreakerStatus
	templates     *template.Template
	upgrader      websocket.Upgrader
	mux           *http.ServeMux
	logger        *zap.Logger
}

func New(opts Options) (*Server, error) {
	tmpl, err := template.New("base").ParseFS(templateFS, "templates/page.gohtml")
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	srv := &Server{
		page:          opts.Page,
		shell:         &Shell{},
		publisher:     opts.Publisher,
		circuitStatus: opts.CircuitStatus,
		templates:     tmpl,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		mux:    http.NewServeMux(),
		logger: logger,
	}

	srv.mux.HandleFunc("/", srv.handleIndex)
	srv.mux.HandleFunc("/refresh", srv.handleRefresh)
	srv.mux.HandleFunc("/api/state", srv.handleState)
	srv.mux.HandleFunc("/api/toolbar", srv.handleToolbar)
	srv.mux.HandleFunc("/ws", srv.handleWebSocket)
	srv.mux.HandleFunc("/healthz", srv.handleHealthz)

	return srv, nil
}

// Shell returns the page chrome the page is mounted into.
func (s *Server) Shell() *Shell {
	return s.shell
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Shell keeps the toolbar state declared by the mounted page.
type Shell struct {
	mu    sync.RWMutex
	state domain.ToolbarState
}

func (s *Shell) SetToolbar(state domain.ToolbarState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

func (s *Shell) Toolbar() domain.ToolbarState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	snap := s.page.Snapshot()
	content, err := s.page.HTML(snap)
	if err != nil {
		s.logger.Error("Failed to render document", zap.Error(err))
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := struct {
		Toolbar    domain.ToolbarState
		State      domain.PageState
		Generation uint64
		Content    template.HTML
	}{
		Toolbar:    s.shell.Toolbar(),
		State:      snap.State,
		Generation: snap.Generation,
		Content:    template.HTML(content),
	}
	if err := s.templates.ExecuteTemplate(w, "page.gohtml", data); err != nil {
		s.logger.Error("Failed to render page", zap.Error(err))
	}
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	// the cycle finishes even if the client goes away
	ctx := context.WithoutCancel(r.Context())
	snap := s.page.Refresh(ctx)

	if s.publisher != nil {
		if err := s.publisher.PublishRefresh(ctx); err != nil {
			s.logger.Warn("Failed to broadcast refresh", zap.Error(err))
		}
	}

	if wantsJSON(r) {
		s.writeState(w, snap)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type stateResponse struct {
	domain.Snapshot
	Markdown string `json:"markdown"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	s.writeState(w, s.page.Snapshot())
}

func (s *Server) writeState(w http.ResponseWriter, snap domain.Snapshot) {
	md, err := s.page.Markdown(snap)
	if err != nil {
		s.logger.Error("Failed to render markdown", zap.Error(err))
		http.Error(w, "failed to render document", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stateResponse{Snapshot: snap, Markdown: md}, s.logger)
}

func (s *Server) handleToolbar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.shell.Toolbar(), s.logger)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	resp := struct {
		Status  string                     `json:"status"`
		Page    domain.PageState           `json:"page"`
		Circuit *util.CircuitBreakerStatus `json:"circuit,omitempty"`
	}{
		Status: "ok",
		Page:   s.page.Snapshot().State,
	}
	if s.circuitStatus != nil {
		resp.Circuit = s.circuitStatus()
	}
	writeJSON(w, http.StatusOK, resp, s.logger)
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, v any, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to write JSON response", zap.Error(err))
	}
}
