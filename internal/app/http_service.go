package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/huefri/internal/config"
	"github.com/dokzlo13/huefri/internal/hub"
	"github.com/dokzlo13/huefri/internal/ledger"
	"github.com/dokzlo13/huefri/internal/palette"
	"github.com/dokzlo13/huefri/internal/syncer"
)

// Submitter accepts manual commands.
type Submitter interface {
	Submit(ctx context.Context, cmd syncer.Command) error
}

// HTTPService serves health checks, metrics and manual control.
type HTTPService struct {
	cfg    *config.Config
	sync   Submitter
	ready  func() bool
	ledger *ledger.Ledger
	server *http.Server
}

// NewHTTPService creates the server. ledger may be nil.
func NewHTTPService(cfg *config.Config, sync Submitter, ready func() bool, l *ledger.Ledger) *HTTPService {
	return &HTTPService{cfg: cfg, sync: sync, ready: ready, ledger: l}
}

// Router builds the routes.
func (s *HTTPService) Router() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", s.health).Methods("GET")
	router.HandleFunc("/ready", s.readiness).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	router.HandleFunc("/api/ledger", s.history).Methods("GET")
	router.HandleFunc("/api/{hub}/color/{arg}", s.color).Methods("POST")
	router.HandleFunc("/api/{hub}/brightness/{arg}", s.brightness).Methods("POST")

	return router
}

// Start begins serving if enabled.
func (s *HTTPService) Start(ctx context.Context) {
	if !s.cfg.HTTP.Enabled {
		return
	}

	go s.run(ctx)
}

func (s *HTTPService) run(ctx context.Context) {
	addr := s.cfg.HTTP.Addr()
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}

	log.Info().Str("addr", addr).Msg("Starting HTTP server")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout.Duration())
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("HTTP server shutdown error")
		}
	}()

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("HTTP server error")
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("Failed to write response")
	}
}

func (s *HTTPService) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *HTTPService) readiness(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil && !s.ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "starting"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *HTTPService) color(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	cmd, err := syncer.ParseColorCommand(vars["hub"], vars["arg"])
	s.submit(w, r, cmd, err)
}

func (s *HTTPService) brightness(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	cmd, err := syncer.ParseBrightnessCommand(vars["hub"], vars["arg"])
	s.submit(w, r, cmd, err)
}

func (s *HTTPService) submit(w http.ResponseWriter, r *http.Request, cmd syncer.Command, err error) {
	if err == nil {
		err = s.sync.Submit(r.Context(), cmd)
	}

	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "hub": cmd.Hub, "command": cmd.Name})
	case errors.Is(err, syncer.ErrUnknownCommand):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, palette.ErrUnknownColor):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, syncer.ErrNotRunning):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	case hub.IsTimeout(err):
		writeJSON(w, http.StatusGatewayTimeout, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
	}
}

type historyEntry struct {
	ID        int64          `json:"id"`
	Kind      string         `json:"kind"`
	Timestamp string         `json:"timestamp"`
	Hub       string         `json:"hub"`
	Target    string         `json:"target,omitempty"`
	Command   string         `json:"command,omitempty"`
	State     ledger.Payload `json:"state"`
	Error     string         `json:"error,omitempty"`
}

func (s *HTTPService) history(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "ledger disabled"})
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = n
	}

	var (
		entries []*ledger.Entry
		err     error
	)
	if kind := r.URL.Query().Get("kind"); kind != "" {
		entries, err = s.ledger.GetByKind(hub.EventKind(kind), limit)
	} else {
		entries, err = s.ledger.Recent(limit)
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	out := make([]historyEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, historyEntry{
			ID:        e.ID,
			Kind:      string(e.Kind),
			Timestamp: e.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
			Hub:       e.Hub,
			Target:    e.Target,
			Command:   e.Command,
			State:     e.Payload,
			Error:     e.Error,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
