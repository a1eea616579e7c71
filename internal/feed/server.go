package feed

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Controller accepts run commands from feed clients.
type Controller interface {
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Equip(ctx context.Context, itemID string) error
	Unequip(ctx context.Context, itemID string) error
}

// NewRouter exposes the hub:
//
//	GET  /ws              websocket frame stream
//	GET  /frame           latest frame as JSON
//	GET  /healthz         liveness
//	POST /pause, /resume  run control (only with a Controller)
//	POST /equip/{item}, /unequip/{item}
func NewRouter(h *Hub, ctl Controller) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/ws", h.ServeWS).Methods(http.MethodGet)
	r.HandleFunc("/frame", func(w http.ResponseWriter, _ *http.Request) {
		data, ok := h.Latest()
		if !ok {
			http.Error(w, "no frame yet", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(data)
	}).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		published, dropped := h.Stats()
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","clients":%d,"published":%d,"dropped":%d}`, h.Clients(), published, dropped)
	}).Methods(http.MethodGet)

	if ctl != nil {
		r.HandleFunc("/pause", command(ctl.Pause)).Methods(http.MethodPost)
		r.HandleFunc("/resume", command(ctl.Resume)).Methods(http.MethodPost)
		r.HandleFunc("/equip/{item}", itemCommand(ctl.Equip)).Methods(http.MethodPost)
		r.HandleFunc("/unequip/{item}", itemCommand(ctl.Unequip)).Methods(http.MethodPost)
	}
	return r
}

const commandTimeout = 2 * time.Second

func command(fn func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), commandTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func itemCommand(fn func(context.Context, string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item := mux.Vars(r)["item"]
		command(func(ctx context.Context) error { return fn(ctx, item) })(w, r)
	}
}

// Server serves the feed over HTTP until its context is cancelled.
type Server struct {
	addr string
	hub  *Hub
	ctl  Controller
	log  *zap.Logger
}

// NewServer serves hub on addr. ctl may be nil to disable run control.
func NewServer(addr string, hub *Hub, ctl Controller, log *zap.Logger) *Server {
	return &Server{addr: addr, hub: hub, ctl: ctl, log: log}
}

// Run listens on the configured address and blocks until ctx is done or the
// listener fails.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen feed %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           NewRouter(s.hub, s.ctl),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	s.log.Info("render feed listening", zap.String("addr", ln.Addr().String()))

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve feed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown feed: %w", err)
	}
	return nil
}
