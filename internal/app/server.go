package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	intrnl "whoson/internal"
	"whoson/internal/storage"
)

// ServerHandle represents a running HTTP server instance.
type ServerHandle struct {
	addr    string
	server  *http.Server
	journal *storage.Journal
	log     zerolog.Logger
	done    chan struct{}
	err     error
}

// Addr returns the actual listen address (after the OS allocated a port).
func (h *ServerHandle) Addr() string {
	return h.addr
}

// Stop triggers a graceful shutdown with the provided context deadline.
func (h *ServerHandle) Stop(ctx context.Context) error {
	if h == nil || h.server == nil {
		return nil
	}
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}
	return h.server.Shutdown(ctx)
}

// Wait blocks until the server exits.
func (h *ServerHandle) Wait() error {
	if h == nil {
		return nil
	}
	<-h.done
	return h.err
}

// RunServer wires the handlers, opens the activity journal, and starts
// serving in the background. Call Stop/Wait to manage its lifecycle.
func RunServer(ctx context.Context, cfg ServerConfig, log zerolog.Logger) (*ServerHandle, error) {
	cfg.ApplyDefaults()

	var journal *storage.Journal
	if !cfg.JournalDisabled {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o700); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
		var err error
		journal, err = storage.Open(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		if err := journal.Migrate(context.Background()); err != nil {
			_ = journal.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	server := intrnl.NewServerWithConfig(log, journal, cfg.LoginRatePerSec, cfg.LoginBurst)
	mux := http.NewServeMux()
	registerHandlers(mux, server)

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: withRecovery(log, withCORS(mux)),
	}

	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		_ = journal.Close()
		return nil, fmt.Errorf("listen: %w", err)
	}

	handle := &ServerHandle{
		addr:    listener.Addr().String(),
		server:  httpServer,
		journal: journal,
		log:     log,
		done:    make(chan struct{}),
	}

	go func() {
		if ctx == nil {
			return
		}
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server shutdown")
		}
	}()

	go handle.serve(listener)

	return handle, nil
}

func (h *ServerHandle) serve(listener net.Listener) {
	defer close(h.done)
	err := h.server.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	if err := h.journal.Close(); err != nil {
		h.log.Error().Err(err).Msg("journal close")
	}
	h.err = err
}

func registerHandlers(mux *http.ServeMux, server *intrnl.Server) {
	mux.HandleFunc("/login", server.HandleLogin)
	mux.HandleFunc("/heartbeat", server.HandleHeartbeat)
	mux.HandleFunc("/logout", server.HandleLogout)
	mux.HandleFunc("/users", server.HandleUsers)
	mux.HandleFunc("/notify", server.HandleNotify)
	mux.HandleFunc("/notify-all", server.HandleNotifyAll)
	mux.HandleFunc("/check-notification", server.HandleCheckNotification)
	mux.HandleFunc("/health", server.HandleHealth)
	mux.HandleFunc("/history", server.HandleHistory)
	mux.HandleFunc("/events", server.HandleEvents)
	mux.Handle("/metrics", server.MetricsHandler())
	mux.HandleFunc("/", server.HandleNotFound)
}

// withCORS allows any origin and answers pre-flight OPTIONS on every path.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRecovery converts an uncaught panic into a generic 500 without leaking
// internals.
func withRecovery(log zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().Any("panic", rec).Str("path", r.URL.Path).Msg("handler panic")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"success":false,"error":"internal server error"}`))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
