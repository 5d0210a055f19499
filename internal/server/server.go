// Package server is a local recommendation backend: it serves the chat
// endpoint the client talks to and forwards each query to Ollama.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/bz888/cardadvisor/internal/logger"
)

type Server struct {
	http *http.Server
	log  *logger.Logger
}

func New(addr string, handler *Handler) *Server {
	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           routes(handler),
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: logger.NewLogger("Server"),
	}
}

func routes(handler *Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/chat", handler.ChatHandler)
	mux.HandleFunc("/models", handler.ModelHandler)
	mux.HandleFunc("/status", handler.StatusHandler)
	return mux
}

// Run listens until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Server started on http://" + ln.Addr().String() + "/")
		errCh <- s.http.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Info("Server stopped")
	return nil
}
