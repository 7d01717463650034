// Package httpserver is the minimal JSON-over-HTTP front-end: one route
// per OperationFacade method, plus health and admin-reload endpoints.
package httpserver

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/sudhishp/kestrel/internal/runtime"
	"github.com/sudhishp/kestrel/internal/server/http/controllers"
)

// Server serves the queue collection's JSON-over-HTTP API.
type Server struct {
	rt  *runtime.Runtime
	srv *http.Server
	lis net.Listener
}

// New builds a Server wired to rt's collection.
func New(rt *runtime.Runtime) *Server {
	mux := http.NewServeMux()
	registry := controllers.NewControllerRegistry(rt)
	registry.RegisterAllRoutes(mux)
	return &Server{rt: rt, srv: &http.Server{Handler: cors(mux)}}
}

// ListenAndServe binds addr and serves until ctx is cancelled, at which
// point it shuts the HTTP server down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(cctx)
		return nil
	case err := <-errCh:
		return err
	}
}

// Close closes the listener without waiting for in-flight requests.
func (s *Server) Close() {
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
