// Package server exposes the bridge over local HTTP: GET /health for
// liveness and POST /rpc for method calls. Error replies keep the envelope
// shape so clients never parse a bare status line.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/harnesslab/gimpbridge/internal/dispatch"
	"github.com/harnesslab/gimpbridge/internal/protocol"
	"github.com/harnesslab/gimpbridge/internal/session"
)

// maxRequestBytes bounds an /rpc body; params are small JSON documents.
const maxRequestBytes = 8 << 20

// shutdownGrace is how long in-flight calls get to finish on shutdown.
const shutdownGrace = 10 * time.Second

// Server runs the bridge HTTP daemon and drives the session lifecycle
// around it.
type Server struct {
	addr       string
	dispatcher *dispatch.Dispatcher
	session    *session.Session
	logger     *zap.Logger
}

// New wires a Server. A nil logger disables logging.
func New(addr string, d *dispatch.Dispatcher, sess *session.Session, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{addr: addr, dispatcher: d, session: sess, logger: logger}
}

// Handler builds the route tree. Exposed separately so tests can drive it
// through httptest without binding a port.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/health", s.handleHealth)
	r.Post("/rpc", s.handleRPC)
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.session.Status()
	body, _ := json.Marshal(map[string]any{
		"ok":              true,
		"protocolVersion": protocol.Version,
		"state":           status.State,
	})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		s.writeError(w, protocol.NewError(protocol.CodeInvalidInput, "failed to read request body: %v", err))
		return
	}
	req, err := protocol.DecodeRequest(body)
	if err != nil {
		s.writeError(w, err)
		return
	}

	result, err := s.dispatcher.Execute(r.Context(), req.Method, req.Params)
	if err != nil {
		s.logger.Warn("method failed",
			zap.String("rpc", req.Method),
			zap.String("code", protocol.CodeOf(err)),
			zap.Error(err),
		)
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(protocol.EncodeReply(result, nil))
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	if protocol.CodeOf(err) == protocol.CodeInternal {
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(protocol.EncodeReply(nil, err))
}

// Run serves until ctx is canceled, walking the session through its
// lifecycle. The returned listener address is logged, which matters when
// the configured port is 0.
func (s *Server) Run(ctx context.Context) error {
	if err := s.session.TransitionTo(session.Starting, "serve requested"); err != nil {
		return err
	}
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		if stopErr := s.session.TransitionTo(session.Stopping, "listen failed"); stopErr == nil {
			s.session.TransitionTo(session.Stopped, "listen failed")
		}
		return protocol.NewError(protocol.CodeBridgeUnavailable, "cannot listen on %s: %v", s.addr, err)
	}

	httpSrv := &http.Server{Handler: s.Handler()}
	if err := s.session.TransitionTo(session.Running, "listener ready"); err != nil {
		listener.Close()
		return err
	}
	s.session.RecordHealth(true)
	s.logger.Info("bridge listening", zap.String("addr", listener.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		s.session.TransitionTo(session.Stopping, "shutdown requested")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		err = httpSrv.Shutdown(shutdownCtx)
		<-errCh
	case err = <-errCh:
		s.session.TransitionTo(session.Stopping, "listener failed")
	}
	s.session.TransitionTo(session.Stopped, "server exited")

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
