package health

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Check reports whether one dependency is usable.
type Check func(ctx context.Context) error

// Server keeps the gRPC health service in step with a set of dependency
// checks. The overall status ("") is SERVING only while every check passes.
type Server struct {
	log      *slog.Logger
	hs       *grpchealth.Server
	interval time.Duration
	checks   map[string]Check

	mu     sync.Mutex
	failed map[string]error
}

func NewServer(log *slog.Logger, interval time.Duration, checks map[string]Check) *Server {
	hs := grpchealth.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	return &Server{
		log:      log,
		hs:       hs,
		interval: interval,
		checks:   checks,
		failed:   map[string]error{},
	}
}

func (s *Server) Register(gs *grpc.Server) {
	healthpb.RegisterHealthServer(gs, s.hs)
}

// Run probes the checks every interval until ctx is done, then marks the
// service as shutting down.
func (s *Server) Run(ctx context.Context) error {
	s.Probe(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.hs.Shutdown()
			return nil
		case <-ticker.C:
			s.Probe(ctx)
		}
	}
}

// Probe runs every check once and updates the serving status.
func (s *Server) Probe(ctx context.Context) {
	ok := true
	for name, check := range s.checks {
		cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := check(cctx)
		cancel()

		status := healthpb.HealthCheckResponse_SERVING
		if err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
			ok = false
		}
		s.hs.SetServingStatus(name, status)
		s.record(name, err)
	}
	if ok {
		s.hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	} else {
		s.hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	}
}

func (s *Server) record(name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, wasFailing := s.failed[name]
	switch {
	case err != nil && !wasFailing:
		s.log.Warn("health check failing", "check", name, "err", err)
		s.failed[name] = err
	case err != nil:
		s.failed[name] = err
	case wasFailing:
		s.log.Info("health check recovered", "check", name, "prev_err", prev)
		delete(s.failed, name)
	}
}

// HTTPHandler answers 200 while the service is SERVING and 503 otherwise.
func (s *Server) HTTPHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp, err := s.hs.Check(r.Context(), &healthpb.HealthCheckRequest{})
		if err != nil || resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("unavailable\n"))
			return
		}
		_, _ = w.Write([]byte("ok\n"))
	})
}

// Serve listens on addr with a gRPC server carrying the health service and
// stops it gracefully when ctx is done.
func Serve(ctx context.Context, log *slog.Logger, addr string, s *Server) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	gs := grpc.NewServer()
	s.Register(gs)

	go func() {
		<-ctx.Done()
		gs.GracefulStop()
	}()
	log.Info("grpc listening", "addr", addr)
	return gs.Serve(lis)
}
