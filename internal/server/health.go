package server

import (
	"context"
	"net/http"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is reported by the gRPC health server.
const ServiceName = "empresas.imperial.FiscalImport"

type healthBody struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	if h.Ping != nil {
		if err := h.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, healthBody{Status: "unavailable", Error: err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, healthBody{Status: "ok"})
}

// NewHealthGRPCServer returns a gRPC server exposing only the standard health
// service, with reflection for grpcurl.
func NewHealthGRPCServer() (*grpc.Server, *health.Server) {
	gs := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	reflection.Register(gs)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return gs, hs
}

// WatchHealth flips the gRPC serving status to match ping every interval
// until ctx is done.
func WatchHealth(ctx context.Context, hs *health.Server, ping Pinger, interval time.Duration) {
	if ping == nil {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		status := healthpb.HealthCheckResponse_SERVING
		if err := ping(ctx); err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
		hs.SetServingStatus("", status)
		hs.SetServingStatus(ServiceName, status)
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
