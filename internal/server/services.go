package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"google.golang.org/grpc"
)

// GRPCService serves a gRPC server on a TCP address.
type GRPCService struct {
	addr   string
	server *grpc.Server
	lis    net.Listener
}

// NewGRPCService binds addr immediately so that the listener address is
// known before Start. addr may use port 0.
//
// Precondition: srv must have its services registered.
func NewGRPCService(addr string, srv *grpc.Server) (*GRPCService, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}
	return &GRPCService{addr: addr, server: srv, lis: lis}, nil
}

// Addr returns the bound listener address.
func (g *GRPCService) Addr() string { return g.lis.Addr().String() }

// Start serves until Stop.
func (g *GRPCService) Start() error {
	if err := g.server.Serve(g.lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// Stop drains in-flight RPCs.
func (g *GRPCService) Stop() { g.server.GracefulStop() }

// HTTPService serves an http.Handler.
type HTTPService struct {
	server  *http.Server
	timeout time.Duration
}

// NewHTTPService creates an HTTPService on addr. Stop waits up to timeout
// for in-flight requests.
func NewHTTPService(addr string, handler http.Handler, timeout time.Duration) *HTTPService {
	return &HTTPService{
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		timeout: timeout,
	}
}

// Start serves until Stop.
func (h *HTTPService) Start() error {
	if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the server down gracefully, then forcibly after the timeout.
func (h *HTTPService) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()
	if err := h.server.Shutdown(ctx); err != nil {
		_ = h.server.Close()
	}
}
