package main

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/dogmatiq/dodeca/logging"
)

// httpServer hosts the read API's routes until ctx is canceled, then
// drains in-flight requests before returning.
type httpServer struct {
	Address string
	Handler http.Handler
	Logger  logging.Logger

	server *http.Server
}

// Run listens on Address and serves Handler until ctx is canceled, at
// which point it shuts down gracefully and returns nil.
func (s *httpServer) Run(ctx context.Context) error {
	logging.Log(s.Logger, "listening for read API requests on %s", s.Address)

	lis, err := net.Listen("tcp", s.Address)
	if err != nil {
		return fmt.Errorf("cu: unable to start HTTP listener: %w", err)
	}
	defer lis.Close()

	s.server = &http.Server{Handler: s.Handler}

	errs := make(chan error, 1)
	go func() {
		errs <- s.server.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errs:
		if err == http.ErrServerClosed {
			return nil
		}
		return fmt.Errorf("cu: HTTP server stopped: %w", err)
	}
}
