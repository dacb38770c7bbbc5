package main

import (
	"context"
	"log/slog"
	"net"

	"google.golang.org/grpc"

	"github.com/md-rashed-zaman/medibook/libs/grpcx"
	"github.com/md-rashed-zaman/medibook/services/portal-service/internal/booking"
	"github.com/md-rashed-zaman/medibook/services/portal-service/internal/grpcserver"
)

// startGRPC serves the SlotService on port. An empty port disables it.
func startGRPC(ctx context.Context, logger *slog.Logger, port string, svc *booking.Service) func() {
	if port == "" {
		return func() {}
	}
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		logger.Error("grpc listen failed", "err", err, "port", port)
		return func() {}
	}
	srv := grpc.NewServer(grpcx.ServerOptions(logger)...)
	grpcserver.Register(srv, svc)

	go func() {
		logger.Info("grpc server starting", "addr", lis.Addr().String())
		if err := srv.Serve(lis); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()
	go func() {
		<-ctx.Done()
		srv.GracefulStop()
	}()
	return srv.Stop
}
