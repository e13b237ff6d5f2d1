package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"order-service/config"
	_ "order-service/docs"
	"order-service/internal/app"
	"order-service/internal/handlers"
	"order-service/internal/router"
	"order-service/internal/token"
	"order-service/pkg/database"
	"order-service/pkg/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// @Title OrderHub Order Service API
// @Version 1.0
// @Description Заказы, ваучеры, склад и оплата (COD, VietQR, PayOS)
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	_ = godotenv.Load()
	isDev := os.Getenv("ENV") == "development"
	if err := logger.Init(isDev); err != nil {
		panic(err)
	}

	defer logger.Sync()

	log := logger.L()

	cfg := config.Load(log)
	db := database.ConnectDB(&cfg.DB.Config, log)
	defer database.CloseDB(db, log)

	a, err := app.Build(cfg, db, log)
	if err != nil {
		log.Fatal("failed to build application", zap.Error(err))
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a.Scheduler.Start(ctx)

	verifier := token.NewHSProvider(cfg.JWT.AccessSecret, cfg.JWT.Issuer, cfg.JWT.Audience)
	r := router.Router(router.Handlers{
		Orders:   handlers.NewOrderHandler(a.Orders, log),
		Payments: handlers.NewPaymentHandler(a.Payments, a.Reconciler, log),
		Seller:   handlers.NewSellerHandler(a.Orders, a.Payments, a.Ledger, log),
		Vouchers: handlers.NewVoucherHandler(a.Vouchers, log),
		Admin:    handlers.NewAdminHandler(a.Orders, log),
	}, verifier, log)

	srv := &http.Server{
		Addr:              cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// gRPC только для health-check и reflection
	lis, err := net.Listen("tcp", cfg.GRPCPort)
	if err != nil {
		log.Fatal("failed to listen", zap.Error(err))
	}
	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthSrv.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	grpc_health_v1.RegisterHealthServer(grpcServer, healthSrv)
	reflection.Register(grpcServer)

	go func() {
		log.Info("Starting health gRPC server", zap.String("addr", cfg.GRPCPort))
		if err := grpcServer.Serve(lis); err != nil {
			log.Error("gRPC server failed", zap.Error(err))
		}
	}()

	go func() {
		log.Info("Starting Order HTTP server", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down Order service...")

	healthSrv.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	cancel()
	a.Scheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", zap.Error(err))
	}
	grpcServer.GracefulStop()
	log.Info("Order service stopped gracefully")
}
