package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"retensync.io/internal/audit"
	"retensync.io/internal/authclient"
	"retensync.io/internal/config"
	"retensync.io/internal/guard"
	"retensync.io/internal/httpapi"
	"retensync.io/internal/obs"
	"retensync.io/internal/security"
	"retensync.io/internal/session"
)

var version = "0.3.1"

func main() {
	// Optional .env for local development; the environment wins.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	obs.Init()

	ctx := context.Background()

	// Session tiers in priority order: in-process primary, then the
	// configured durable backends.
	tiers := []session.Tier{session.NewMemoryTier("primary")}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis url: %v", err)
		}
		redisClient = redis.NewClient(opts)
		tiers = append(tiers, session.NewRedisTier(redisClient, "retensync:session:"+cfg.StoreKey))
	}

	var pgTier *session.PGTier
	if cfg.PGDSN != "" {
		pgTier, err = session.OpenPG(cfg.PGDSN, cfg.StoreKey)
		if err != nil {
			log.Fatalf("open postgres: %v", err)
		}
		if err := pgTier.EnsureSchema(ctx); err != nil {
			log.Fatalf("session schema: %v", err)
		}
		tiers = append(tiers, pgTier)
	}

	recorder := audit.NewRecorder(
		audit.WithSink(cfg.AuditSinkURL),
		audit.WithUserAgent("retensync-api/"+version),
	)

	store, err := session.NewStore(tiers, session.WithExpiredHook(func(ctx context.Context, rec session.Record) {
		recorder.Log(ctx, audit.Event{
			Type:    audit.EventTokenExpired,
			UserID:  rec.UserID,
			Role:    rec.Role,
			Details: "token expired, session cleared",
		})
	}))
	if err != nil {
		log.Fatalf("session store: %v", err)
	}

	monitor := session.NewMonitor(store, session.WithTimeoutHandler(func(ctx context.Context, reason session.TimeoutReason) {
		details := "session expired after maximum duration"
		if reason == session.TimeoutIdle {
			details = "session terminated after idle timeout"
		}
		recorder.Log(ctx, audit.Event{Type: audit.EventTokenExpired, Details: details})
	}))
	defer monitor.Stop()

	validator := security.NewValidator(store, monitor)
	auth := authclient.New(cfg.AuthBaseURL, cfg.DemoSecret, authclient.WithDemoMode(cfg.DemoMode))
	checker := guard.NewChecker(nil, nil)

	ready := httpapi.ReadyProbe{Redis: redisClient}
	if pgTier != nil {
		ready.DB = pgTier.DB()
	}

	api := httpapi.New(httpapi.Deps{
		Store:     store,
		Monitor:   monitor,
		Validator: validator,
		Recorder:  recorder,
		Auth:      auth,
		Checker:   checker,
		Ready:     ready,
		RateRPS:   cfg.RateRPS,
		RateBurst: cfg.RateBurst,
	}, version)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	var grpcServer *grpc.Server
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			log.Fatalf("grpc listen: %v", err)
		}
		grpcServer = grpc.NewServer()
		healthSrv := health.NewServer()
		healthSrv.SetServingStatus("retensync-api", healthpb.HealthCheckResponse_SERVING)
		healthpb.RegisterHealthServer(grpcServer, healthSrv)
		go func() {
			if err := grpcServer.Serve(lis); err != nil {
				log.Printf("grpc serve: %v", err)
			}
		}()
	}

	log.Printf("Starting retensync-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(shutdownCtx)
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	if pgTier != nil {
		_ = pgTier.Close()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	log.Println("Stopped")
}
