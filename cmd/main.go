package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"

	"route_service/internal/api"
	"route_service/internal/config"
	"route_service/internal/core"
	"route_service/internal/domain/model"
	"route_service/internal/domain/repository"
	"route_service/internal/infrastructure/events"
	"route_service/internal/infrastructure/geocode"
	"route_service/internal/infrastructure/graphhopper"
)

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Репозитории
	userRepo, err := repository.NewPostgresRepository(cfg.DBDriver, cfg.PostgresURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	if err := repository.EnsureSchema(ctx, userRepo.DB); err != nil {
		log.Fatalf("Failed to prepare database: %v", err)
	}
	avoidanceRecorder := repository.NewPostgresAvoidanceRecorder(userRepo.DB)
	overpassRepo := repository.NewOverpassRepository(cfg.OverpassURL, cfg.OverpassTimeout)

	var geocoder model.Geocoder
	if cfg.GoogleMapsAPIKey != "" {
		g, err := geocode.NewGoogleGeocoder(cfg.GoogleMapsAPIKey)
		if err != nil {
			log.Printf("Warning: reverse geocoding disabled: %v", err)
		} else {
			geocoder = g
		}
	}

	routingClient := graphhopper.NewClient(cfg.GraphHopperURL, cfg.GraphHopperKey)

	// Сервисы
	obstacleService := core.NewObstacleService(avoidanceRecorder, overpassRepo, geocoder)
	var avoidance model.AvoidanceSink = obstacleService
	if cfg.RabbitMQURL != "" {
		conn, err := events.Dial(cfg.RabbitMQURL)
		if err != nil {
			log.Printf("Warning: recording avoided obstacles without the broker: %v", err)
		} else {
			defer conn.Close()
			if err := events.Setup(conn); err != nil {
				log.Fatalf("Failed to set up RabbitMQ: %v", err)
			}
			avoidance = events.NewPublisher(conn)
			consumer := events.NewConsumer(conn, obstacleService)
			go func() {
				if err := consumer.Run(ctx); err != nil {
					log.Printf("Avoidance consumer stopped: %v", err)
				}
			}()
		}
	}

	exclusion := core.NewExclusionModelBuilder(cfg.ExclusionSizeMeters)
	routeService := core.NewRouteService(
		routingClient,
		core.NewSessionStore(cfg.SessionTTL, cfg.MaxSessions),
		exclusion,
		avoidance,
		cfg.SteepSlopePercent,
	)
	authService := core.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTExpiry)

	// HTTP
	mux := http.NewServeMux()
	api.NewHandler(routeService, authService, obstacleService, exclusion, routingClient).Register(mux)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("Starting server on :%s", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
	<-stopped
	routeService.Wait()
}
