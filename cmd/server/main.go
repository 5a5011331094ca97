package main

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"backend-pameran/internal/config"
	"backend-pameran/internal/http/handler"
	"backend-pameran/internal/http/middleware"
	"backend-pameran/internal/rabbit"
	"backend-pameran/internal/realtime"
	"backend-pameran/internal/service"
	"backend-pameran/internal/token"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
)

func main() {
	runtime.GOMAXPROCS(runtime.NumCPU())

	config.LoadEnv()
	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr).With().Timestamp().Logger()
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}

	log := config.NewLogger(cfg.LogLevel, cfg.LogFormat)
	ctx := context.Background()

	db, err := config.OpenDB(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("database unavailable")
	}
	log.Info().Str("host", cfg.DB.Host).Str("database", cfg.DB.Name).Msg("database connected")

	if cfg.DB.AutoMigrate {
		if err := config.MigrateUp(ctx, db, cfg.DB.MigrationsDir, &log); err != nil {
			log.Fatal().Err(err).Msg("migration failed")
		}
	}

	cache, err := config.NewRedis(ctx, cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, membership cache disabled")
	}

	var publisher service.Publisher
	var mq *rabbit.Client
	if cfg.RabbitURL != "" {
		mq, err = rabbit.NewRabbit(cfg.RabbitURL, cfg.RabbitExchange, &log)
		if err != nil {
			log.Warn().Err(err).Msg("rabbitmq unavailable, check-in events will not be published")
		} else {
			publisher = mq
		}
	}

	codec := token.NewCodec(cfg.JWTSecret)
	sessions := config.NewSessions(codec, cfg.JWTExpiresIn)
	membership := service.NewMembership(db, cache, &log)

	hub := realtime.NewCheckinHub(&log)
	go hub.Run()

	h := handler.New(handler.Deps{
		DB:            db,
		Auth:          service.NewAuth(db, sessions, config.NewRecaptcha(cfg.RecaptchaSecret), &log),
		Registrations: service.NewRegistrations(db, sessions, membership, &log),
		Tickets:       service.NewTickets(db, codec, &log),
		Checkins:      service.NewCheckins(db, codec, publisher, hub, &log),
		Hub:           hub,
		Log:           &log,
	})

	app := fiber.New(fiber.Config{
		Prefork:       false,
		CaseSensitive: true,
		StrictRouting: true,
		ErrorHandler:  middleware.ErrorHandler(&log),
	})

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.RequestLogger(&log))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST",
	}))

	handler.Routes(app, h, middleware.JWTAuth(sessions, membership))

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("server listening")
		if err := app.Listen(cfg.Addr()); err != nil {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}

	hub.Stop()
	if mq != nil {
		mq.Close()
	}
	if cache != nil {
		_ = cache.Close()
	}
	if err := db.Close(); err != nil {
		log.Error().Err(err).Msg("database close")
	}
	log.Info().Msg("bye")
}
