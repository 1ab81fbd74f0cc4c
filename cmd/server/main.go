package main

import (
	"fmt"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"bookbrainz-site/internal/auth"
	"bookbrainz-site/internal/config"
	"bookbrainz-site/internal/engine"
	"bookbrainz-site/internal/entities"
	"bookbrainz-site/internal/instrument"
	"bookbrainz-site/internal/logger"
	"bookbrainz-site/internal/metadata"
	"bookbrainz-site/internal/site"
	"bookbrainz-site/internal/ws"
)

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Logger
	log := logger.Init(logger.Options{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	log.Info().
		Int("port", cfg.Server.Port).
		Str("webservice", cfg.WebService.BaseURL).
		Msg("Config loaded")

	// 3. Metrics and tracing
	var inst instrument.Instrumenter = &instrument.NoopInstrumenter{}
	var gatherer prometheus.Gatherer
	if cfg.Metrics.Enabled {
		promReg := prometheus.NewRegistry()
		promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		inst = instrument.NewPromInstrumenter(instrument.NewMetrics(promReg), log)
		gatherer = promReg
	}

	// 4. Web service client
	client := ws.New(cfg.WebService.BaseURL, cfg.WebService.Timeout(), log.With().Str("component", "ws").Logger())

	// 5. Declare models, then freeze the registry for lock-free reads
	reg := metadata.NewRegistry()
	if err := entities.Declare(reg); err != nil {
		log.Fatal().Err(err).Msg("Failed to declare models")
	}
	reg.Freeze()
	log.Info().Int("models", len(reg.Models())).Msg("Models declared")

	// 6. Engine
	eng := engine.New(client, reg)

	// 7. Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: site.ErrorHandler(log),
	})
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))
	app.Use(logger.RequestLogger(log))
	app.Use(instrument.Middleware(inst))

	// 8. Health check and metrics
	site.RegisterHealthRoutes(app, gatherer)

	// 9. Sessions and auth routes
	sessions := auth.NewSessions(cfg.Session.CookieName, cfg.Session.Expiration())
	app.Use(auth.Middleware(sessions, cfg.JWTSecret))
	if cfg.JWTSecret == "" {
		log.Warn().Msg("jwt_secret is empty, access token claims are not verified")
	}
	authHandler := auth.NewAuthHandler(client, sessions, cfg.JWTSecret, cfg.WebService.ClientID, log)
	auth.RegisterAuthRoutes(app, authHandler)
	requireSession := auth.RequireSession()

	// 10. Model routes
	site.RegisterModelRoutes(app, site.NewHandler(eng, log), requireSession)

	// 11. Edition routes
	editionHandler, err := site.NewEditionHandler(eng, sessions, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up edition routes")
	}
	site.RegisterEditionRoutes(app, editionHandler, requireSession)

	// 12. Start server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Info().Str("addr", addr).Msg("Starting server")
	if err := app.Listen(addr); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}
