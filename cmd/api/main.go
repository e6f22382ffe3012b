package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"campingcare/internal/adapters/campingcare"
	server "campingcare/internal/adapters/http_server"
	"campingcare/internal/adapters/observability"
	redisad "campingcare/internal/adapters/redis"
	"campingcare/internal/adapters/sheets"
	"campingcare/internal/app"
	"campingcare/internal/connector"
	"campingcare/internal/shared"
	mysqlrepo "campingcare/internal/storage/mysql"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// deps
	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if err := cache.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("redis not reachable; options will not be cached")
	}
	relay := redisad.NewRelay(cache.Client(), cfg.EventsChannel)

	cc, err := campingcare.New(cfg.CampingCareBase, cfg.CampingCareKey, cfg.CampingCareRPS, cfg.HTTPTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize Camping Care client")
	}

	var imports *app.ImportService
	sh, err := sheets.NewWithCredentials(ctx, sheets.Credentials{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RefreshToken: cfg.GoogleRefreshToken,
		AccessToken:  cfg.GoogleAccessToken,
	}, cfg.SheetsBaseURL)
	if err != nil {
		log.Warn().Err(err).Msg("sheet operations disabled")
	} else {
		imports = app.NewImportService(sh, cc, repo, cfg.ImportWorkers)
	}

	cat := connector.Default()
	h := &server.Handlers{
		Catalog: cat,
		Exec:    connector.NewExecutor(cat, cc, imports),
		Options: app.NewOptionsService(cc, cache, cfg.OptionsCacheTTL),
		Imports: imports,
		Trigger: app.NewTriggerService(cc, repo, relay, app.TriggerConfig{
			NodeID:    cfg.WebhookNodeID,
			PublicURL: cfg.WebhookPublicURL,
			Secret:    cfg.WebhookSecret,
		}),
		Runs: repo,
	}

	// http
	srv := server.New(cfg.HTTPTimeout + 5*time.Second)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(h)

	log.Info().Str("addr", cfg.HTTPAddr).Str("campingcare", cfg.CampingCareBase).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http shutdown failed")
		}
	}()

	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("API stopped")
}
