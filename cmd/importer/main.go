// Command importer reconciles a Google Sheet of bookings with Camping Care:
// it lists the rows not yet imported, books them and marks them pending.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"campingcare/internal/adapters/campingcare"
	"campingcare/internal/adapters/observability"
	"campingcare/internal/adapters/sheets"
	"campingcare/internal/app"
	"campingcare/internal/shared"
	mysqlrepo "campingcare/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err := run(ctx, os.Args[1:], os.Stdout, func(ctx context.Context, workers int) (*deps, error) {
		return wire(ctx, cfg, workers)
	})
	if err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// wire builds the production adapters. MySQL is optional: without it runs
// are not recorded.
func wire(ctx context.Context, cfg shared.Config, workers int) (*deps, error) {
	sh, err := sheets.NewWithCredentials(ctx, sheets.Credentials{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RefreshToken: cfg.GoogleRefreshToken,
		AccessToken:  cfg.GoogleAccessToken,
	}, cfg.SheetsBaseURL)
	if err != nil {
		return nil, err
	}
	cc, err := campingcare.New(cfg.CampingCareBase, cfg.CampingCareKey, cfg.CampingCareRPS, cfg.HTTPTimeout)
	if err != nil {
		return nil, fmt.Errorf("camping care client: %w", err)
	}

	d := &deps{close: func() {}}
	var runs *mysqlrepo.Repo
	if db, err := sql.Open("mysql", cfg.MySQLDSN); err != nil {
		log.Warn().Err(err).Msg("sql.Open failed; runs will not be recorded")
	} else if err := db.PingContext(ctx); err != nil {
		log.Warn().Err(err).Msg("db.Ping failed; runs will not be recorded")
		_ = db.Close()
	} else {
		runs = mysqlrepo.New(db)
		d.runs = runs
		d.close = func() { _ = db.Close() }
	}

	if workers <= 0 {
		workers = cfg.ImportWorkers
	}
	if runs != nil {
		d.imports = app.NewImportService(sh, cc, runs, workers)
	} else {
		d.imports = app.NewImportService(sh, cc, nil, workers)
	}
	return d, nil
}
