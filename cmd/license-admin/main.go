package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/ledgerdesk/portal-backend/internal/licenses"
	"github.com/ledgerdesk/portal-backend/pkg/config"
	"github.com/ledgerdesk/portal-backend/pkg/db"
	"github.com/ledgerdesk/portal-backend/pkg/logger"
)

func main() {
	kind := flag.String("kind", string(licenses.IssueStandard), "key kind: standard|promo")
	email := flag.String("email", "", "purchaser email (required for standard keys)")
	months := flag.Int("months", 1, "premium months granted by a promo key")
	notes := flag.String("notes", "", "operator notes stored with a promo key")
	count := flag.Int("count", 1, "number of keys to issue")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "license-admin"})
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "license-admin",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"kind": *kind,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	svc, err := licenses.NewService(licenses.ServiceParams{
		Repo:   licenses.NewRepository(dbClient.DB()),
		Logger: logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create license service", err)
		os.Exit(1)
	}

	keys, err := svc.Issue(ctx, licenses.IssueRequest{
		Kind:   licenses.IssueKind(*kind),
		Email:  *email,
		Months: *months,
		Notes:  *notes,
		Count:  *count,
	})
	// Keys created before a failure are already stored; print them anyway.
	for _, key := range keys {
		fmt.Println(key)
	}
	if err != nil {
		logg.Error(ctx, "key issuance failed", err)
		os.Exit(1)
	}
}
