// Command pipeline-import loads a legacy pipeline export into PostgreSQL.
// Activities, tasks and reminders written with pipelineId, cuentaId or
// clienteId are rewritten to the typed owner reference on the way in.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"crm_pipeline_backend/internal/pipeline/importer"
	"crm_pipeline_backend/internal/pipeline/repository"
	"crm_pipeline_backend/migrations"
	"crm_pipeline_backend/platform/config"
	"crm_pipeline_backend/platform/db"
	"crm_pipeline_backend/platform/logger"
)

func main() {
	var file string
	var dryRun bool
	flag.StringVar(&file, "file", "", "path to the legacy JSON export")
	flag.BoolVar(&dryRun, "dry-run", false, "report what would be imported without writing")
	flag.Parse()

	if file == "" {
		fmt.Fprintln(os.Stderr, "Error: -file is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting pipeline import", "file", file, "dryRun", dryRun)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	f, err := os.Open(file)
	if err != nil {
		log.Error("failed to open export", "error", err)
		os.Exit(1)
	}
	defer f.Close()

	cs, report, err := importer.Decode(f)
	if err != nil {
		log.Error("failed to read export", "error", err)
		os.Exit(1)
	}
	for _, skipped := range report.Skipped {
		log.Warn("record skipped", "record", skipped)
	}

	if !dryRun {
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			log.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := db.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
			log.Error("failed to run database migrations", "error", err)
			os.Exit(1)
		}

		if collection, err := cs.Flush(ctx, repository.NewCollections(pool)); err != nil {
			log.Error("import failed", "collection", collection, "error", err)
			os.Exit(1)
		}
	}

	out, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(out))
	log.Info("pipeline import finished", "deals", report.Deals, "migrated", report.Migrated, "skipped", len(report.Skipped))
}
