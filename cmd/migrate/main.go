package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
)

const usage = `usage: migrate [flags] <command>

commands:
  up                 apply every pending migration
  down               roll back the latest migration
  status             list migrations and whether they are applied
  to <version>       migrate up or down to YYYYMMDDHHMMSS
  create <name>      write a new SQL migration to -dir (default %s)
  validate           check filenames and goose annotations

flags:
`

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	dir := flag.String("dir", "", "migrations directory; empty uses the embedded set (create/validate default to "+migrate.DiskDir+")")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), usage, migrate.DiskDir)
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}
	command := args[0]
	ctx := logg.WithField(context.Background(), "cmd", command)

	switch command {
	case "create":
		if len(args) < 2 {
			fail(ctx, logg, "migrate.missing_name", fmt.Errorf("create needs a migration name"))
		}
		path, err := migrate.CreateSQLMigration(diskDir(*dir), args[1])
		if err != nil {
			fail(ctx, logg, "migrate.create_failed", err)
		}
		logg.Info(logg.WithField(ctx, "path", path), "migrate.created")
		return
	case "validate":
		fsys := migrate.Source(*dir)
		if err := migrate.ValidateFS(fsys); err != nil {
			fail(ctx, logg, "migrate.validate_failed", err)
		}
		logg.Info(ctx, "migrate.validate_passed")
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fail(ctx, logg, "config.load_failed", err)
	}
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Fields:      map[string]any{"env": cfg.App.Env},
	})
	ctx = logg.WithFields(ctx, map[string]any{"embedded": *dir == ""})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		fail(ctx, logg, "db.bootstrap_failed", err)
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.SQL()
	if err != nil {
		fail(ctx, logg, "db.sql_unavailable", err)
	}
	runner, err := migrate.NewRunner(sqlDB, migrate.Source(*dir))
	if err != nil {
		fail(ctx, logg, "migrate.init_failed", err)
	}

	switch command {
	case "up":
		results, err := runner.Up(ctx)
		logResults(ctx, logg, results)
		if err != nil {
			fail(ctx, logg, "migrate.up_failed", err)
		}
	case "down":
		res, err := runner.Down(ctx)
		if err != nil {
			fail(ctx, logg, "migrate.down_failed", err)
		}
		if res != nil {
			logResults(ctx, logg, []migrate.Result{*res})
		}
	case "to":
		if len(args) < 2 {
			fail(ctx, logg, "migrate.missing_version", fmt.Errorf("to needs a target version"))
		}
		results, err := runner.To(ctx, args[1])
		logResults(ctx, logg, results)
		if err != nil {
			fail(ctx, logg, "migrate.to_failed", err)
		}
	case "status":
		statuses, err := runner.Status(ctx)
		if err != nil {
			fail(ctx, logg, "migrate.status_failed", err)
		}
		printStatus(statuses)
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func diskDir(dir string) string {
	if dir == "" {
		return migrate.DiskDir
	}
	return dir
}

func logResults(ctx context.Context, logg *logger.Logger, results []migrate.Result) {
	for _, r := range results {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"version":     r.Version,
			"path":        r.Path,
			"direction":   r.Direction,
			"duration_ms": r.Duration.Milliseconds(),
		}), "migrate.applied")
	}
	if len(results) == 0 {
		logg.Info(ctx, "migrate.nothing_to_do")
	}
}

func printStatus(statuses []migrate.Status) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tSTATE\tAPPLIED AT\tFILE")
	for _, st := range statuses {
		state, at := "pending", "-"
		if st.Applied {
			state, at = "applied", st.AppliedAt.UTC().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", st.Version, state, at, st.Path)
	}
	_ = w.Flush()
}

func fail(ctx context.Context, logg *logger.Logger, msg string, err error) {
	logg.Error(ctx, msg, err)
	os.Exit(1)
}
