package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"text/tabwriter"
	"time"

	"github.com/SomeoneInParticular/sct-timings/internal/db"
)

// openManifest opens the database named by -db or the configuration.
// The schema is brought up to date unless migrate is false.
func openManifest(common *commonFlags, fs *flag.FlagSet, migrate bool) (*db.DB, error) {
	cfg, err := common.load(fs)
	if err != nil {
		return nil, err
	}
	if !migrate {
		return db.OpenDB(cfg.GetDBPath())
	}
	return db.NewDB(cfg.GetDBPath())
}

func cmdMigrate(args []string, stdout io.Writer) error {
	fs := newFlagSet("migrate")
	var common commonFlags
	common.register(fs)
	if err := parseFlags(fs, args, true); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) != 1 {
		return usagef("usage: sct-timings migrate [-db PATH] up|down|status")
	}
	switch rest[0] {
	case "up", "down", "status":
	default:
		return usagef("unknown migrate action %q (want up, down or status)", rest[0])
	}

	database, err := openManifest(&common, fs, false)
	if err != nil {
		return err
	}
	defer database.Close()

	switch rest[0] {
	case "up":
		log.Printf("running migrations...")
		if err := database.MigrateUp(); err != nil {
			return err
		}
	case "down":
		log.Printf("rolling back one migration...")
		if err := database.MigrateDown(); err != nil {
			return err
		}
	}

	v, dirty, err := database.MigrateVersion()
	if err != nil {
		return fmt.Errorf("read migration version: %w", err)
	}
	latest, err := db.LatestMigrationVersion()
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "version: %d\nlatest: %d\ndirty: %v\n", v, latest, dirty)
	if dirty {
		log.Printf("database is dirty: a migration failed part way and needs manual repair")
	}
	return nil
}

func cmdRuns(args []string, stdout io.Writer) error {
	fs := newFlagSet("runs")
	var common commonFlags
	common.register(fs)
	limit := fs.Int("n", 20, "Number of runs to list (0 for all)")
	if err := parseFlags(fs, args, false); err != nil {
		return err
	}

	database, err := openManifest(&common, fs, true)
	if err != nil {
		return err
	}
	defer database.Close()

	runs, err := database.Runs(*limit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tMODE\tTASK\tTIMER\tSTARTED\tDURATION\tVOLUMES\tOK\tFAILED\tSKIPPED")
	for _, r := range runs {
		duration := "running"
		if !r.FinishedAt.IsZero() {
			duration = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
			r.ID, r.Mode, r.Task, r.Timer, r.StartedAt.Format(time.RFC3339), duration,
			r.Counts.Volumes, r.Counts.Succeeded, r.Counts.Failed, r.Counts.Skipped)
	}
	return tw.Flush()
}
