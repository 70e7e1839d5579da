package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/SomeoneInParticular/sct-timings/internal/db"
	"github.com/SomeoneInParticular/sct-timings/internal/fsutil"
	"github.com/SomeoneInParticular/sct-timings/internal/httputil"
	"github.com/SomeoneInParticular/sct-timings/internal/reference"
	"github.com/SomeoneInParticular/sct-timings/internal/resample"
	"github.com/SomeoneInParticular/sct-timings/internal/sct"
)

const downloadTimeout = 30 * time.Minute

func cmdSetup(ctx context.Context, args []string) error {
	fs := newFlagSet("setup")
	var common commonFlags
	common.register(fs)
	if err := parseFlags(fs, args, false); err != nil {
		return err
	}

	cfg, err := common.load(fs)
	if err != nil {
		return err
	}
	if err := cfg.Require("sct_bin"); err != nil {
		return err
	}

	tools, err := sct.NewToolbox(cfg.GetSCTBin())
	if err != nil {
		return err
	}
	if err := tools.Verify(sct.SetupCommands...); err != nil {
		return err
	}

	database, err := db.NewDB(cfg.GetDBPath())
	if err != nil {
		return fmt.Errorf("open manifest: %w", err)
	}
	defer database.Close()

	fsys := fsutil.OSFileSystem{}
	invoker := &sct.Invoker{Tools: tools, Runner: sct.NewExecRunner(0, tools.Env(os.Environ()))}
	dataDir := cfg.GetDataDir()

	dl := &reference.Downloader{
		Client: httputil.NewStandardClient(&http.Client{Timeout: downloadTimeout}),
		FS:     fsys,
	}
	source, err := dl.Fetch(ctx, cfg.GetSourceURL(), dataDir)
	if err != nil {
		return err
	}

	prep := &reference.Preparer{SCT: invoker, FS: fsys, Crop: reference.CropBox(cfg.GetCrop())}
	ref, err := prep.Prepare(ctx, source)
	if err != nil {
		return err
	}
	log.Printf("reference volume %s ready (steps run: %v)", ref.Cropped, ref.Ran)

	policy, err := resample.ParseCollisionPolicy(cfg.GetCollisionPolicy())
	if err != nil {
		return err
	}
	gen := &resample.Generator{
		SCT:       invoker,
		FS:        fsys,
		Manifest:  database,
		Precision: cfg.GetFactorPrecision(),
		Policy:    policy,
	}
	for _, mode := range resample.Modes() {
		outs, err := gen.Generate(ctx, ref.Cropped, mode, mode.Dir(dataDir), cfg.GetFactors())
		if err != nil {
			return fmt.Errorf("%s volumes: %w", mode, err)
		}
		generated := 0
		for _, o := range outs {
			if o.Generated {
				generated++
			}
		}
		log.Printf("%s: %d volumes in %s (%d generated)", mode, len(outs), mode.Dir(dataDir), generated)
	}
	return nil
}
