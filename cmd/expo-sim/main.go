package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/simulate"
	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/pkg/logger"
)

// Default configuration constants.
const (
	defaultWorkers    = 2 // multiplier for runtime.NumCPU()
	defaultRunTimeout = 10 * time.Minute
)

const usage = `Expo Scoring Simulator
======================

Generates a science fair cohort, submits every judge's evaluation
concurrently and checks each published ranking against an independent
recomputation.

Usage:
  go run ./cmd/expo-sim [options]

Without -url an in-process service over a memory store is started. To
drive a running server, write the fixtures first and start the server
with EXPO_FIXTURES_FILE pointing at them and an empty store:

  go run ./cmd/expo-sim -fixtures fixtures.yaml
  EXPO_FIXTURES_FILE=fixtures.yaml go run ./cmd &
  go run ./cmd/expo-sim -url http://localhost:9080

Options:
`

func main() {
	defaults := simulate.DefaultConfig()
	var (
		baseURL   = flag.String("url", "", "Base URL of the service (empty starts an in-process service)")
		levels    = flag.Int("levels", defaults.Levels, "Number of grade levels")
		sections  = flag.Int("sections", defaults.Sections, "Number of sections")
		projects  = flag.Int("projects", defaults.ProjectsPerSection, "Projects per section")
		judges    = flag.Int("judges", defaults.JudgesPerProject, "Evaluations per judged project")
		resends   = flag.Int("resends", defaults.Resends, "Evaluations resent with the same submission id")
		workers   = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent submitters")
		timeout   = flag.Duration("timeout", defaults.Timeout, "HTTP request timeout")
		weight    = flag.Float64("internal-weight", defaults.InternalWeight, "Internal track weight configured on the server")
		rankLimit = flag.Int("rank-limit", defaults.RankLimit, "Limit used when fetching rankings")
		seed      = flag.Int64("seed", defaults.Seed, "Generator seed")
		fixtures  = flag.String("fixtures", "", "Write the generated fixtures to this file")
		logLevel  = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
		verbose   = flag.Bool("verbose", false, "Enable verbose logging")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Usage = func() {
		os.Stdout.WriteString(usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *help {
		flag.Usage()
		return
	}

	if err := logger.InitWithOptions(*logLevel, logger.FormatText, os.Stdout); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	cfg := &simulate.Config{
		BaseURL:            *baseURL,
		Levels:             *levels,
		Sections:           *sections,
		ProjectsPerSection: *projects,
		JudgesPerProject:   *judges,
		Resends:            *resends,
		Workers:            *workers,
		Timeout:            *timeout,
		InternalWeight:     *weight,
		RankLimit:          *rankLimit,
		Seed:               *seed,
		FixturesOut:        *fixtures,
		Verbose:            *verbose,
	}

	if _, err := simulate.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1) //nolint:gocritic // cancel already called
	}
}
