package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"time"

	"github.com/example/ride-dispatch/internal/logging"
	"github.com/example/ride-dispatch/internal/matcher"
	"github.com/example/ride-dispatch/internal/playground"
)

func main() {
	weight := flag.Float64("weight", 0.5, "proximity weight in [0,1]")
	steps := flag.Int("steps", 10, "number of weights to sweep, 0 to skip")
	asJSON := flag.Bool("json", false, "print the assignment as JSON")
	flag.Parse()

	logger := logging.NewLogger(os.Getenv("LOG_LEVEL"))
	ctx := context.Background()
	now := time.Now()

	sc := playground.NewScenario(*weight, now)
	sc.Engine.Logger = logger
	snap, res, err := sc.Assign(ctx)
	if err != nil {
		logger.Error("assignment failed", "error", err)
		os.Exit(1)
	}

	var points []matcher.SweepPoint
	if *steps > 0 {
		points, err = sc.Sweep(ctx, *steps, now)
		if err != nil {
			logger.Error("sweep failed", "error", err)
			os.Exit(1)
		}
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		err = enc.Encode(map[string]any{"snapshot": snap, "result": res, "sweep": points})
	} else {
		err = playground.Report(os.Stdout, snap, res, points)
	}
	if err != nil {
		logger.Error("write output", "error", err)
		os.Exit(1)
	}
}
