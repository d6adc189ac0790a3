// README: Command-line itinerary demo; normalizes a saved model response or drafts a new one with the configured provider.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"wayfarer/internal/ai"
	"wayfarer/internal/config"
	"wayfarer/internal/infra"
	"wayfarer/internal/itinerary"
	"wayfarer/internal/service"
)

func main() {
	var (
		file        = flag.String("file", "", "normalize a raw model response from this file (- for stdin)")
		days        = flag.Int("days", 0, "expected day count when normalizing a file")
		start       = flag.String("start", "", "first trip date (YYYY-MM-DD)")
		end         = flag.String("end", "", "last trip date (YYYY-MM-DD)")
		destination = flag.String("destination", "杭州", "destination to plan for")
		budget      = flag.Float64("budget", 3000, "total budget in CNY")
		people      = flag.Int("people", 2, "number of travellers")
		interests   = flag.String("interests", "food,nature", "comma separated interests")
		verbose     = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := "info"
	if *verbose {
		level = "debug"
	}
	logger, err := infra.NewLogger(false, level)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	if *file != "" {
		if err := normalizeFile(logger, *file, *days, *start); err != nil {
			logger.Fatal("normalize failed", zap.Error(err))
		}
		return
	}

	if *start == "" {
		*start = time.Now().AddDate(0, 0, 7).Format(itinerary.DateLayout)
	}
	if *end == "" {
		*end = *start
	}
	req := itinerary.PlanningRequest{
		Destination:  *destination,
		StartDate:    *start,
		EndDate:      *end,
		Budget:       *budget,
		Participants: *people,
	}
	for _, i := range strings.Split(*interests, ",") {
		if i = strings.TrimSpace(i); i != "" {
			req.Interests = append(req.Interests, itinerary.Interest(i))
		}
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.AI.Timeout+10*time.Second)
	defer cancel()

	generator, closeFn, err := newGenerator(ctx, cfg)
	if err != nil {
		logger.Fatal("init generator", zap.Error(err))
	}
	defer closeFn()

	fmt.Printf("Request: %s %s..%s, %d people, budget %.0f\n", req.Destination, req.StartDate, req.EndDate, req.Participants, req.Budget)
	planned, err := service.NewTripPlanner(generator, nil, nil, nil, logger).Plan(ctx, req)
	if err != nil {
		var nerr *itinerary.NormalizationError
		if errors.As(err, &nerr) {
			fmt.Printf("Diagnostic: %s\n", nerr.Diagnostic)
		}
		logger.Fatal("plan failed", zap.Error(err))
	}
	printResult(planned.Result)
}

func newGenerator(ctx context.Context, cfg config.Config) (ai.Generator, func(), error) {
	if cfg.AI.Provider == config.ProviderGemini {
		g, err := ai.NewGemini(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiModel)
		if err != nil {
			return nil, nil, err
		}
		return g, g.Close, nil
	}
	d := ai.NewDashScope(ai.DashScopeConfig{
		APIKey:   cfg.AI.DashScopeKey,
		Endpoint: cfg.AI.DashScopeEndpoint,
		Model:    cfg.AI.DashScopeModel,
		Timeout:  cfg.AI.Timeout,
	})
	if !d.Configured() {
		return nil, nil, ai.ErrNotConfigured
	}
	return d, func() {}, nil
}

func normalizeFile(logger *zap.Logger, path string, days int, start string) error {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return err
	}
	if days <= 0 {
		days = itinerary.MaxTripDays
	}

	opts := []itinerary.Option{itinerary.WithLogger(logger)}
	if start != "" {
		t, err := time.Parse(itinerary.DateLayout, start)
		if err != nil {
			return fmt.Errorf("start: %w", err)
		}
		opts = append(opts, itinerary.WithStartDate(t))
	}

	res, err := itinerary.NewNormalizer(opts...).Normalize(string(raw), days)
	if err != nil {
		var nerr *itinerary.NormalizationError
		if errors.As(err, &nerr) {
			for _, a := range nerr.Attempts {
				fmt.Printf("  %-10s %v\n", a.Stage, a.Err)
			}
		}
		return err
	}
	printResult(res)
	return nil
}

func printResult(res *itinerary.Result) {
	fmt.Printf("Stage: %s\n", res.Stage)
	if res.Warning != nil {
		fmt.Printf("Warning: %v\n", res.Warning)
	}
	it := res.Itinerary
	fmt.Printf("Days: %d  Activities: %d  Total cost: %.2f  Daily sum: %.2f\n",
		len(it.Days), it.ActivityCount(), it.TotalCost.Float64(), it.DailyCostSum())
	out, _ := json.MarshalIndent(it, "", "  ")
	fmt.Println(string(out))
}
