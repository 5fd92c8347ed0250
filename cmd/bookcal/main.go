package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"bookcal/internal/booking"
	"bookcal/internal/bookster"
	"bookcal/internal/config"
	"bookcal/internal/feed"
	"bookcal/internal/log"
	"bookcal/internal/web"
)

type flagConfig struct {
	configPath string
	outDir     string
	listen     string
	once       bool
	splitDays  bool
}

func main() {
	flags := parseFlags()

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		log.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	log.SetLevel(log.ParseLevel(cfg.LogLevel))

	// CLI overrides.
	if flags.outDir != "" {
		cfg.Feeds.OutDir = flags.outDir
	}
	if flags.listen != "" {
		cfg.Listen = flags.listen
	}
	if flags.splitDays {
		cfg.Feeds.SplitDays = true
	}

	if err := cfg.Validate(); err != nil {
		log.Error("config not usable", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	log.Info("bookcal starting",
		"config_path", flags.configPath,
		"out_dir", cfg.Feeds.OutDir,
		"properties", len(cfg.Properties),
		"split_days", cfg.Feeds.SplitDays,
		"refresh", cfg.Feeds.RefreshCron,
		"once", flags.once,
	)

	gen := &feed.Generator{
		Source: bookster.New(bookster.Config{
			BaseURL:      cfg.API.BaseURL,
			BookingsPath: cfg.API.BookingsPath,
			APIKey:       cfg.API.Key,
			Timeout:      cfg.API.Timeout(),
			MaxRetries:   cfg.API.MaxRetries,
		}),
		Normalizer: booking.NewNormalizer(booking.Options{
			MissingBalanceIsZero: cfg.Normalizer.MissingBalanceIsZero,
			ExtrasAllowList:      cfg.Normalizer.ExtrasAllowList,
		}),
		Renderer: &feed.Renderer{
			LinkTemplate:  cfg.Feeds.BookingLink,
			PropertyCodes: cfg.PropertyCodes(),
		},
		OutDir:            cfg.Feeds.OutDir,
		SplitDays:         cfg.Feeds.SplitDays,
		WriteEmptyOnError: cfg.Feeds.WriteEmptyOnError,
		WriteIndex:        cfg.Feeds.WriteIndex,
	}

	properties := make([]feed.Property, 0, len(cfg.Properties))
	for _, p := range cfg.Properties {
		properties = append(properties, feed.Property{ID: p.ID, Name: p.Name})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	run := func() bool {
		written, errs := gen.Run(ctx, properties)
		for _, err := range errs {
			log.Error("generation error", err)
		}
		log.Info("generation pass complete", "written", len(written), "errors", len(errs))
		return len(errs) == 0
	}

	if flags.once {
		if !run() {
			os.Exit(1)
		}
		return
	}

	// Daemon mode: regenerate on the cron schedule, with one pass up
	// front so fresh deployments have feeds immediately.
	run()

	sched := cron.New()
	if _, err := sched.AddFunc(cfg.Feeds.RefreshCron, func() { run() }); err != nil {
		log.Error("invalid refresh schedule", err, "refresh", cfg.Feeds.RefreshCron)
		os.Exit(1)
	}
	sched.Start()
	defer sched.Stop()

	if cfg.Listen != "" {
		srv := web.NewServer(cfg)
		go func() {
			if err := srv.Run(ctx); err != nil {
				log.Error("feed server stopped", err)
				cancel()
			}
		}()
	}

	<-ctx.Done()
	log.Info("bookcal exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/bookcal/config.yaml", "Path to config file")
	flag.StringVar(&cfg.outDir, "out", "", "Output directory (overrides config if set)")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address for the feed server (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Run one generation pass and exit")
	flag.BoolVar(&cfg.splitDays, "split-days", false, "Emit one event per stay day (overrides config if set)")

	flag.Parse()

	return cfg
}
