package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"cryptoanalyst-api/internal/cli"
	"cryptoanalyst-api/internal/config"
	"cryptoanalyst-api/internal/svc"
	"cryptoanalyst-api/internal/sweep"
)

const shutdownTimeout = 30 * time.Second // Grace period for an in-flight sweep

var (
	configFile = flag.String("f", "etc/cryptoanalyst.yaml", "the config file")
	runOnce    = flag.Bool("once", false, "run a single sweep and exit")
)

func main() {
	flag.Parse()
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Println("[main] Starting alert sweeper...")

	appCfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("[main] Failed to load config %s: %v", *configFile, err)
	}

	log.Printf("[main] Configuration loaded:")
	for _, line := range cli.ConfigSummaryLines(appCfg) {
		log.Printf("  - %s", line)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svcCtx, err := svc.New(ctx, *appCfg)
	if err != nil {
		log.Fatalf("[main] Failed to build services: %v", err)
	}
	if svcCtx.Recorder == nil {
		log.Printf("[main] Alert history disabled (no Recorder.DSN)")
	}

	sweeper := sweep.New(svcCtx.Store, svcCtx.Alerts, appCfg.Alerts.Currency,
		time.Duration(appCfg.Alerts.UserTimeout)*time.Second)

	if *runOnce {
		res, err := sweeper.Run(ctx)
		if err != nil {
			log.Fatalf("[main] Sweep failed: %v", err)
		}
		log.Printf("[main] Sweep done: users=%d evaluated=%d triggered=%d failed=%d",
			res.Users, res.Evaluated, res.Triggered, res.Failed)
		return
	}

	scheduler := cron.New()
	if _, err := sweeper.Schedule(ctx, scheduler, appCfg.Alerts.Schedule); err != nil {
		log.Fatalf("[main] Invalid schedule %q: %v", appCfg.Alerts.Schedule, err)
	}
	scheduler.Start()
	log.Printf("[main] Alert sweeper started (schedule=%s). Press Ctrl+C to stop.", appCfg.Alerts.Schedule)

	<-ctx.Done()
	log.Println("[main] Shutdown signal received, stopping scheduler...")

	stopped := scheduler.Stop()
	select {
	case <-stopped.Done():
		log.Println("[main] Scheduler stopped cleanly")
	case <-time.After(shutdownTimeout):
		log.Println("[main] Shutdown timeout exceeded, forcing exit")
	}
}
