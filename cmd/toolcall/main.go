package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cryptoanalyst-api/internal/config"
	"cryptoanalyst-api/internal/svc"
	"cryptoanalyst-api/internal/tools"
)

func main() {
	configFile := flag.String("f", "etc/cryptoanalyst.yaml", "the config file")
	list := flag.Bool("list", false, "print the tool catalogue as OpenAI tool definitions")
	name := flag.String("tool", "", "tool to call, for example get_price_quotes")
	args := flag.String("args", "{}", "JSON arguments for the tool")
	timeout := flag.Duration("timeout", time.Minute, "overall timeout for the call")
	flag.Parse()

	if *list {
		printJSON(tools.Definitions())
		return
	}
	if *name == "" {
		fmt.Fprintln(os.Stderr, "usage: toolcall -list | -tool <name> [-args '{...}']")
		os.Exit(2)
	}
	if _, err := tools.Lookup(*name); err != nil {
		log.Fatalf("[main] %v", err)
	}
	if !json.Valid([]byte(*args)) {
		log.Fatalf("[main] -args is not valid JSON: %s", *args)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("[main] Failed to load config %s: %v", *configFile, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	svcCtx, err := svc.New(ctx, *cfg)
	if err != nil {
		log.Fatalf("[main] Failed to build services: %v", err)
	}

	log.Printf("[main] Calling %s with %s", *name, *args)
	result := tools.NewDispatcher(svcCtx).Dispatch(ctx, *name, *args)
	printJSON(result)
	if _, failed := result.(tools.ErrorResult); failed {
		os.Exit(1)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Fatalf("[main] encode output: %v", err)
	}
}
