// Package main implements the labmanager server, the HTTP backend for
// sample intake, result sheets, report issuance and the activity ledger.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/atlaslab/labmanager/internal/app/runtime"
)

func main() {
	// Values from a .env file never override the real environment.
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to YAML configuration file")
	flag.Parse()

	if *configPath == "" {
		*configPath = os.Getenv("LAB_CONFIG")
	}

	app, err := runtime.NewApplication(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "labmanager: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "labmanager: %v\n", err)
		os.Exit(1)
	}

	if err := app.Shutdown(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "labmanager: shutdown: %v\n", err)
		os.Exit(1)
	}
}
