// Command dpa-check analyses data processing agreements for Art. 28 GDPR compliance.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/dpa-check/internal/adapters/driving/cli"
	"github.com/custodia-labs/dpa-check/internal/app"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// A .env file is optional; real environment variables take precedence.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx)
	stop()
	os.Exit(code)
}

func run(ctx context.Context) int {
	a, err := app.New(os.Getenv("DPA_CONFIG_DIR"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	cli.SetVersion(version)
	err = cli.Execute(ctx, cli.Dependencies{
		Settings:    a.Settings,
		NewAnalyzer: a.NewAnalyzer,
		Prompts:     a.Prompts,
	})
	if err != nil {
		return 1
	}
	return 0
}
