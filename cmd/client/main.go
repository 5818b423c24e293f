package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/tagzilla/internal/app"
	"github.com/dmitrijs2005/tagzilla/internal/buildinfo"
	"github.com/dmitrijs2005/tagzilla/internal/client/cli"
	"github.com/dmitrijs2005/tagzilla/internal/config"
	"github.com/dmitrijs2005/tagzilla/internal/logging"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()

	// logs go to stderr so they don't mix with REPL output
	logger := logging.New(cfg.LogLevel, "text", os.Stderr)

	a, err := app.NewApp(ctx, cfg, app.WithLogger(logger))
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer a.Close()

	if err := <-a.Open(ctx); err != nil {
		log.Printf("storage unavailable: %v", err)
		return
	}

	cli.NewApp(a.Service()).Root(ctx)
}
