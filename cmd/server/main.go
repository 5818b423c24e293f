package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/tagzilla/internal/app"
	"github.com/dmitrijs2005/tagzilla/internal/buildinfo"
	"github.com/dmitrijs2005/tagzilla/internal/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	a, err := app.NewApp(ctx, cfg)

	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := a.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}

}
