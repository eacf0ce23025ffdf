package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/plantcare/internal/client/cli"
	"github.com/dmitrijs2005/plantcare/internal/client/config"
	"github.com/dmitrijs2005/plantcare/internal/flagx"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()

	app, err := cli.NewApp(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	args := flagx.StripArgs(os.Args[1:], append(config.Flags, flagx.ConfigFlags...))
	err = cli.Execute(ctx, app, args)
	if cerr := app.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, cli.Describe(err))
		os.Exit(1)
	}

}
