package main

import (
	"context"
	"os"

	"github.com/hackgods/mindcare/internal/app"
	"github.com/hackgods/mindcare/internal/cli"
	"github.com/hackgods/mindcare/internal/config"
	"github.com/hackgods/mindcare/internal/logging"
)

func main() {
	if err := cli.NewRootCommand(load).Execute(); err != nil {
		os.Exit(1)
	}
}

func load(ctx context.Context) (*cli.Env, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger := logging.New(cfg.Env)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}

	env := &cli.Env{
		Migrator:     a.Migrator,
		Reminders:    a.Reminders,
		Scheduler:    a.Scheduler,
		Dispatcher:   a.Dispatcher,
		Directory:    a.Directory,
		Dispatch:     a.DispatchOptions(),
		Location:     cfg.ClinicTimezone,
		SlotDuration: cfg.SlotDuration,
	}
	release := func() {
		a.Close()
		_ = logger.Sync()
	}
	return env, release, nil
}
