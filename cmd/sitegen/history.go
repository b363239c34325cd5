package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/fwojciec/sitegen"
	"github.com/fwojciec/sitegen/config"
	"github.com/fwojciec/sitegen/redis"
)

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:   "history",
		Usage:  "Print the recorded transcript for an owner",
		Flags:  []cli.Flag{ownerFlag, noColorFlag},
		Action: historyAction,
	}
}

func historyAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if cfg.History.Backend != config.HistoryRedis {
		return fmt.Errorf("history backend is %q, not redis: %w", cfg.History.Backend, sitegen.ErrConfiguration)
	}
	sink, err := redis.New(redis.Config{URL: cfg.History.URL, Prefix: cfg.History.Prefix, Retries: cfg.History.Retries})
	if err != nil {
		return err
	}
	defer sink.Close()

	owner := c.Int64("owner")
	records, err := sink.Records(c.Context, owner)
	if err != nil {
		return err
	}
	r := newRenderer(os.Stdout, newStyles(sitegen.DefaultTheme(), !c.Bool("no-color")))
	if len(records) == 0 {
		r.Status("no history for owner %d", owner)
		return nil
	}
	for _, rec := range records {
		r.Record(rec)
	}
	return nil
}
