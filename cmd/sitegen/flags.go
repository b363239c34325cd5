package main

import (
	"github.com/urfave/cli/v2"
)

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to sitegen.yaml (defaults apply when omitted)",
			EnvVars: []string{"SITEGEN_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "provider",
			Usage: "Provider: anthropic, gemini (overrides config)",
		},
		&cli.StringFlag{
			Name:  "api-key",
			Usage: "API key (overrides config and environment)",
		},
		&cli.StringFlag{
			Name:  "model",
			Usage: "Model ID (provider-specific)",
		},
		&cli.StringFlag{
			Name:  "output",
			Usage: "Local output root (overrides config)",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
		},
	}
}

var (
	ownerFlag = &cli.Int64Flag{
		Name:     "owner",
		Aliases:  []string{"app"},
		Usage:    "Owner (app) id",
		Required: true,
	}

	serverFlag = &cli.StringFlag{
		Name:    "server",
		Usage:   "Base URL of a running sitegen server",
		EnvVars: []string{"SITEGEN_SERVER"},
	}

	noColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output",
	}
)
