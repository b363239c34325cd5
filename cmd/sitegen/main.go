// Command sitegen serves and drives AI site generation.
//
// Usage:
//
//	sitegen [--config sitegen.yaml] serve
//	sitegen generate --owner 42 --format html "a landing page for a bakery"
//	sitegen stop --owner 42
//	sitegen history --owner 42
//
// API keys fall back to ANTHROPIC_API_KEY or GEMINI_API_KEY when neither the
// config file nor --api-key sets one.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "sitegen",
		Usage: "Generate websites from prompts with streaming AI output",
		Flags: globalFlags(),
		Commands: []*cli.Command{
			serveCommand(),
			generateCommand(),
			stopCommand(),
			historyCommand(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "sitegen: %v\n", err)
		os.Exit(1)
	}
}
