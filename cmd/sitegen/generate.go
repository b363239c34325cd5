package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/fwojciec/sitegen"
	"github.com/fwojciec/sitegen/generate"
	sitegenhttp "github.com/fwojciec/sitegen/http"
	"github.com/fwojciec/sitegen/log"
)

func generateCommand() *cli.Command {
	return &cli.Command{
		Name:      "generate",
		Usage:     "Generate a site and print the stream",
		ArgsUsage: "<prompt>",
		Flags: []cli.Flag{
			ownerFlag,
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: html, multi_file, vue_project",
				Value:   string(sitegen.FormatSingleFile),
			},
			serverFlag,
			noColorFlag,
		},
		Action: generateAction,
	}
}

func generateAction(c *cli.Context) error {
	prompt := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if prompt == "" {
		return cli.Exit("a prompt is required", 1)
	}
	format, err := sitegen.ParseFormat(c.String("format"))
	if err != nil {
		return err
	}
	r := newRenderer(os.Stdout, newStyles(sitegen.DefaultTheme(), !c.Bool("no-color")))

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	if server := c.String("server"); server != "" {
		return generateRemote(ctx, sitegenhttp.NewClient(server), r, c.Int64("owner"), prompt, format)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, log.NewStderr(cfg.Log.Level))
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration)
		defer cancel()
		_ = a.Close(closeCtx)
	}()
	return generateLocal(ctx, a.dispatcher, r, sitegen.GenerationRequest{
		OwnerID: c.Int64("owner"),
		Prompt:  prompt,
		Format:  format,
	})
}

// generateLocal runs one session in-process. Interrupting closes the
// stream, which cancels the session.
func generateLocal(ctx context.Context, d *generate.Dispatcher, r *renderer, req sitegen.GenerationRequest) error {
	start := time.Now()
	stream, err := d.Dispatch(ctx, req)
	if err != nil {
		return err
	}

	events, interrupted := stream.Events(), ctx.Done()
	for events != nil {
		select {
		case <-interrupted:
			stream.Close()
			interrupted = nil
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			r.Event(ev)
		}
	}

	res := stream.Result()
	r.Status("%s in %s", res.State, time.Since(start).Round(time.Millisecond))
	if res.Target != "" {
		r.Status("written to %s", res.Target)
	}
	if res.Build != nil {
		if res.Build.OK {
			r.Status("built into %s", res.Build.OutputDir)
		} else {
			r.Status("build failed: %s", res.Build.Reason)
		}
	}
	return res.Err
}

// generateRemote streams one session from a running server.
func generateRemote(ctx context.Context, client *sitegenhttp.Client, r *renderer, owner int64, prompt string, format sitegen.Format) error {
	events, err := client.Generate(ctx, owner, prompt, format)
	if err != nil {
		return err
	}
	defer events.Close()

	for {
		ev, err := events.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				r.Status("interrupted")
				return nil
			}
			return fmt.Errorf("read stream: %w", err)
		}
		r.Event(ev)
		if e, ok := ev.(sitegen.WireError); ok {
			return fmt.Errorf("generation failed: %s: %w", e.Message, sitegen.ErrUpstream)
		}
	}
}
