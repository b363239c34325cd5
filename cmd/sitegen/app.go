package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/fwojciec/sitegen"
	"github.com/fwojciec/sitegen/anthropic"
	"github.com/fwojciec/sitegen/builtin"
	"github.com/fwojciec/sitegen/config"
	"github.com/fwojciec/sitegen/exec"
	"github.com/fwojciec/sitegen/fs"
	"github.com/fwojciec/sitegen/gemini"
	"github.com/fwojciec/sitegen/generate"
	"github.com/fwojciec/sitegen/goldmark"
	sitegenjson "github.com/fwojciec/sitegen/json"
	"github.com/fwojciec/sitegen/log"
	"github.com/fwojciec/sitegen/redis"
	"github.com/fwojciec/sitegen/s3"
	"github.com/fwojciec/sitegen/session"
)

// loadConfig reads the config file, applies flag overrides and fills the
// API key from the environment. Commands that talk to a provider validate
// the result.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}
	if v := c.String("output"); v != "" {
		cfg.Output.Root = v
	}
	if v := c.String("model"); v != "" {
		cfg.Provider.Model = v
	}
	if v := c.String("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if err := resolveProvider(&cfg.Provider, c.String("provider"), c.String("api-key"),
		os.Getenv("ANTHROPIC_API_KEY"), os.Getenv("GEMINI_API_KEY")); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// resolveProvider applies the provider flag and picks the API key. An
// explicit flag wins over the config file, which wins over the environment.
// All env var values are passed in as parameters.
func resolveProvider(p *config.ProviderConfig, providerFlag, apiKeyFlag, anthropicEnvKey, geminiEnvKey string) error {
	if providerFlag != "" {
		p.Name = providerFlag
	}
	if apiKeyFlag != "" {
		p.APIKey = apiKeyFlag
	}
	switch p.Name {
	case config.ProviderAnthropic:
		if p.APIKey == "" {
			p.APIKey = anthropicEnvKey
		}
	case config.ProviderGemini:
		if p.APIKey == "" {
			p.APIKey = geminiEnvKey
		}
	default:
		return fmt.Errorf("unknown provider %q: must be \"anthropic\" or \"gemini\": %w", p.Name, sitegen.ErrConfiguration)
	}
	return nil
}

// newProvider constructs the generation client.
func newProvider(ctx context.Context, p config.ProviderConfig) (sitegen.Provider, error) {
	switch p.Name {
	case config.ProviderAnthropic:
		return anthropic.New(p.APIKey,
			anthropic.WithModel(p.Model),
			anthropic.WithTimeout(p.Timeout.Duration),
		), nil
	case config.ProviderGemini:
		client, err := gemini.New(ctx, p.APIKey,
			gemini.WithModel(p.Model),
			gemini.WithTimeout(p.Timeout.Duration),
		)
		if err != nil {
			return nil, fmt.Errorf("gemini: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown provider %q: %w", p.Name, sitegen.ErrConfiguration)
	}
}

// newWriter picks the artifact backend.
func newWriter(ctx context.Context, o config.OutputConfig) (sitegen.ArtifactWriter, error) {
	switch o.Backend {
	case config.OutputS3:
		w, err := s3.New(ctx, s3.Config{
			Bucket:       o.S3.Bucket,
			Prefix:       o.S3.Prefix,
			Region:       o.S3.Region,
			Endpoint:     o.S3.Endpoint,
			UsePathStyle: o.S3.PathStyle,
		})
		if err != nil {
			return nil, err
		}
		return w, nil
	default:
		return fs.NewWriter(o.Root), nil
	}
}

// newHistory picks the transcript sink. The returned close func is never
// nil.
func newHistory(h config.HistoryConfig) (sitegen.HistorySink, func() error, error) {
	if h.Backend != config.HistoryRedis {
		return sitegen.NopHistorySink{}, func() error { return nil }, nil
	}
	sink, err := redis.New(redis.Config{URL: h.URL, Prefix: h.Prefix, Retries: h.Retries})
	if err != nil {
		return nil, nil, err
	}
	return sink, sink.Close, nil
}

// toolset exposes the built-in project tools rooted at one owner's
// directory.
func toolset(dir string) (sitegen.ToolExecutor, []sitegen.Tool) {
	e := builtin.New(dir)
	return e, e.Tools()
}

// app holds the wired dependencies of a command.
type app struct {
	config     *config.Config
	logger     *log.Logger
	dispatcher *generate.Dispatcher
	closers    []func() error
}

// newApp validates cfg and wires the dispatcher with every configured
// backend.
func newApp(ctx context.Context, cfg *config.Config, logger *log.Logger) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	provider, err := newProvider(ctx, cfg.Provider)
	if err != nil {
		return nil, err
	}
	writer, err := newWriter(ctx, cfg.Output)
	if err != nil {
		return nil, err
	}
	history, closeHistory, err := newHistory(cfg.History)
	if err != nil {
		return nil, err
	}

	opts := []generate.Option{
		generate.WithParser(goldmark.NewParser()),
		generate.WithWriter(writer),
		generate.WithHistory(history),
		generate.WithToolset(cfg.Output.Root, toolset),
		generate.WithLogger(logger),
		generate.WithModel(cfg.Provider.Model),
		generate.WithMaxTokens(cfg.Provider.MaxTokens),
	}
	if cfg.Build.Enabled {
		opts = append(opts, generate.WithBuilder(exec.NewProjectBuilder(
			exec.WithNPM(cfg.Build.NPM),
			exec.WithTimeout(cfg.Build.Timeout.Duration),
		)))
	}
	if cfg.Memory.Dir != "" && cfg.Memory.MaxMessages > 0 {
		opts = append(opts,
			generate.WithMemory(sitegenjson.NewMemoryStore(cfg.Memory.Dir)),
			generate.WithWindow(cfg.Memory.MaxMessages),
		)
	}

	return &app{
		config:     cfg,
		logger:     logger,
		dispatcher: generate.NewDispatcher(provider, session.NewRegistry(), opts...),
		closers:    []func() error{closeHistory},
	}, nil
}

// Close shuts down the dispatcher and releases backends.
func (a *app) Close(ctx context.Context) error {
	errs := []error{a.dispatcher.Shutdown(ctx)}
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	_ = a.logger.Sync()
	return errors.Join(errs...)
}
