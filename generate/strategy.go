package generate

import (
	"context"
	"fmt"

	"github.com/fwojciec/sitegen"
)

// strategy is one row of the per-format table.
type strategy struct {
	prompt  string
	tools   bool
	persist func(ctx context.Context, w *worker) error
}

// strategies builds the format table once. Formats whose collaborators are
// missing are left out, so Dispatch rejects them before registering.
func (d *Dispatcher) strategies() map[sitegen.Format]strategy {
	table := make(map[sitegen.Format]strategy, 3)
	if d.parser != nil && d.writer != nil {
		for _, f := range []sitegen.Format{sitegen.FormatSingleFile, sitegen.FormatMultiFile} {
			table[f] = strategy{prompt: d.prompt(f), persist: d.saveText}
		}
	}
	if d.toolset != nil && d.projectRoot != "" {
		table[sitegen.FormatToolProject] = strategy{prompt: d.prompt(sitegen.FormatToolProject), tools: true, persist: d.buildProject}
	}
	return table
}

func (d *Dispatcher) prompt(f sitegen.Format) string {
	if p, ok := d.prompts[f]; ok {
		return p
	}
	return SystemPrompt(f)
}

// saveText parses the accumulated text and writes the artifact.
func (d *Dispatcher) saveText(ctx context.Context, w *worker) error {
	artifact, err := d.parser.Parse(w.result.Text, w.req.Format)
	if err != nil {
		return fmt.Errorf("parse %s output: %w", w.req.Format, err)
	}
	target, err := d.writer.Write(ctx, artifact, w.req.Format, w.req.OwnerID)
	if err != nil {
		return fmt.Errorf("save %s output: %w", w.req.Format, err)
	}
	w.result.Artifact, w.result.Target = artifact, target
	w.log.Info("artifact saved", map[string]any{"target": target})
	return nil
}

// buildProject runs the post-process build on the tool-written project.
// Build failures are logged and never fail the session.
func (d *Dispatcher) buildProject(ctx context.Context, w *worker) error {
	dir := w.projectDir()
	w.result.Artifact = sitegen.BuildTrigger{Path: dir}
	w.result.Target = dir
	if d.builder == nil {
		return nil
	}
	outcome := d.builder.Build(ctx, dir)
	w.result.Build = &outcome
	if !outcome.OK {
		w.log.Warn("project build failed", map[string]any{
			"dir":   dir,
			"error": fmt.Errorf("%s: %w", outcome.Reason, sitegen.ErrBuild),
		})
		return nil
	}
	w.log.Info("project built", map[string]any{"output_dir": outcome.OutputDir})
	return nil
}
