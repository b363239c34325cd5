package mock

import (
	"context"

	"github.com/fwojciec/sitegen"
)

// Interface compliance checks.
var (
	_ sitegen.CodeParser     = (*CodeParser)(nil)
	_ sitegen.ArtifactWriter = (*ArtifactWriter)(nil)
	_ sitegen.ProjectBuilder = (*ProjectBuilder)(nil)
)

// CodeParser is a test double for sitegen.CodeParser.
type CodeParser struct {
	ParseFn func(text string, format sitegen.Format) (sitegen.Artifact, error)
}

// Parse delegates to ParseFn.
func (p *CodeParser) Parse(text string, format sitegen.Format) (sitegen.Artifact, error) {
	return p.ParseFn(text, format)
}

// ArtifactWriter is a test double for sitegen.ArtifactWriter.
type ArtifactWriter struct {
	WriteFn func(ctx context.Context, artifact sitegen.Artifact, format sitegen.Format, ownerID int64) (string, error)
}

// Write delegates to WriteFn.
func (w *ArtifactWriter) Write(ctx context.Context, artifact sitegen.Artifact, format sitegen.Format, ownerID int64) (string, error) {
	return w.WriteFn(ctx, artifact, format, ownerID)
}

// ProjectBuilder is a test double for sitegen.ProjectBuilder.
type ProjectBuilder struct {
	BuildFn func(ctx context.Context, path string) sitegen.BuildOutcome
}

// Build delegates to BuildFn.
func (b *ProjectBuilder) Build(ctx context.Context, path string) sitegen.BuildOutcome {
	return b.BuildFn(ctx, path)
}
