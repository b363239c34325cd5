package sitegen

import "context"

// Canonical file names.
const (
	SingleFileName = "index.html"
	HTMLFileName   = "index.html"
	CSSFileName    = "style.css"
	JSFileName     = "script.js"
)

// Artifact is a sealed interface for parsed, ready-to-persist output.
type Artifact interface {
	artifact()
}

// SingleFile is one file under a canonical name.
type SingleFile struct {
	Name    string
	Content string
}

func (SingleFile) artifact() {}

// MultiFile maps unique, non-blank file names to contents.
type MultiFile struct {
	Files map[string]string
}

func (MultiFile) artifact() {}

// BuildTrigger is produced for tool projects whose files were written by
// tools during generation. Path is the project directory to build.
type BuildTrigger struct {
	Path string
}

func (BuildTrigger) artifact() {}

var (
	_ Artifact = SingleFile{}
	_ Artifact = MultiFile{}
	_ Artifact = BuildTrigger{}
)

// CodeParser turns the full accumulated text into an Artifact. It performs
// no I/O and is deterministic.
type CodeParser interface {
	Parse(text string, format Format) (Artifact, error)
}

// ArtifactWriter persists an artifact at the deterministic target for
// (format, ownerID) and returns the location written to.
type ArtifactWriter interface {
	Write(ctx context.Context, artifact Artifact, format Format, ownerID int64) (string, error)
}

// BuildOutcome is the result of a post-process build.
type BuildOutcome struct {
	OK        bool
	Reason    string // failure reason; empty on success
	OutputDir string
}

// ProjectBuilder builds a tool-generated project in place. Failures are
// reported through the outcome, not as errors.
type ProjectBuilder interface {
	Build(ctx context.Context, path string) BuildOutcome
}
