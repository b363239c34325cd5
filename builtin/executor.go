package builtin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fwojciec/sitegen"
)

// Compile-time interface check.
var _ sitegen.ToolExecutor = (*Executor)(nil)

// Executor dispatches tool calls to the project tools. All tools of one
// Executor share its root directory.
type Executor struct {
	root string
}

// New creates an Executor confined to root, the owner's project directory.
func New(root string) *Executor {
	return &Executor{root: root}
}

// Root returns the project directory.
func (e *Executor) Root() string { return e.root }

// Execute dispatches a tool call by name. Unknown tool names return an
// IsError result so the model can self-correct.
func (e *Executor) Execute(ctx context.Context, name string, args json.RawMessage) (*sitegen.ToolResult, error) {
	switch name {
	case "write_file":
		return e.writeFile(ctx, args)
	case "read_file":
		return e.readFile(ctx, args)
	case "edit_file":
		return e.editFile(ctx, args)
	case "delete_file":
		return e.deleteFile(ctx, args)
	case "list_files":
		return e.listFiles(ctx, args)
	case "copy_template":
		return e.copyTemplate(ctx, args)
	default:
		return domainError(fmt.Sprintf("unknown tool: %s", name)), nil
	}
}

// Tools returns the tool definitions for all project tools.
func (e *Executor) Tools() []sitegen.Tool {
	return []sitegen.Tool{
		CopyTemplateTool(),
		WriteFileTool(),
		ReadFileTool(),
		EditFileTool(),
		DeleteFileTool(),
		ListFilesTool(),
	}
}
