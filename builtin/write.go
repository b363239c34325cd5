package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fwojciec/sitegen"
)

type writeArgs struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// WriteFileTool returns the tool definition for write_file.
func WriteFileTool() sitegen.Tool {
	return sitegen.Tool{
		Name:        "write_file",
		Description: "Write a file in the project, creating parent directories and overwriting existing content.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"path": {
					"type": "string",
					"description": "File path relative to the project root, e.g. src/pages/HomeView.vue"
				},
				"content": {
					"type": "string",
					"description": "Complete file content"
				}
			},
			"required": ["path", "content"]
		}`),
	}
}

func (e *Executor) writeFile(_ context.Context, args json.RawMessage) (*sitegen.ToolResult, error) {
	var a writeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return domainError(fmt.Sprintf("invalid arguments: %s", err)), nil
	}
	path, err := resolve(e.root, a.Path)
	if err != nil {
		return domainError(err.Error()), nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return domainError(fmt.Sprintf("failed to create directories: %s", err)), nil
	}
	if err := os.WriteFile(path, []byte(a.Content), 0o644); err != nil {
		return domainError(fmt.Sprintf("failed to write file: %s", err)), nil
	}
	return textResult(fmt.Sprintf("wrote %d bytes to %s", len(a.Content), a.Path)), nil
}
