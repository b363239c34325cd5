package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fwojciec/sitegen"
)

// Files the model may not delete; the build depends on them.
var protectedFiles = map[string]bool{
	"package.json":   true,
	"index.html":     true,
	"vite.config.js": true,
	"src/main.js":    true,
}

type deleteArgs struct {
	Path string `json:"path"`
}

// DeleteFileTool returns the tool definition for delete_file.
func DeleteFileTool() sitegen.Tool {
	return sitegen.Tool{
		Name:        "delete_file",
		Description: "Delete a file from the project. Build-critical files cannot be deleted.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"path": {
					"type": "string",
					"description": "File path relative to the project root"
				}
			},
			"required": ["path"]
		}`),
	}
}

func (e *Executor) deleteFile(_ context.Context, args json.RawMessage) (*sitegen.ToolResult, error) {
	var a deleteArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return domainError(fmt.Sprintf("invalid arguments: %s", err)), nil
	}
	path, err := resolve(e.root, a.Path)
	if err != nil {
		return domainError(err.Error()), nil
	}
	if protectedFiles[a.Path] {
		return domainError(fmt.Sprintf("%s is required by the build and cannot be deleted", a.Path)), nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return domainError(fmt.Sprintf("failed to stat file: %s", err)), nil
	}
	if info.IsDir() {
		return domainError(fmt.Sprintf("%s is a directory", a.Path)), nil
	}
	if err := os.Remove(path); err != nil {
		return domainError(fmt.Sprintf("failed to delete file: %s", err)), nil
	}
	return textResult(fmt.Sprintf("deleted %s", a.Path)), nil
}
