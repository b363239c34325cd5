package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fwojciec/sitegen"
)

type editArgs struct {
	Path       string `json:"path"`
	OldString  string `json:"old_string"`
	NewString  string `json:"new_string"`
	ReplaceAll bool   `json:"replace_all"`
}

// EditFileTool returns the tool definition for edit_file.
func EditFileTool() sitegen.Tool {
	return sitegen.Tool{
		Name:        "edit_file",
		Description: "Replace a string in a project file. Fails if old_string is not unique unless replace_all is true.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"path": {
					"type": "string",
					"description": "File path relative to the project root"
				},
				"old_string": {
					"type": "string",
					"description": "The exact string to find"
				},
				"new_string": {
					"type": "string",
					"description": "The replacement string"
				},
				"replace_all": {
					"type": "boolean",
					"description": "Replace every occurrence instead of requiring a unique match"
				}
			},
			"required": ["path", "old_string", "new_string"]
		}`),
	}
}

func (e *Executor) editFile(_ context.Context, args json.RawMessage) (*sitegen.ToolResult, error) {
	var a editArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return domainError(fmt.Sprintf("invalid arguments: %s", err)), nil
	}
	path, err := resolve(e.root, a.Path)
	if err != nil {
		return domainError(err.Error()), nil
	}
	if a.OldString == "" {
		return domainError("old_string must not be empty"), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return domainError(fmt.Sprintf("failed to read file: %s", err)), nil
	}
	content := string(data)
	count := strings.Count(content, a.OldString)
	switch {
	case count == 0:
		return domainError(fmt.Sprintf("old_string not found in %s", a.Path)), nil
	case count > 1 && !a.ReplaceAll:
		return domainError(fmt.Sprintf("old_string found %d times in %s; use replace_all to replace all occurrences", count, a.Path)), nil
	}

	n := 1
	if a.ReplaceAll {
		n = -1
	}
	if err := os.WriteFile(path, []byte(strings.Replace(content, a.OldString, a.NewString, n)), 0o644); err != nil {
		return domainError(fmt.Sprintf("failed to write file: %s", err)), nil
	}
	if !a.ReplaceAll {
		count = 1
	}
	return textResult(fmt.Sprintf("replaced %d occurrence(s) in %s", count, a.Path)), nil
}
