package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	iofs "io/fs"
	"os"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fwojciec/sitegen"
)

// Directories never listed.
var skippedDirs = map[string]bool{
	"node_modules": true,
	"dist":         true,
	".git":         true,
}

type listArgs struct {
	Pattern string `json:"pattern"`
}

// ListFilesTool returns the tool definition for list_files.
func ListFilesTool() sitegen.Tool {
	return sitegen.Tool{
		Name:        "list_files",
		Description: "List project files matching a glob pattern. Supports ** for recursive matching. Defaults to all files.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"pattern": {
					"type": "string",
					"description": "Glob pattern relative to the project root (e.g. src/**/*.vue)"
				}
			}
		}`),
	}
}

func (e *Executor) listFiles(_ context.Context, args json.RawMessage) (*sitegen.ToolResult, error) {
	var a listArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &a); err != nil {
			return domainError(fmt.Sprintf("invalid arguments: %s", err)), nil
		}
	}
	if a.Pattern == "" {
		a.Pattern = "**"
	}
	if !doublestar.ValidatePattern(a.Pattern) {
		return domainError(fmt.Sprintf("invalid glob pattern: %s", a.Pattern)), nil
	}
	if _, err := os.Stat(e.root); err != nil {
		if os.IsNotExist(err) {
			return textResult("project is empty"), nil
		}
		return domainError(fmt.Sprintf("failed to access project: %s", err)), nil
	}

	var matches []string
	err := doublestar.GlobWalk(os.DirFS(e.root), a.Pattern, func(path string, d iofs.DirEntry) error {
		if d.IsDir() {
			return nil
		}
		for _, part := range strings.Split(path, "/") {
			if skippedDirs[part] {
				return nil
			}
		}
		matches = append(matches, path)
		return nil
	})
	if err != nil {
		return domainError(fmt.Sprintf("error matching pattern: %s", err)), nil
	}
	if len(matches) == 0 {
		return textResult("no matches found"), nil
	}
	sort.Strings(matches)
	return textResult(strings.Join(matches, "\n")), nil
}
