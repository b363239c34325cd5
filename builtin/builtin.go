// Package builtin provides the file tools a model uses to assemble a tool
// project. Every tool is confined to one project directory.
package builtin

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fwojciec/sitegen"
)

func domainError(msg string) *sitegen.ToolResult {
	return &sitegen.ToolResult{
		Content: []sitegen.ContentBlock{sitegen.TextBlock{Text: msg}},
		IsError: true,
	}
}

func textResult(text string) *sitegen.ToolResult {
	return &sitegen.ToolResult{
		Content: []sitegen.ContentBlock{sitegen.TextBlock{Text: text}},
		IsError: false,
	}
}

// resolve maps a project-relative path to an absolute path under root.
// Absolute paths and paths escaping root are rejected.
func resolve(root, rel string) (string, error) {
	if strings.TrimSpace(rel) == "" {
		return "", fmt.Errorf("path is required")
	}
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("path must be relative to the project: %s", rel)
	}
	clean := filepath.Clean(filepath.FromSlash(rel))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes the project: %s", rel)
	}
	return filepath.Join(root, clean), nil
}
