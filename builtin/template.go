package builtin

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"

	"github.com/fwojciec/sitegen"
)

//go:embed all:template
var templates embed.FS

type copyTemplateArgs struct {
	Template  string `json:"template"`
	TargetDir string `json:"target_dir"`
}

// CopyTemplateTool returns the tool definition for copy_template.
func CopyTemplateTool() sitegen.Tool {
	return sitegen.Tool{
		Name:        "copy_template",
		Description: "Copy a predefined project scaffold into the project. Call this first, then adapt the copied files.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"template": {
					"type": "string",
					"description": "Template name; only 'vue_project' is supported"
				},
				"target_dir": {
					"type": "string",
					"description": "Directory relative to the project root; defaults to the root"
				}
			},
			"required": ["template"]
		}`),
	}
}

func (e *Executor) copyTemplate(_ context.Context, args json.RawMessage) (*sitegen.ToolResult, error) {
	var a copyTemplateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return domainError(fmt.Sprintf("invalid arguments: %s", err)), nil
	}
	if a.Template != string(sitegen.FormatToolProject) {
		return domainError(fmt.Sprintf("unsupported template %q, only %q is available", a.Template, sitegen.FormatToolProject)), nil
	}
	target := e.root
	if a.TargetDir != "" && a.TargetDir != "." {
		var err error
		if target, err = resolve(e.root, a.TargetDir); err != nil {
			return domainError(err.Error()), nil
		}
	}

	n, err := CopyTemplate(a.Template, target)
	if err != nil {
		return domainError(fmt.Sprintf("failed to copy template: %s", err)), nil
	}
	return textResult(fmt.Sprintf("copied %d template files for %s", n, a.Template)), nil
}

// CopyTemplate writes the embedded template into dir, overwriting files that
// already exist, and returns the number of files written.
func CopyTemplate(name, dir string) (int, error) {
	sub, err := iofs.Sub(templates, "template/"+name)
	if err != nil {
		return 0, err
	}
	n := 0
	err = iofs.WalkDir(sub, ".", func(path string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		dst := filepath.Join(dir, filepath.FromSlash(path))
		if d.IsDir() {
			return os.MkdirAll(dst, 0o755)
		}
		data, err := iofs.ReadFile(sub, path)
		if err != nil {
			return err
		}
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return err
		}
		n++
		return nil
	})
	if err != nil {
		return n, err
	}
	if n == 0 {
		return 0, fmt.Errorf("template %q not found", name)
	}
	return n, nil
}
