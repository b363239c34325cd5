package builtin

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fwojciec/sitegen"
)

type readArgs struct {
	Path   string `json:"path"`
	Offset int    `json:"offset"` // 1-based line number to start from
	Limit  int    `json:"limit"`
}

// ReadFileTool returns the tool definition for read_file.
func ReadFileTool() sitegen.Tool {
	return sitegen.Tool{
		Name:        "read_file",
		Description: "Read a project file with line numbers, optionally from a line offset with a line limit.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"path": {
					"type": "string",
					"description": "File path relative to the project root"
				},
				"offset": {
					"type": "integer",
					"description": "Line number to start reading from (1-based)"
				},
				"limit": {
					"type": "integer",
					"description": "Maximum number of lines to read"
				}
			},
			"required": ["path"]
		}`),
	}
}

func (e *Executor) readFile(_ context.Context, args json.RawMessage) (*sitegen.ToolResult, error) {
	var a readArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return domainError(fmt.Sprintf("invalid arguments: %s", err)), nil
	}
	path, err := resolve(e.root, a.Path)
	if err != nil {
		return domainError(err.Error()), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return domainError(fmt.Sprintf("failed to open file: %s", err)), nil
	}
	defer f.Close()

	var b strings.Builder
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line, read := 0, 0
	for scanner.Scan() {
		line++
		if a.Offset > 0 && line < a.Offset {
			continue
		}
		if a.Limit > 0 && read >= a.Limit {
			break
		}
		fmt.Fprintf(&b, "%d\t%s\n", line, scanner.Text())
		read++
	}
	if err := scanner.Err(); err != nil {
		return domainError(fmt.Sprintf("error reading file: %s", err)), nil
	}
	if read == 0 {
		return textResult("(empty)"), nil
	}
	return textResult(b.String()), nil
}
