package sitegen

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Format selects how generated output is parsed and persisted.
// The string value doubles as the on-disk directory prefix.
type Format string

const (
	FormatSingleFile  Format = "html"
	FormatMultiFile   Format = "multi_file"
	FormatToolProject Format = "vue_project"
)

// Formats lists every supported format in a stable order.
func Formats() []Format {
	return []Format{FormatSingleFile, FormatMultiFile, FormatToolProject}
}

// Valid reports whether f is one of the supported formats.
func (f Format) Valid() bool {
	switch f {
	case FormatSingleFile, FormatMultiFile, FormatToolProject:
		return true
	default:
		return false
	}
}

// ParseFormat converts a user-supplied string into a Format.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.TrimSpace(s))
	if !f.Valid() {
		return "", fmt.Errorf("unsupported format %q: %w", s, ErrConfiguration)
	}
	return f, nil
}

// TargetName is the directory name owned by (format, ownerID). It is a pure
// function: regenerating for the same owner and format reuses the same name.
func TargetName(format Format, ownerID int64) string {
	return string(format) + "_" + strconv.FormatInt(ownerID, 10)
}

// TargetDir joins root and TargetName.
func TargetDir(root string, format Format, ownerID int64) string {
	return filepath.Join(root, TargetName(format, ownerID))
}
