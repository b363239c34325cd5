package exec

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/x/ansi"
)

// Limits applied to build output quoted in a failure reason.
const (
	DefaultMaxLines = 40
	DefaultMaxBytes = 8 * 1024
	rollingBufSize  = 4 * DefaultMaxBytes
)

// OutputCollector is an io.Writer keeping the last maxBuf bytes of combined
// process output plus a total line count. It is safe for concurrent use.
type OutputCollector struct {
	mu            sync.Mutex
	buf           []byte
	total         int64
	totalNewlines int
	maxBuf        int
}

// NewOutputCollector creates a collector with a rolling buffer of maxBuf bytes.
func NewOutputCollector(maxBuf int) *OutputCollector {
	return &OutputCollector{maxBuf: maxBuf}
}

// Write implements io.Writer and never fails.
func (c *OutputCollector) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.total += int64(len(p))
	c.totalNewlines += bytes.Count(p, []byte{'\n'})
	c.buf = append(c.buf, p...)
	if len(c.buf) > c.maxBuf {
		// Copy to release the old backing array.
		trimmed := make([]byte, c.maxBuf)
		copy(trimmed, c.buf[len(c.buf)-c.maxBuf:])
		c.buf = trimmed
	}
	return len(p), nil
}

// Bytes returns a copy of the rolling buffer.
func (c *OutputCollector) Bytes() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.buf...)
}

// TotalBytes returns the number of bytes ever written.
func (c *OutputCollector) TotalBytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// TotalNewlines returns the number of newlines ever written.
func (c *OutputCollector) TotalNewlines() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalNewlines
}

// processOutput renders the tail of collected output for a failure reason.
func processOutput(c *OutputCollector) string {
	raw := string(c.Bytes())
	content, truncated := TruncateTail(Sanitize(raw), DefaultMaxLines, DefaultMaxBytes)
	content = strings.TrimRight(content, "\n")
	if truncated {
		content = fmt.Sprintf("[last %d of %d lines]\n%s",
			strings.Count(content, "\n")+1, c.TotalNewlines(), content)
	}
	return content
}

// Sanitize strips ANSI escapes and control characters other than tab and
// newline. CRLF becomes LF; a lone CR overwrites the line from column 0 the
// way npm's progress output renders in a terminal.
func Sanitize(s string) string {
	s = ansi.Strip(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = sanitizeLine(line)
	}
	return strings.Join(lines, "\n")
}

func sanitizeLine(line string) string {
	var buf []rune
	col := 0
	for _, r := range line {
		switch {
		case r == '\r':
			col = 0
		case r == '\t' || r > 0x1F:
			if col < len(buf) {
				buf[col] = r
			} else {
				buf = append(buf, r)
			}
			col++
		}
	}
	return string(buf)
}

// TruncateTail keeps the last maxLines lines of s, then the last maxBytes
// bytes of those, and reports whether anything was dropped.
func TruncateTail(s string, maxLines, maxBytes int) (string, bool) {
	truncated := false
	trailing := strings.HasSuffix(s, "\n")
	lines := strings.Split(strings.TrimSuffix(s, "\n"), "\n")
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
		truncated = true
	}
	out := strings.Join(lines, "\n")
	if trailing {
		out += "\n"
	}
	if len(out) > maxBytes {
		out = out[len(out)-maxBytes:]
		// Drop the partial first line.
		if i := strings.IndexByte(out, '\n'); i >= 0 && i < len(out)-1 {
			out = out[i+1:]
		}
		truncated = true
	}
	return out, truncated
}
