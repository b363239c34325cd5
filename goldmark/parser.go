// Package goldmark extracts source files from model output by walking the
// fenced code blocks of a goldmark CommonMark parse.
package goldmark

import (
	"fmt"
	"strings"

	"github.com/fwojciec/sitegen"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

var _ sitegen.CodeParser = (*Parser)(nil)

// multiFileNames maps fence info strings to canonical multi-file names.
var multiFileNames = map[string]string{
	"html":       sitegen.HTMLFileName,
	"css":        sitegen.CSSFileName,
	"js":         sitegen.JSFileName,
	"javascript": sitegen.JSFileName,
}

// Parser implements sitegen.CodeParser. It is stateless and safe for
// concurrent use.
type Parser struct {
	md parser.Parser
}

// NewParser creates a Parser using goldmark's default CommonMark parser.
func NewParser() *Parser {
	return &Parser{md: goldmark.DefaultParser()}
}

// Parse extracts the artifact for format from the full accumulated text.
func (p *Parser) Parse(text string, format sitegen.Format) (sitegen.Artifact, error) {
	switch format {
	case sitegen.FormatSingleFile:
		return p.parseSingle(text)
	case sitegen.FormatMultiFile:
		return p.parseMulti(text)
	default:
		return nil, fmt.Errorf("format %q has no code parser: %w", format, sitegen.ErrConfiguration)
	}
}

func (p *Parser) parseSingle(src string) (sitegen.Artifact, error) {
	content := src
	for _, b := range p.blocks(src) {
		if b.lang == "html" {
			content = b.code
			break
		}
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("html content is blank: %w", sitegen.ErrValidation)
	}
	return sitegen.SingleFile{Name: sitegen.SingleFileName, Content: content}, nil
}

func (p *Parser) parseMulti(src string) (sitegen.Artifact, error) {
	files := make(map[string]string)
	for _, b := range p.blocks(src) {
		name, ok := multiFileNames[b.lang]
		if !ok || strings.TrimSpace(b.code) == "" {
			continue
		}
		if _, seen := files[name]; seen {
			continue
		}
		files[name] = b.code
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no html, css or js code blocks found: %w", sitegen.ErrValidation)
	}
	return sitegen.MultiFile{Files: files}, nil
}

type block struct {
	lang string
	code string
}

// blocks returns every fenced code block in document order. The language is
// the lowercased first word of the info string.
func (p *Parser) blocks(src string) []block {
	source := []byte(src)
	doc := p.md.Parse(text.NewReader(source))

	var out []block
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fcb, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		var code strings.Builder
		lines := fcb.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			code.Write(seg.Value(source))
		}
		out = append(out, block{
			lang: strings.ToLower(string(fcb.Language(source))),
			code: code.String(),
		})
		return ast.WalkSkipChildren, nil
	})
	return out
}
