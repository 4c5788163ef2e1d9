package ui

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/charmbracelet/glamour"
)

var htmlTagRe = regexp.MustCompile(`</?[a-zA-Z][a-zA-Z0-9]*(\s[^>]*)?/?>`)

// LooksLikeHTML reports whether s contains at least one HTML tag.
func LooksLikeHTML(s string) bool {
	return htmlTagRe.MatchString(s)
}

// ToMarkdown converts an HTML description to markdown. Plain text is returned unchanged.
func ToMarkdown(s string) (string, error) {
	if !LooksLikeHTML(s) {
		return s, nil
	}
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	out, err := converter.ConvertString(s)
	if err != nil {
		return "", fmt.Errorf("failed to convert description: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// PlainText strips markup from a description for single-line contexts such as grid cells.
func PlainText(s string) string {
	if converted, err := ToMarkdown(s); err == nil {
		s = converted
	}
	s = strings.NewReplacer("**", "", "__", "", "`", "").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// RenderMarkdownString renders markdown for the terminal at the given wrap width.
func RenderMarkdownString(src string, width int) (string, error) {
	if width <= 0 {
		width = 100
	}
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if colorEnabled {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle("notty"))
	}
	renderer, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", err
	}
	return renderer.Render(src)
}

// RenderMarkdown renders markdown to stdout, falling back to the raw text.
func RenderMarkdown(src string) {
	out, err := RenderMarkdownString(src, 100)
	if err != nil {
		fmt.Fprintln(os.Stdout, src)
		return
	}
	fmt.Fprint(os.Stdout, out)
}
