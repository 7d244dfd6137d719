package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/rivo/tview"
	"github.com/veloxcase/veloxcase-tui/internal/api"
	"github.com/veloxcase/veloxcase-tui/internal/logger"
	"github.com/veloxcase/veloxcase-tui/internal/shell"
)

const defaultMarkdownWidth = 60

// renderMarkdown renders md with glamour and converts the ANSI output to
// tview color tags. On renderer failure the escaped source is returned.
func renderMarkdown(md string, theme shell.Theme, width int) string {
	if width <= 0 {
		width = defaultMarkdownWidth
	}
	style := "dark"
	if theme == shell.ThemeLight {
		style = "light"
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		logger.ErrorWithErr(err, "tui.markdown: renderer")
		return tview.Escape(md)
	}
	out, err := renderer.Render(md)
	if err != nil {
		logger.ErrorWithErr(err, "tui.markdown: render")
		return tview.Escape(md)
	}
	return tview.TranslateANSI(strings.Trim(out, "\n"))
}

// previewMarkdown is the card shown under the issue input.
func previewMarkdown(p api.IssuePreview) string {
	var b strings.Builder
	fmt.Fprintf(&b, "### %s\n\n", escapeMarkdown(p.Key))
	if p.Summary != "" {
		fmt.Fprintf(&b, "**%s**\n\n", escapeMarkdown(p.Summary))
	}
	if p.Status != "" {
		fmt.Fprintf(&b, "Status: `%s`\n", p.Status)
	}
	return b.String()
}

// contactMarkdown explains how to get a password reset.
func contactMarkdown(contact string) string {
	return fmt.Sprintf(`## Forgot your password?

Passwords are reset by hand. Write to the developer from the address you
registered with and include your username:

- **Contact:** %s

You can keep using the app once you receive the new password.
`, contact)
}

var markdownEscaper = strings.NewReplacer(
	`*`, `\*`,
	`_`, `\_`,
	"`", "\\`",
	`#`, `\#`,
	`[`, `\[`,
	`]`, `\]`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
