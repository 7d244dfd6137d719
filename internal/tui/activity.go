package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/rivo/tview"
	"github.com/veloxcase/veloxcase-tui/internal/toast"
)

// ActivityLine is one toast rendered for the notifications modal.
type ActivityLine struct {
	Level toast.Level
	Time  time.Time
	Text  string
}

// ActivityLines converts toast history, oldest first, into display lines.
// Loading toasts that were replaced in place appear once, with their final
// level.
func ActivityLines(history []toast.Toast) []ActivityLine {
	lines := make([]ActivityLine, 0, len(history))
	for _, t := range history {
		text := t.Message
		if t.Icon != "" {
			text = t.Icon + " " + text
		}
		lines = append(lines, ActivityLine{Level: t.Level, Time: t.CreatedAt, Text: text})
	}
	return lines
}

// FormatActivity renders lines newest first with level colors.
func FormatActivity(lines []ActivityLine, tags ThemeTags) string {
	if len(lines) == 0 {
		return fmt.Sprintf("%sNo notifications yet.[-]", tags.SecondaryText)
	}
	var b strings.Builder
	for i := len(lines) - 1; i >= 0; i-- {
		line := lines[i]
		fmt.Fprintf(&b, "%s%s[-] %s%s[-]\n",
			tags.SecondaryText, line.Time.Format("15:04:05"),
			levelTag(line.Level, tags), tview.Escape(line.Text))
	}
	return strings.TrimRight(b.String(), "\n")
}

func levelTag(level toast.Level, tags ThemeTags) string {
	switch level {
	case toast.LevelSuccess:
		return tags.Success
	case toast.LevelError:
		return tags.Error
	case toast.LevelLoading:
		return tags.Accent
	default:
		return tags.Foreground
	}
}
