package ui

import (
	"fmt"

	"github.com/alfredjeanlab/guildkeeper/internal/events"
)

// ANSI256 color codes matching the Ayu palette.
const (
	colorAccent  = 74  // blue
	colorMuted   = 245 // medium gray
	colorGranted = 114 // green
	colorRevoked = 203 // red
)

var noColor bool

func render(code int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", code, s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string { return render(colorAccent, s) }

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string { return render(colorMuted, s) }

// RenderGranted returns s in green.
func RenderGranted(s string) string { return render(colorGranted, s) }

// RenderRevoked returns s in red.
func RenderRevoked(s string) string { return render(colorRevoked, s) }

// RenderTopic colors an event topic by what it means for members: grants
// green, revocations red, everything else in the accent color.
func RenderTopic(topic string) string {
	switch topic {
	case events.TopicRoleGranted:
		return RenderGranted(topic)
	case events.TopicRoleRevoked:
		return RenderRevoked(topic)
	default:
		return RenderAccent(topic)
	}
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}
