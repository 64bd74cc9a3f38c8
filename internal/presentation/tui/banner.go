package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the Arbor ASCII art banner with the version to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	// green to teal, one shade per line
	lines := []struct{ text, color string }{
		{"     _         _", "#86efac"},
		{"    / \\   _ __| |__   ___  _ __", "#4ade80"},
		{"   / _ \\ | '__| '_ \\ / _ \\| '__|", "#22c55e"},
		{"  / ___ \\| |  | |_) | (_) | |", "#14b8a6"},
		{" /_/   \\_\\_|  |_.__/ \\___/|_|", "#0d9488"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, termenv.String("  v"+version).Faint())
	fmt.Fprintln(w)
}
