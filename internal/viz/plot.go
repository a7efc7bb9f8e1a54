// Package viz renders recorded signals in the terminal: static asciigraph
// plots and a bubbletea live view of a running simulation.
package viz

import (
	"fmt"
	"strings"

	"github.com/guptarohit/asciigraph"
)

// Plot renders one chart per label, in label order.
func Plot(signals map[string][]float64, labels []string, width, height int) (string, error) {
	var sb strings.Builder
	for i, label := range labels {
		series, ok := signals[label]
		if !ok {
			return "", fmt.Errorf("viz: no signal %q", label)
		}
		if len(series) == 0 {
			return "", fmt.Errorf("viz: signal %q is empty", label)
		}
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(asciigraph.Plot(series,
			asciigraph.Height(height),
			asciigraph.Width(width),
			asciigraph.Caption(label),
		))
	}
	return sb.String(), nil
}

// Sparkline renders a compact single chart of the trailing window of a
// series, for the live view panes.
func Sparkline(series []float64, window, width, height int, caption string) string {
	if len(series) == 0 {
		return ""
	}
	if len(series) > window {
		series = series[len(series)-window:]
	}
	return asciigraph.Plot(series,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
}
