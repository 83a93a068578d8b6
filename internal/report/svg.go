package report

import (
	"errors"
	"fmt"
	"html"
	"math"
	"strings"

	"github.com/san-kum/galevo/internal/galaxy"
)

var svgColors = []string{"#00ff88", "#00ccff", "#ff4444", "#ffcc00", "#ff00ff"}

// SVG draws the named ledger columns against snapshot number as a
// standalone SVG document, one path per column.
func SVG(ledger *galaxy.TotalBaryon, opts PlotOptions, columns ...string) (string, error) {
	if len(columns) == 0 {
		return "", errors.New("report: no columns to plot")
	}
	width, height := opts.Width, opts.Height
	if width <= 0 {
		width = 640
	}
	if height <= 0 {
		height = 360
	}

	var snaps []float64
	for _, e := range ledger.Entries() {
		snaps = append(snaps, float64(e.Snapshot))
	}
	series := make([][]float64, len(columns))
	minY, maxY := math.Inf(1), math.Inf(-1)
	for i, c := range columns {
		s, err := Series(ledger, c)
		if err != nil {
			return "", err
		}
		if opts.Log {
			s = log10(s)
		}
		for _, v := range s {
			minY = min(minY, v)
			maxY = max(maxY, v)
		}
		series[i] = s
	}

	minX, maxX := snaps[0], snaps[len(snaps)-1]
	rangeX, rangeY := maxX-minX, maxY-minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minY -= rangeY * 0.1
	rangeY *= 1.2

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)

	for i, s := range series {
		color := svgColors[i%len(svgColors)]
		sb.WriteString(`<path fill="none" stroke="` + color + `" stroke-width="1.5" d="M`)
		for j, v := range s {
			x := (snaps[j] - minX) / rangeX * float64(width)
			y := float64(height) - (v-minY)/rangeY*float64(height)
			if j > 0 {
				sb.WriteString(" L")
			}
			fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
		}
		sb.WriteString("\"/>\n")
		fmt.Fprintf(&sb, `<text x="8" y="%d" fill="%s" font-family="monospace" font-size="12">%s</text>
`, 16*(i+1), color, html.EscapeString(columns[i]))
	}

	caption := "snapshot"
	if opts.Log {
		caption += ", log10 scale"
	}
	fmt.Fprintf(&sb, `<text x="%d" y="%d" fill="#666688" font-family="monospace" font-size="11" text-anchor="end">%s</text>
</svg>`, width-8, height-8, caption)
	return sb.String(), nil
}
