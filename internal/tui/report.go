package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/relaytune/internal/autotune"
)

const (
	plotWidth  = 60
	plotHeight = 12
)

// Plot draws series on one chart. Empty series are skipped.
func Plot(caption string, series ...[]float64) string {
	data := make([][]float64, 0, len(series))
	for _, s := range series {
		if len(s) > 0 {
			data = append(data, s)
		}
	}
	if len(data) == 0 {
		return ""
	}
	return asciigraph.PlotMany(data,
		asciigraph.Height(plotHeight),
		asciigraph.Width(plotWidth),
		asciigraph.Caption(caption))
}

// RenderResult formats a tuning result as a panel.
func RenderResult(plant string, res *autotune.Result) string {
	var s strings.Builder
	s.WriteString(Title.Render("relay autotune · "+plant) + "\n\n")
	s.WriteString(row("Ku", fmt.Sprintf("%.4f", res.Ku)))
	s.WriteString(row("Pu", res.Pu.String()))
	s.WriteString(row("control", res.ControlType.String()))
	s.WriteString(row("Kp", fmt.Sprintf("%.4f", res.Gains.Kp)))
	s.WriteString(row("Ki", fmt.Sprintf("%.4f", res.Gains.Ki)))
	s.WriteString(row("Kd", fmt.Sprintf("%.4f", res.Gains.Kd)))
	s.WriteString(row("amplitude", fmt.Sprintf("%.3f", res.Amplitude)))
	s.WriteString(row("peaks", formatPeaks(res.Peaks)))
	s.WriteString(row("samples", fmt.Sprintf("%d", res.Samples)))
	s.WriteString(row("elapsed", res.Elapsed.String()))

	status := StatusRunning.Render("converged")
	if !res.Converged {
		status = StatusFailed.Render("peak budget exhausted")
	}
	s.WriteString(row("status", "") + status)
	return Panel.Render(s.String())
}

// RenderMetrics formats closed-loop metrics in name order.
func RenderMetrics(title string, m map[string]float64) string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	var s strings.Builder
	s.WriteString(Title.Render(title) + "\n\n")
	for _, name := range names {
		s.WriteString(row(name, fmt.Sprintf("%.4f", m[name])))
	}
	return Panel.Render(strings.TrimRight(s.String(), "\n"))
}

func formatPeaks(pks []float64) string {
	parts := make([]string, len(pks))
	for i, p := range pks {
		parts[i] = fmt.Sprintf("%.2f", p)
	}
	return strings.Join(parts, " ")
}
