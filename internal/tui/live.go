package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/relaytune/internal/autotune"
	"github.com/san-kum/relaytune/internal/dynamo"
)

const historyCapacity = 600

// SampleMsg carries one tuning iteration into the program.
type SampleMsg dynamo.Sample

// DoneMsg ends the live view.
type DoneMsg struct {
	Result *autotune.Result
	Err    error
}

// Forwarder is an observer that posts samples to a running program.
type Forwarder struct {
	Program *tea.Program
}

func (f Forwarder) OnStep(s dynamo.Sample) { f.Program.Send(SampleMsg(s)) }

// TuneModel shows a relay experiment as it runs. Quitting early calls Cancel.
type TuneModel struct {
	plant  string
	cancel func()

	pv      []float64
	output  []float64
	last    dynamo.Sample
	samples int

	result *autotune.Result
	err    error
	done   bool
}

func NewTuneModel(plant string, cancel func()) TuneModel {
	return TuneModel{
		plant:  plant,
		cancel: cancel,
		pv:     make([]float64, 0, historyCapacity),
		output: make([]float64, 0, historyCapacity),
	}
}

func (m TuneModel) Init() tea.Cmd { return nil }

func (m TuneModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
	case SampleMsg:
		s := dynamo.Sample(msg)
		m.last = s
		m.samples++
		m.pv = push(m.pv, s.PV)
		m.output = push(m.output, s.Output)
	case DoneMsg:
		m.result, m.err, m.done = msg.Result, msg.Err, true
		return m, tea.Quit
	}
	return m, nil
}

func (m TuneModel) View() string {
	var s strings.Builder
	s.WriteString(Title.Render("relay autotune · "+m.plant) + "\n\n")

	if m.samples == 0 {
		s.WriteString(Subtle.Render("checking the plant is at rest...") + "\n")
	} else {
		s.WriteString(Plot("process variable", m.pv) + "\n\n")
		s.WriteString(Plot("output", m.output) + "\n\n")
		s.WriteString(row("elapsed", m.last.Elapsed.Truncate(time.Millisecond).String()))
		s.WriteString(row("pv", fmt.Sprintf("%.3f", m.last.PV)))
		s.WriteString(row("setpoint", fmt.Sprintf("%.3f", m.last.Setpoint)))
		s.WriteString(row("output", fmt.Sprintf("%.3f", m.last.Output)))
		s.WriteString(row("peaks", fmt.Sprintf("%d/%d", m.last.Peaks, autotune.MaxPeaks+1)))
	}

	switch {
	case m.err != nil:
		s.WriteString("\n" + StatusFailed.Render("failed: "+m.err.Error()) + "\n")
	case m.done:
		s.WriteString("\n" + StatusRunning.Render("done") + "\n")
	default:
		s.WriteString("\n" + KeyHint.Render("q to abort") + "\n")
	}
	return s.String()
}

// Result returns the outcome delivered by DoneMsg.
func (m TuneModel) Result() (*autotune.Result, error) { return m.result, m.err }

func push(h []float64, v float64) []float64 {
	if len(h) == historyCapacity {
		copy(h, h[1:])
		h = h[:len(h)-1]
	}
	return append(h, v)
}
