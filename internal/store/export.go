package store

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/san-kum/relaytune/internal/control"
	"github.com/san-kum/relaytune/internal/sim"
)

type ExportData struct {
	Plant      string             `json:"plant"`
	Integrator string             `json:"integrator"`
	Setpoint   float64            `json:"setpoint"`
	SampleTime float64            `json:"sample_time_s"`
	Gains      control.Gains      `json:"gains"`
	Steps      int                `json:"steps"`
	Times      []float64          `json:"times"`
	PV         []float64          `json:"pv"`
	Outputs    []float64          `json:"outputs"`
	Metrics    map[string]float64 `json:"metrics"`
}

// NewExportData flattens a closed-loop trace for export. Times are in seconds.
func NewExportData(plant, integrator string, setpoint, sampleTime float64, g control.Gains, trace *sim.Trace) ExportData {
	times := make([]float64, len(trace.Times))
	for i, t := range trace.Times {
		times[i] = t.Seconds()
	}
	return ExportData{
		Plant:      plant,
		Integrator: integrator,
		Setpoint:   setpoint,
		SampleTime: sampleTime,
		Gains:      g,
		Steps:      len(trace.Times),
		Times:      times,
		PV:         trace.PV,
		Outputs:    trace.Outputs,
		Metrics:    trace.Metrics,
	}
}

func ExportJSON(w io.Writer, data ExportData) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// ExportCSV writes one row per sample: time, setpoint, pv, output.
func ExportCSV(w io.Writer, data ExportData) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time_s", "setpoint", "pv", "output"}); err != nil {
		return err
	}
	sp := strconv.FormatFloat(data.Setpoint, 'g', -1, 64)
	for i := range data.Times {
		row := []string{
			strconv.FormatFloat(data.Times[i], 'f', 3, 64),
			sp,
			strconv.FormatFloat(data.PV[i], 'g', -1, 64),
			strconv.FormatFloat(data.Outputs[i], 'g', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
