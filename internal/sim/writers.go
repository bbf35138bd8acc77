package sim

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/softmatterlab/mdrun/internal/engine"
)

// trajectoryWriter appends snapshot frames to a JSON-lines file.
type trajectoryWriter struct {
	f   *os.File
	enc *json.Encoder
}

type trajectoryFrame struct {
	Step uint64 `json:"step"`
	*engine.Snapshot
}

func newTrajectoryWriter(path string) (*trajectoryWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &trajectoryWriter{f: f, enc: json.NewEncoder(f)}, nil
}

func (w *trajectoryWriter) Write(st *engine.State) error {
	return w.enc.Encode(trajectoryFrame{Step: st.Step, Snapshot: st.Snapshot()})
}

func (w *trajectoryWriter) Close() error { return w.f.Close() }

// thermoWriter appends thermodynamic samples as CSV rows and forwards
// them to the simulation's observers. The force-energy columns are fixed
// by the force list at the time of the first row.
type thermoWriter struct {
	sim       *Simulation
	f         *os.File
	w         *csv.Writer
	forceCols []string
	lastTime  time.Time
	lastStep  uint64
}

func newThermoWriter(path string, s *Simulation) (*thermoWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &thermoWriter{sim: s, f: f, w: csv.NewWriter(f)}, nil
}

var thermoColumns = []string{
	"step", "kinetic_temperature", "potential_energy", "kinetic_energy",
	"volume", "pressure", "density", "tps",
}

func (w *thermoWriter) writeHeader(sample engine.Sample) error {
	w.forceCols = make([]string, 0, len(sample.ForceEnergies))
	for k := range sample.ForceEnergies {
		w.forceCols = append(w.forceCols, k)
	}
	sort.Strings(w.forceCols)
	header := append(append([]string(nil), thermoColumns...), w.forceCols...)
	return w.w.Write(header)
}

func (w *thermoWriter) Write(st *engine.State) error {
	sample := engine.ComputeSample(st, w.sim.integrator)
	now := time.Now()
	if !w.lastTime.IsZero() && st.Step > w.lastStep {
		if dt := now.Sub(w.lastTime).Seconds(); dt > 0 {
			sample.TPS = float64(st.Step-w.lastStep) / dt
		}
	}
	w.lastTime, w.lastStep = now, st.Step

	if w.forceCols == nil {
		if err := w.writeHeader(sample); err != nil {
			return err
		}
	}
	row := []string{
		strconv.FormatUint(sample.Step, 10),
		fmtF(sample.KineticTemperature),
		fmtF(sample.PotentialEnergy),
		fmtF(sample.KineticEnergy),
		fmtF(sample.Volume),
		fmtF(sample.Pressure),
		fmtF(sample.Density),
		fmtF(sample.TPS),
	}
	for _, col := range w.forceCols {
		row = append(row, fmtF(sample.ForceEnergies[col]))
	}
	if err := w.w.Write(row); err != nil {
		return err
	}
	w.w.Flush()
	w.sim.notify(sample)
	return w.w.Error()
}

func fmtF(v float64) string {
	return strconv.FormatFloat(v, 'g', 10, 64)
}

func (w *thermoWriter) Close() error {
	w.w.Flush()
	return w.f.Close()
}
