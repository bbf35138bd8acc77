package analysis

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/softmatterlab/mdrun/internal/engine"
)

// driftFrames moves a single particle at constant velocity v along x,
// wrapping positions into a box of edge l.
func driftFrames(nFrames int, v, l float64) []Frame {
	frames := make([]Frame, nFrames)
	for i := range frames {
		x := float64(i) * v
		x -= l * math.Round(x/l)
		frames[i] = Frame{
			Step: uint64(i),
			Snapshot: engine.Snapshot{
				Box:       engine.Box{Lx: l, Ly: l, Lz: l},
				Positions: []engine.Vec3{{X: x}},
			},
		}
	}
	return frames
}

func TestMSDBallisticMotion(t *testing.T) {
	// constant velocity: MSD(i) = (v i)^2 even across boundary wraps
	v, l := 0.3, 2.0
	frames := driftFrames(20, v, l)

	msd, err := MSD(frames)
	if err != nil {
		t.Fatalf("msd: %v", err)
	}
	if msd[0] != 0 {
		t.Errorf("msd[0] = %v, want 0", msd[0])
	}
	for i, got := range msd {
		want := v * v * float64(i) * float64(i)
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("msd[%d] = %v, want %v", i, got, want)
		}
	}
}

func TestMSDErrors(t *testing.T) {
	if _, err := MSD(driftFrames(1, 0.1, 10)); err == nil {
		t.Error("single frame should error")
	}

	frames := driftFrames(3, 0.1, 10)
	frames[2].Positions = append(frames[2].Positions, engine.Vec3{})
	if _, err := MSD(frames); err == nil {
		t.Error("mismatched particle counts should error")
	}
}

func TestSelfDiffusionExactLine(t *testing.T) {
	// MSD = 6 D t with D = 0.25 and dt = 0.1
	d, dt := 0.25, 0.1
	msd := make([]float64, 50)
	for i := range msd {
		msd[i] = 6 * d * float64(i) * dt
	}

	got, err := SelfDiffusion(msd, dt)
	if err != nil {
		t.Fatalf("self diffusion: %v", err)
	}
	if math.Abs(got-d) > 1e-12 {
		t.Errorf("D = %v, want %v", got, d)
	}

	if _, err := SelfDiffusion(msd[:3], dt); err == nil {
		t.Error("too few points should error")
	}
	if _, err := SelfDiffusion(msd, 0); err == nil {
		t.Error("zero dt should error")
	}
}

func TestPowerSpectrumSine(t *testing.T) {
	// 4 Hz sine over an offset: the DC offset is removed, the peak lands
	// in the 4 Hz bin
	const (
		n  = 256
		dt = 1.0 / 64
		f0 = 4.0
	)
	series := make([]float64, n)
	for i := range series {
		series[i] = 3.0 + math.Sin(2*math.Pi*f0*float64(i)*dt)
	}

	freqs, power, err := PowerSpectrum(series, dt)
	if err != nil {
		t.Fatalf("spectrum: %v", err)
	}
	if len(freqs) != n/2+1 {
		t.Fatalf("bins = %d, want %d", len(freqs), n/2+1)
	}
	if power[0] > 1e-9 {
		t.Errorf("DC power = %v, want ~0 after mean removal", power[0])
	}

	got := DominantFrequency(freqs, power)
	if math.Abs(got-f0) > 1e-9 {
		t.Errorf("dominant frequency = %v, want %v", got, f0)
	}
}

func TestPowerSpectrumErrors(t *testing.T) {
	if _, _, err := PowerSpectrum([]float64{1, 2, 3}, 0.1); err == nil {
		t.Error("too few samples should error")
	}
	if _, _, err := PowerSpectrum(make([]float64, 8), -1); err == nil {
		t.Error("negative dt should error")
	}
}

func TestMeanStdDev(t *testing.T) {
	series := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	if got := Mean(series); got != 5 {
		t.Errorf("mean = %v, want 5", got)
	}
	if got := StdDev(series); math.Abs(got-2) > 1e-12 {
		t.Errorf("stddev = %v, want 2", got)
	}
	if Mean(nil) != 0 || StdDev([]float64{1}) != 0 {
		t.Error("degenerate inputs should be 0")
	}
}

func TestReadTrajectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traj.jsonl")
	doc := `{"step":10,"box":{"lx":5,"ly":5,"lz":5},"positions":[{"x":1,"y":0,"z":0}]}` + "\n" +
		"\n" +
		`{"step":20,"box":{"lx":5,"ly":5,"lz":5},"positions":[{"x":1.5,"y":0,"z":0}]}` + "\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	frames, err := ReadTrajectory(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("frames = %d, want 2 (blank line skipped)", len(frames))
	}
	if frames[1].Step != 20 || frames[1].Positions[0].X != 1.5 {
		t.Errorf("frame 1 = %+v", frames[1])
	}
}

func TestReadTrajectoryEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.jsonl")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadTrajectory(path); err == nil {
		t.Error("empty trajectory should error")
	}
}
