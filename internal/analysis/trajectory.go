// Package analysis post-processes trajectories and thermodynamic logs:
// mean-squared displacement, self-diffusion and spectral content.
package analysis

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/softmatterlab/mdrun/internal/engine"
)

// Frame is one trajectory record.
type Frame struct {
	Step uint64 `json:"step"`
	engine.Snapshot
}

// ReadTrajectory loads all frames from a JSON-lines trajectory file.
func ReadTrajectory(path string) ([]Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	frames := make([]Frame, 0)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 1<<20), 1<<26)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var fr Frame
		if err := json.Unmarshal(line, &fr); err != nil {
			return nil, fmt.Errorf("analysis: frame %d: %w", len(frames), err)
		}
		frames = append(frames, fr)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("analysis: trajectory %s has no frames", path)
	}
	return frames, nil
}
