// Package storage keeps finished runs on disk, one directory per run with
// a metadata document next to the thermodynamic log and trajectory.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	LogFileName  = "thermo.csv"
	TrajFileName = "trajectory.jsonl"
	metaFileName = "metadata.json"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0o755)
}

// RunMetadata is the per-run index document.
type RunMetadata struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Timestamp  time.Time          `json:"timestamp"`
	Seed       int64              `json:"seed"`
	Dt         float64            `json:"dt"`
	Stages     []string           `json:"stages"`
	Snapshot   string             `json:"snapshot"`
	References map[string]string  `json:"references,omitempty"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
}

// NewRun creates a fresh run directory and returns its id and path.
func (s *Store) NewRun(name string) (string, string, error) {
	runID := fmt.Sprintf("%s_%d", name, time.Now().Unix())
	dir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", err
	}
	return runID, dir, nil
}

// LogPath is the thermodynamic log location inside a run directory.
func (s *Store) LogPath(runID string) string {
	return filepath.Join(s.baseDir, runID, LogFileName)
}

// TrajPath is the trajectory location inside a run directory.
func (s *Store) TrajPath(runID string) string {
	return filepath.Join(s.baseDir, runID, TrajFileName)
}

// SaveMetadata writes the run's metadata document.
func (s *Store) SaveMetadata(runID string, meta RunMetadata) error {
	meta.ID = runID
	f, err := os.Create(filepath.Join(s.baseDir, runID, metaFileName))
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

// List returns metadata for every run under the base directory. Entries
// without readable metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}
	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	return runs, nil
}

// Load reads one run's metadata.
func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metaFileName))
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadThermo parses a run's thermodynamic log into its header and rows.
func (s *Store) LoadThermo(runID string) ([]string, [][]float64, error) {
	f, err := os.Open(s.LogPath(runID))
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("storage: empty thermo log for %s", runID)
	}

	header := records[0]
	rows := make([][]float64, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make([]float64, 0, len(record))
		for _, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				continue
			}
			row = append(row, v)
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}
	return header, rows, nil
}

// Column extracts a named column from parsed thermo data.
func Column(header []string, rows [][]float64, name string) ([]float64, error) {
	idx := -1
	for i, h := range header {
		if h == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("storage: no column %q in thermo log", name)
	}
	col := make([]float64, 0, len(rows))
	for _, row := range rows {
		if idx < len(row) {
			col = append(col, row[idx])
		}
	}
	return col, nil
}
