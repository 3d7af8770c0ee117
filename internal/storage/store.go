package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/hadron/internal/experiment"
	"github.com/san-kum/hadron/internal/model"
)

const (
	metadataFile = "metadata.json"
	statsFile    = "stats.csv"
	modelFile    = "model.xml"
)

// Store keeps one directory per recorded run.
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Timestamp  time.Time          `json:"timestamp"`
	Seed       int64              `json:"seed"`
	Dimension  int                `json:"dimension"`
	Particles  int                `json:"particles"`
	Links      int                `json:"links"`
	Engine     string             `json:"engine"`
	Integrator string             `json:"integrator"`
	Parameters map[string]float64 `json:"parameters"`
	Wall       float64            `json:"wall_seconds"`
	Metrics    map[string]float64 `json:"metrics"`
}

// Save writes meta and the sample trace under a new run id and returns it.
func (s *Store) Save(meta RunMetadata, res *experiment.Result) (string, error) {
	if meta.Name == "" {
		meta.Name = "run"
	}
	now := time.Now()
	meta.ID = fmt.Sprintf("%s_%d", meta.Name, now.UnixNano())
	meta.Timestamp = now
	if res != nil {
		meta.Wall = res.Wall.Seconds()
		meta.Metrics = res.Metrics
	}

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, statsFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	var samples []experiment.Sample
	if res != nil {
		samples = res.Samples
	}
	if err := writeTrace(csvFile, samples); err != nil {
		return "", err
	}
	return meta.ID, nil
}

var traceColumns = []string{"elapsed_s", "step_count", "step_elapsed_ms", "real_time_scale"}

func writeTrace(out io.Writer, samples []experiment.Sample) error {
	w := csv.NewWriter(out)

	var names []string
	if len(samples) > 0 {
		for name := range samples[0].Metrics {
			names = append(names, name)
		}
		sort.Strings(names)
	}
	if err := w.Write(append(append([]string(nil), traceColumns...), names...)); err != nil {
		return err
	}

	for _, s := range samples {
		row := []string{
			strconv.FormatFloat(s.Elapsed.Seconds(), 'f', 6, 64),
			strconv.FormatInt(s.StepCount, 10),
			strconv.FormatFloat(s.StepElapsedTime, 'g', -1, 64),
			strconv.FormatFloat(s.RealTimeScale, 'g', -1, 64),
		}
		for _, name := range names {
			row = append(row, strconv.FormatFloat(s.Metrics[name], 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

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
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadTrace reads back the samples of a run.
func (s *Store) LoadTrace(runID string) ([]experiment.Sample, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, statsFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []experiment.Sample{}, nil
	}

	header := records[0]
	samples := make([]experiment.Sample, 0, len(records)-1)
	for _, record := range records[1:] {
		if len(record) < len(traceColumns) {
			continue
		}
		elapsed, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			continue
		}
		steps, _ := strconv.ParseInt(record[1], 10, 64)
		stepMs, _ := strconv.ParseFloat(record[2], 64)
		scale, _ := strconv.ParseFloat(record[3], 64)

		s := experiment.Sample{
			Elapsed:         time.Duration(elapsed * float64(time.Second)),
			StepCount:       steps,
			StepElapsedTime: stepMs,
			RealTimeScale:   scale,
			Metrics:         make(map[string]float64),
		}
		for j := len(traceColumns); j < len(record) && j < len(header); j++ {
			if v, err := strconv.ParseFloat(record[j], 64); err == nil {
				s.Metrics[header[j]] = v
			}
		}
		samples = append(samples, s)
	}
	return samples, nil
}

// SaveModel stores the final model document next to a run.
func (s *Store) SaveModel(runID string, m *model.Model) error {
	return SaveFile(filepath.Join(s.baseDir, runID, modelFile), m)
}

func (s *Store) LoadModel(runID string, newModel ModelFactory) (*model.Model, error) {
	return LoadFile(filepath.Join(s.baseDir, runID, modelFile), newModel)
}

// ExportData is the JSON form of a run.
type ExportData struct {
	Run     RunMetadata         `json:"run"`
	Samples []experiment.Sample `json:"samples"`
}

func ExportJSON(w io.Writer, meta RunMetadata, samples []experiment.Sample) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(ExportData{Run: meta, Samples: samples})
}
