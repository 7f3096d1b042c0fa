package store

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/sells-group/panowalk/internal/geo"
	"github.com/sells-group/panowalk/internal/model"
)

const (
	pointsSuffix = "-points.csv"
	runsFile     = "runs.csv"
)

// CSVStore writes one headerless points file per region and keeps run
// history in runs.csv under the same directory.
type CSVStore struct {
	dir string

	mu   sync.Mutex
	runs map[string]*model.Run
}

// runRow is the runs.csv layout.
type runRow struct {
	ID        string    `csv:"id"`
	Region    string    `csv:"region"`
	CenterLat float64   `csv:"center_lat"`
	CenterLng float64   `csv:"center_lng"`
	Status    string    `csv:"status"`
	Records   int       `csv:"records"`
	CreatedAt time.Time `csv:"created_at"`
	UpdatedAt time.Time `csv:"updated_at"`
}

func newRunRow(r *model.Run) runRow {
	return runRow{
		ID:        r.ID,
		Region:    r.Region,
		CenterLat: r.Center.Lat,
		CenterLng: r.Center.Lng,
		Status:    string(r.Status),
		Records:   r.Records,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (row runRow) run() *model.Run {
	return &model.Run{
		ID:        row.ID,
		Region:    row.Region,
		Center:    geo.Coordinate{Lat: row.CenterLat, Lng: row.CenterLng},
		Status:    model.RunStatus(row.Status),
		Records:   row.Records,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

// NewCSV creates a CSVStore rooted at dir and loads any run history found
// there.
func NewCSV(dir string) (*CSVStore, error) {
	if dir == "" {
		dir = "."
	}
	s := &CSVStore{dir: dir, runs: make(map[string]*model.Run)}
	if err := s.loadRuns(); err != nil {
		return nil, err
	}
	return s, nil
}

// PointsPath returns the points file for a region.
func (s *CSVStore) PointsPath(region string) string {
	return filepath.Join(s.dir, region+pointsSuffix)
}

// RunsPath returns the run history file.
func (s *CSVStore) RunsPath() string {
	return filepath.Join(s.dir, runsFile)
}

func (s *CSVStore) Migrate(_ context.Context) error {
	return eris.Wrap(os.MkdirAll(s.dir, 0o755), "csv: create data dir")
}

func (s *CSVStore) Close() error {
	return nil
}

// loadRuns merges runs.csv into the in-memory set. A run already held keeps
// its state unless the file carries a later update. Callers hold s.mu, except
// during construction.
func (s *CSVStore) loadRuns() error {
	data, err := os.ReadFile(s.RunsPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return eris.Wrap(err, "csv: read runs")
	}

	var rows []runRow
	if err := csvutil.Unmarshal(data, &rows); err != nil {
		return eris.Wrap(err, "csv: parse runs")
	}
	for _, row := range rows {
		cur, ok := s.runs[row.ID]
		if ok && !row.UpdatedAt.After(cur.UpdatedAt) {
			continue
		}
		s.runs[row.ID] = row.run()
	}
	return nil
}

// saveRuns rewrites runs.csv from the in-memory set, oldest run first.
// Callers hold s.mu.
func (s *CSVStore) saveRuns() error {
	rows := make([]runRow, 0, len(s.runs))
	for _, r := range s.runs {
		rows = append(rows, newRunRow(r))
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].ID < rows[j].ID
		}
		return rows[i].CreatedAt.Before(rows[j].CreatedAt)
	})

	data, err := csvutil.Marshal(rows)
	if err != nil {
		return eris.Wrap(err, "csv: encode runs")
	}
	return s.replaceFile(s.RunsPath(), ".runs-*.csv", func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// updateRun applies fn to a stored run and persists the history.
func (s *CSVStore) updateRun(runID string, fn func(*model.Run)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadRuns(); err != nil {
		return err
	}
	run, ok := s.runs[runID]
	if !ok {
		return eris.Errorf("run not found: %s", runID)
	}
	fn(run)
	run.UpdatedAt = time.Now().UTC()
	return s.saveRuns()
}

func (s *CSVStore) CreateRun(_ context.Context, region string, center geo.Coordinate) (*model.Run, error) {
	if err := CheckRegionName(region); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	run := &model.Run{
		ID:        uuid.New().String(),
		Region:    region,
		Center:    center,
		Status:    model.RunStatusRouting,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadRuns(); err != nil {
		return nil, err
	}
	s.runs[run.ID] = run
	if err := s.saveRuns(); err != nil {
		delete(s.runs, run.ID)
		return nil, err
	}
	cp := *run
	return &cp, nil
}

func (s *CSVStore) UpdateRunStatus(_ context.Context, runID string, status model.RunStatus) error {
	return s.updateRun(runID, func(run *model.Run) {
		run.Status = status
	})
}

func (s *CSVStore) CompleteRun(_ context.Context, runID string, records int) error {
	return s.updateRun(runID, func(run *model.Run) {
		run.Status = model.RunStatusComplete
		run.Records = records
	})
}

// ListRuns re-reads runs.csv so runs written by other processes are listed.
func (s *CSVStore) ListRuns(_ context.Context, filter RunFilter) ([]model.Run, error) {
	s.mu.Lock()
	if err := s.loadRuns(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	var runs []model.Run
	for _, r := range s.runs {
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if filter.Region != "" && r.Region != filter.Region {
			continue
		}
		runs = append(runs, *r)
	}
	s.mu.Unlock()

	sort.Slice(runs, func(i, j int) bool { return runs[i].CreatedAt.After(runs[j].CreatedAt) })
	if filter.Offset >= len(runs) {
		return nil, nil
	}
	runs = runs[filter.Offset:]
	if limit := limitOrDefault(filter.Limit); len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// SaveRecords replaces the run's region points file with records, in order.
func (s *CSVStore) SaveRecords(_ context.Context, runID string, records []model.Record) error {
	s.mu.Lock()
	run, ok := s.runs[runID]
	s.mu.Unlock()
	if !ok {
		return eris.Errorf("run not found: %s", runID)
	}

	return s.replaceFile(s.PointsPath(run.Region), ".points-*.csv", func(w io.Writer) error {
		return writeRecords(w, records)
	})
}

// replaceFile writes path through a temp file in the same directory and
// renames it into place.
func (s *CSVStore) replaceFile(path, pattern string, write func(io.Writer) error) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return eris.Wrap(err, "csv: create data dir")
	}
	tmp, err := os.CreateTemp(s.dir, pattern)
	if err != nil {
		return eris.Wrapf(err, "csv: create %s", path)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return eris.Wrapf(err, "csv: write %s", path)
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrapf(err, "csv: close %s", path)
	}
	return eris.Wrapf(os.Rename(tmp.Name(), path), "csv: rename %s", path)
}

func writeRecords(w io.Writer, records []model.Record) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	enc.AutoHeader = false
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ListRecords reads a region's points file. A missing file yields no
// records. Point ids follow file order.
func (s *CSVStore) ListRecords(_ context.Context, region string) ([]model.Record, error) {
	if err := CheckRegionName(region); err != nil {
		return nil, err
	}
	f, err := os.Open(s.PointsPath(region))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "csv: open points for %s", region)
	}
	defer f.Close() //nolint:errcheck

	records, err := readRecords(f)
	if err != nil {
		return nil, eris.Wrapf(err, "csv: read points for %s", region)
	}
	return records, nil
}

func readRecords(r io.Reader) ([]model.Record, error) {
	dec, err := csvutil.NewDecoder(csv.NewReader(r), model.RecordColumns...)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}

	var records []model.Record
	for {
		var rec model.Record
		if err := dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		rec.PointID = len(records)
		records = append(records, rec)
	}
	return records, nil
}
