package repository

import (
	"compress/gzip"
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"ToneFX/internal/domain/models"
	"ToneFX/pkg/util"
)

// FileAggregateStore keeps one gzip-compressed CSV per calendar day under a
// single directory. Presence of the file is the cache signal; writes go
// through a temp file and rename so a crashed run never leaves a readable
// partial day behind.
type FileAggregateStore struct {
	dir string
}

func NewFileAggregateStore(dir string) (*FileAggregateStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create day cache dir: %w", err)
	}
	return &FileAggregateStore{dir: dir}, nil
}

func (s *FileAggregateStore) dayPath(date time.Time) string {
	return filepath.Join(s.dir, date.Format(util.DateLayout)+".csv.gz")
}

func (s *FileAggregateStore) Get(_ context.Context, date time.Time) ([]models.DailyAggregate, bool, error) {
	f, err := os.Open(s.dayPath(util.DateOnly(date)))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, false, fmt.Errorf("open day cache: %w", err)
	}
	defer gz.Close()

	records, err := csv.NewReader(gz).ReadAll()
	if err != nil {
		return nil, false, fmt.Errorf("read day cache: %w", err)
	}
	rows := make([]models.DailyAggregate, 0, len(records))
	for i, rec := range records {
		if i == 0 {
			continue // header
		}
		if len(rec) != 5 {
			return nil, false, fmt.Errorf("day cache row %d: %d fields", i, len(rec))
		}
		d, err := time.Parse(util.DateLayout, rec[0])
		if err != nil {
			return nil, false, fmt.Errorf("day cache row %d: %w", i, err)
		}
		tone, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return nil, false, fmt.Errorf("day cache row %d: %w", i, err)
		}
		dispersion := math.NaN()
		if rec[3] != "" {
			if dispersion, err = strconv.ParseFloat(rec[3], 64); err != nil {
				return nil, false, fmt.Errorf("day cache row %d: %w", i, err)
			}
		}
		count, err := strconv.Atoi(rec[4])
		if err != nil {
			return nil, false, fmt.Errorf("day cache row %d: %w", i, err)
		}
		rows = append(rows, models.DailyAggregate{
			Date:           util.DateOnly(d),
			Currency:       rec[1],
			AvgTone:        tone,
			ToneDispersion: dispersion,
			EventCount:     count,
		})
	}
	return rows, true, nil
}

func (s *FileAggregateStore) Put(_ context.Context, date time.Time, rows []models.DailyAggregate) error {
	final := s.dayPath(util.DateOnly(date))
	tmp, err := os.CreateTemp(s.dir, ".day-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	gz := gzip.NewWriter(tmp)
	w := csv.NewWriter(gz)
	if err := w.Write([]string{"date", "currency", "avg_tone", "tone_dispersion", "event_count"}); err != nil {
		tmp.Close()
		return err
	}
	for _, r := range rows {
		dispersion := ""
		if !math.IsNaN(r.ToneDispersion) {
			dispersion = strconv.FormatFloat(r.ToneDispersion, 'g', -1, 64)
		}
		rec := []string{
			r.Date.Format(util.DateLayout),
			r.Currency,
			strconv.FormatFloat(r.AvgTone, 'g', -1, 64),
			dispersion,
			strconv.Itoa(r.EventCount),
		}
		if err := w.Write(rec); err != nil {
			tmp.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return err
	}
	if err := gz.Close(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), final)
}

// FileDatasetStore persists a whole merged frame as one gzip CSV with the
// date index in the first column. Missing cells round-trip as empty
// strings.
type FileDatasetStore struct{}

func NewFileDatasetStore() *FileDatasetStore { return &FileDatasetStore{} }

func (s *FileDatasetStore) Load(_ context.Context, path string) (*models.Frame, bool, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, false, fmt.Errorf("open dataset: %w", err)
	}
	defer gz.Close()

	records, err := csv.NewReader(gz).ReadAll()
	if err != nil {
		return nil, false, fmt.Errorf("read dataset: %w", err)
	}
	if len(records) < 1 || len(records[0]) < 2 {
		return nil, false, fmt.Errorf("dataset %s: malformed header", path)
	}
	columns := records[0][1:]
	dates := make([]time.Time, 0, len(records)-1)
	for i, rec := range records[1:] {
		d, err := time.Parse(util.DateLayout, rec[0])
		if err != nil {
			return nil, false, fmt.Errorf("dataset row %d: %w", i+1, err)
		}
		dates = append(dates, util.DateOnly(d))
	}
	frame := models.NewFrame(dates, columns)
	for i, rec := range records[1:] {
		if len(rec) != len(columns)+1 {
			return nil, false, fmt.Errorf("dataset row %d: %d fields, want %d", i+1, len(rec), len(columns)+1)
		}
		for j, cell := range rec[1:] {
			if cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, false, fmt.Errorf("dataset cell (%d,%d): %w", i+1, j, err)
			}
			frame.Set(i, j, v)
		}
	}
	return frame, true, nil
}

func (s *FileDatasetStore) Save(_ context.Context, path string, frame *models.Frame) (int64, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("create dataset dir: %w", err)
		}
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".dataset-*.tmp")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name())

	gz := gzip.NewWriter(tmp)
	w := csv.NewWriter(gz)
	header := append([]string{"date"}, frame.Columns...)
	if err := w.Write(header); err != nil {
		tmp.Close()
		return 0, err
	}
	rec := make([]string, len(frame.Columns)+1)
	for i, d := range frame.Dates {
		rec[0] = d.Format(util.DateLayout)
		for j := range frame.Columns {
			v := frame.At(i, j)
			if math.IsNaN(v) {
				rec[j+1] = ""
			} else {
				rec[j+1] = strconv.FormatFloat(v, 'g', -1, 64)
			}
		}
		if err := w.Write(rec); err != nil {
			tmp.Close()
			return 0, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return 0, err
	}
	if err := gz.Close(); err != nil {
		tmp.Close()
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
