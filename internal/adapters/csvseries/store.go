// Package csvseries persists price series as CSV files with a
// Date,Open,High,Low,Close,Volume header.
package csvseries

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"stockForecaster/internal/domain"
	"stockForecaster/internal/ports"
	"stockForecaster/internal/utils"
)

var header = []string{"Date", "Open", "High", "Low", "Close", "Volume"}

// Accepted date formats, most common first.
var dateLayouts = []string{domain.DateLayout, time.RFC3339, "2006-01-02 15:04:05"}

// Store implements ports.SeriesRepository on the local filesystem.
type Store struct {
	logger ports.Logger
}

// New creates a CSV series store.
func New(logger ports.Logger) (*Store, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for CSV series store")
	}
	return &Store{logger: logger}, nil
}

// Load reads the series at path. A missing file wraps ports.ErrNotFound; a
// file that cannot be parsed wraps ports.ErrCorruptArtifact. Rows are returned
// sorted by date.
func (s *Store) Load(ctx context.Context, path string) (*domain.PriceSeries, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("series file '%s': %w", path, ports.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open series file '%s': %w", path, err)
	}
	defer f.Close()

	bars, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: series file '%s': %v", ports.ErrCorruptArtifact, path, err)
	}
	s.logger.Debug(ctx, "Series loaded", map[string]interface{}{"path": path, "bars": len(bars)})
	return &domain.PriceSeries{Bars: bars}, nil
}

// Save writes series to path, replacing any existing file atomically.
func (s *Store) Save(ctx context.Context, path string, series *domain.PriceSeries) error {
	if series == nil {
		return fmt.Errorf("%w: nil series", ports.ErrInvalidRequest)
	}
	err := utils.WriteFileAtomic(path, func(f *os.File) error {
		return Encode(f, series.Bars)
	})
	if err != nil {
		return fmt.Errorf("failed to save series to '%s': %w", path, err)
	}
	s.logger.Info(ctx, "Series saved", map[string]interface{}{"path": path, "bars": series.Len()})
	return nil
}

// Encode writes bars as CSV with a header row.
func Encode(w io.Writer, bars []domain.PriceBar) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, b := range bars {
		writer.Write([]string{
			b.Date.Format(domain.DateLayout),
			strconv.FormatFloat(b.Open, 'f', -1, 64),
			strconv.FormatFloat(b.High, 'f', -1, 64),
			strconv.FormatFloat(b.Low, 'f', -1, 64),
			strconv.FormatFloat(b.Close, 'f', -1, 64),
			strconv.FormatInt(b.Volume, 10),
		})
	}
	writer.Flush()
	return writer.Error()
}

// Decode parses CSV with a header row. Columns are matched by name,
// case-insensitively; only Date and Close are required.
func Decode(r io.Reader) ([]domain.PriceBar, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	head, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty file")
	}
	if err != nil {
		return nil, err
	}
	cols := make(map[string]int, len(head))
	for i, name := range head {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	for _, required := range []string{"date", "close"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing %q column", required)
		}
	}

	var bars []domain.PriceBar
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		bar, err := parseRow(rec, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		bars = append(bars, bar)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no rows")
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	for i := 1; i < len(bars); i++ {
		if bars[i].Date.Equal(bars[i-1].Date) {
			return nil, fmt.Errorf("duplicate date %s", bars[i].Date.Format(domain.DateLayout))
		}
	}
	return bars, nil
}

func parseRow(rec []string, cols map[string]int) (domain.PriceBar, error) {
	field := func(name string) (string, bool) {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return "", false
		}
		return strings.TrimSpace(rec[i]), true
	}

	var bar domain.PriceBar
	raw, _ := field("date")
	date, err := parseDate(raw)
	if err != nil {
		return bar, err
	}
	bar.Date = date

	raw, ok := field("close")
	if !ok {
		return bar, fmt.Errorf("missing close")
	}
	if bar.Close, err = parsePrice(raw); err != nil {
		return bar, fmt.Errorf("close: %w", err)
	}
	for name, dst := range map[string]*float64{"open": &bar.Open, "high": &bar.High, "low": &bar.Low} {
		if raw, ok := field(name); ok && raw != "" {
			if *dst, err = parsePrice(raw); err != nil {
				return bar, fmt.Errorf("%s: %w", name, err)
			}
		}
	}
	if raw, ok := field("volume"); ok && raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return bar, fmt.Errorf("volume: %w", err)
		}
		bar.Volume = int64(v)
	}
	return bar, nil
}

func parseDate(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", raw)
}

func parsePrice(raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", raw)
	}
	return v, nil
}
