// Package features turns enriched frames into classifier inputs and training rows.
package features

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"trendBot/internal/domain"
	"trendBot/internal/ports"
)

const (
	DefaultHorizon   = 8    // Bars ahead used for the label
	DefaultThreshold = 0.01 // Forward return required for a positive label
)

// Row is one labeled training example.
type Row struct {
	Symbol   string
	Time     time.Time
	Features domain.Features
	Label    int
}

// FromFrame extracts the feature vector at bar i. ok is false if any feature is undefined.
func FromFrame(frame *domain.Frame, i int) (domain.Features, bool) {
	f := domain.Features{
		ATRPct:    frame.Value(domain.ColATRPct, i),
		ReturnStd: frame.Value(domain.ColReturnStd, i),
		RSI:       frame.Value(domain.ColRSI, i),
		ADX:       frame.Value(domain.ColADX, i),
		VolumeZ:   frame.Value(domain.ColVolumeZ, i),
	}
	return f, f.Valid()
}

// Label returns 1 if the close horizon bars after i is more than threshold above close i.
// ok is false when the future bar does not exist.
func Label(frame *domain.Frame, i, horizon int, threshold float64) (int, bool) {
	j := i + horizon
	if i < 0 || horizon <= 0 || j >= frame.Len() {
		return 0, false
	}
	now := frame.Klines[i].Close
	future := frame.Klines[j].Close
	if now <= 0 {
		return 0, false
	}
	if future/now-1 > threshold {
		return 1, true
	}
	return 0, true
}

// BuildDataset produces labeled rows from bar warmup onwards, skipping undefined features
// and the trailing bars that have no label.
func BuildDataset(frame *domain.Frame, warmup, horizon int, threshold float64) []Row {
	var rows []Row
	for i := warmup; i < frame.Len(); i++ {
		f, ok := FromFrame(frame, i)
		if !ok {
			continue
		}
		label, ok := Label(frame, i, horizon, threshold)
		if !ok {
			break
		}
		rows = append(rows, Row{
			Symbol:   frame.Symbol,
			Time:     frame.Klines[i].OpenTime,
			Features: f,
			Label:    label,
		})
	}
	return rows
}

func header() []string {
	h := []string{"symbol", "time"}
	h = append(h, domain.FeatureOrder[:]...)
	return append(h, "label")
}

// WriteCSV writes rows with the header symbol,time,<FeatureOrder...>,label.
func WriteCSV(w io.Writer, rows []Row) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(header()); err != nil {
		return fmt.Errorf("failed to write dataset header: %w", err)
	}
	for _, r := range rows {
		rec := []string{r.Symbol, r.Time.UTC().Format(time.RFC3339)}
		for _, v := range r.Features.Vector() {
			rec = append(rec, strconv.FormatFloat(v, 'g', -1, 64))
		}
		rec = append(rec, strconv.Itoa(r.Label))
		if err := writer.Write(rec); err != nil {
			return fmt.Errorf("failed to write dataset row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadCSV parses a dataset written by WriteCSV. Columns must be in FeatureOrder.
func ReadCSV(r io.Reader) ([]Row, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	if len(records) == 0 {
		return nil, ports.ErrEmptyDataset
	}
	want := header()
	if len(records[0]) != len(want) {
		return nil, fmt.Errorf("dataset header has %d columns, want %d: %w", len(records[0]), len(want), ports.ErrMalformedSeries)
	}
	for i, name := range want {
		if records[0][i] != name {
			return nil, fmt.Errorf("dataset column %d is %q, want %q: %w", i, records[0][i], name, ports.ErrMalformedSeries)
		}
	}

	rows := make([]Row, 0, len(records)-1)
	for n, rec := range records[1:] {
		ts, err := time.Parse(time.RFC3339, rec[1])
		if err != nil {
			return nil, fmt.Errorf("row %d: bad time: %w", n+1, ports.ErrMalformedSeries)
		}
		var v [5]float64
		for k := range v {
			v[k], err = strconv.ParseFloat(rec[2+k], 64)
			if err != nil || math.IsNaN(v[k]) {
				return nil, fmt.Errorf("row %d: bad %s: %w", n+1, domain.FeatureOrder[k], ports.ErrMalformedSeries)
			}
		}
		label, err := strconv.Atoi(rec[len(rec)-1])
		if err != nil || (label != 0 && label != 1) {
			return nil, fmt.Errorf("row %d: bad label: %w", n+1, ports.ErrMalformedSeries)
		}
		rows = append(rows, Row{Symbol: rec[0], Time: ts, Features: domain.FeaturesFromVector(v), Label: label})
	}
	return rows, nil
}
