package utils

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"trendBot/internal/domain"
	"trendBot/internal/ports"
)

var klineHeader = []string{"open_time", "open", "high", "low", "close", "volume", "close_time"}

// KlinesFileName returns the conventional file name for a symbol/timeframe series.
func KlinesFileName(symbol, timeframe string) string {
	return fmt.Sprintf("%s_%s.csv", strings.ToUpper(symbol), timeframe)
}

// WriteKlinesToCSV writes klines with the header open_time,open,high,low,close,volume,close_time.
func WriteKlinesToCSV(klines []*domain.Kline, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(klineHeader); err != nil {
		return err
	}

	for _, k := range klines {
		err := writer.Write([]string{
			k.OpenTime.UTC().Format(time.RFC3339),
			strconv.FormatFloat(k.Open, 'f', -1, 64),
			strconv.FormatFloat(k.High, 'f', -1, 64),
			strconv.FormatFloat(k.Low, 'f', -1, 64),
			strconv.FormatFloat(k.Close, 'f', -1, 64),
			strconv.FormatFloat(k.Volume, 'f', -1, 64),
			k.CloseTime.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadKlinesFromCSV loads a series written by WriteKlinesToCSV. Columns are located by
// header name; close_time is optional. Timestamps may be RFC3339, "2006-01-02 15:04:05"
// or epoch milliseconds.
func ReadKlinesFromCSV(filename, symbol, interval string) ([]*domain.Kline, error) {
	file, err := os.Open(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", filename, ports.ErrMissingData)
		}
		return nil, err
	}
	defer file.Close()
	return ParseKlines(file, symbol, interval)
}

// ParseKlines reads klines from CSV data.
func ParseKlines(r io.Reader, symbol, interval string) ([]*domain.Kline, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err == io.EOF {
		return nil, ports.ErrMissingData
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %v: %w", err, ports.ErrMalformedSeries)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, col := range klineHeader[:6] {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("missing column %q: %w", col, ports.ErrMalformedSeries)
		}
	}
	closeIdx, hasClose := idx["close_time"]

	var klines []*domain.Kline
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %v: %w", line, err, ports.ErrMalformedSeries)
		}

		openTime, err := parseTimestamp(rec[idx["open_time"]])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad open_time: %w", line, ports.ErrMalformedSeries)
		}
		k := &domain.Kline{OpenTime: openTime, Symbol: symbol, Interval: interval}
		fields := []struct {
			col string
			dst *float64
		}{
			{"open", &k.Open}, {"high", &k.High}, {"low", &k.Low}, {"close", &k.Close}, {"volume", &k.Volume},
		}
		for _, f := range fields {
			*f.dst, err = strconv.ParseFloat(strings.TrimSpace(rec[idx[f.col]]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad %s: %w", line, f.col, ports.ErrMalformedSeries)
			}
		}
		if hasClose && rec[closeIdx] != "" {
			if k.CloseTime, err = parseTimestamp(rec[closeIdx]); err != nil {
				return nil, fmt.Errorf("line %d: bad close_time: %w", line, ports.ErrMalformedSeries)
			}
		}
		klines = append(klines, k)
	}
	if len(klines) == 0 {
		return nil, ports.ErrMissingData
	}
	return klines, nil
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// WriteTradesToCSV exports a trade log.
func WriteTradesToCSV(trades []domain.Trade, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("failed to create trades directory: %w", err)
	}
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"symbol", "entry_time", "exit_time", "entry_price", "exit_price", "size", "pnl", "pnl_pct", "reason"}); err != nil {
		return err
	}
	for _, t := range trades {
		err := writer.Write([]string{
			t.Symbol,
			t.EntryTime.UTC().Format(time.RFC3339),
			t.ExitTime.UTC().Format(time.RFC3339),
			strconv.FormatFloat(t.EntryPrice, 'f', -1, 64),
			strconv.FormatFloat(t.ExitPrice, 'f', -1, 64),
			strconv.FormatFloat(t.Size, 'f', -1, 64),
			strconv.FormatFloat(t.PNL, 'f', -1, 64),
			strconv.FormatFloat(t.PNLPercent, 'f', -1, 64),
			string(t.CloseReason),
		})
		if err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
