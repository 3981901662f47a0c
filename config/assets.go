package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Asset is one entry of the assets file: a symbol, its bar timeframe, the first day
// to download and its portfolio weight.
type Asset struct {
	Symbol    string  `yaml:"symbol"`
	Timeframe string  `yaml:"timeframe"`
	StartDate string  `yaml:"start_date"`
	Weight    float64 `yaml:"weight"`
}

// Start parses StartDate as YYYY-MM-DD in UTC.
func (a Asset) Start() (time.Time, error) {
	return time.Parse("2006-01-02", a.StartDate)
}

type assetsFile struct {
	Assets []Asset `yaml:"assets"`
}

// LoadAssets reads the asset list from a YAML file.
func LoadAssets(path string) ([]Asset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read assets file %s: %w", path, err)
	}
	return ParseAssets(data)
}

// ParseAssets decodes and validates an asset list. Symbols are upper-cased and the
// timeframe defaults to 1h.
func ParseAssets(data []byte) ([]Asset, error) {
	var file assetsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse assets: %w", err)
	}
	if len(file.Assets) == 0 {
		return nil, errors.New("assets file lists no assets")
	}

	var errs []error
	seen := make(map[string]bool, len(file.Assets))
	for i := range file.Assets {
		a := &file.Assets[i]
		a.Symbol = strings.ToUpper(strings.TrimSpace(a.Symbol))
		if a.Timeframe == "" {
			a.Timeframe = "1h"
		}
		switch {
		case a.Symbol == "":
			errs = append(errs, fmt.Errorf("asset %d: symbol is required", i))
			continue
		case seen[a.Symbol]:
			errs = append(errs, fmt.Errorf("asset %s: duplicate symbol", a.Symbol))
		}
		seen[a.Symbol] = true
		if a.Weight < 0 {
			errs = append(errs, fmt.Errorf("asset %s: weight cannot be negative", a.Symbol))
		}
		if a.StartDate != "" {
			if _, err := a.Start(); err != nil {
				errs = append(errs, fmt.Errorf("asset %s: start_date must be YYYY-MM-DD", a.Symbol))
			}
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return file.Assets, nil
}

// Symbols returns the asset symbols in file order.
func Symbols(assets []Asset) []string {
	out := make([]string, len(assets))
	for i, a := range assets {
		out[i] = a.Symbol
	}
	return out
}

// Weights returns the weight of every configured asset keyed by symbol. Assets without a
// weight map to 0, which the ledger reads as an equal 1/N share of all configured assets.
func Weights(assets []Asset) map[string]float64 {
	out := make(map[string]float64, len(assets))
	for _, a := range assets {
		out[a.Symbol] = a.Weight
	}
	return out
}
