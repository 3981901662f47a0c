package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"trendBot/internal/domain"
)

// WriteEquityChart renders the equity curve as a standalone HTML line chart.
// The first point is labeled "start"; the rest are labeled with the close time of the trade
// that produced them.
func WriteEquityChart(w io.Writer, title string, equity []float64, trades []domain.Trade) error {
	xAxis := make([]string, len(equity))
	points := make([]opts.LineData, len(equity))
	for i, v := range equity {
		switch {
		case i == 0:
			xAxis[i] = "start"
		case i-1 < len(trades):
			xAxis[i] = formatTime(trades[i-1].ExitTime)
		default:
			xAxis[i] = fmt.Sprintf("#%d", i)
		}
		points[i] = opts.LineData{Value: v}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: title,
			Width:     "1200px",
			Height:    "600px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: fmt.Sprintf("%d closed trades", len(trades)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
		charts.WithYAxisOpts(opts.YAxis{Scale: opts.Bool(true)}),
	)
	line.SetXAxis(xAxis).AddSeries("Equity", points,
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
	)

	if err := line.Render(w); err != nil {
		return fmt.Errorf("failed to render equity chart: %w", err)
	}
	return nil
}

// SaveEquityChart writes dir/equity_<runID>.html and returns the path.
func SaveEquityChart(dir, runID string, equity []float64, trades []domain.Trade) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("equity_%s.html", runID))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create chart file: %w", err)
	}
	defer f.Close()

	if err := WriteEquityChart(f, "Equity "+runID, equity, trades); err != nil {
		return "", err
	}
	return path, nil
}
