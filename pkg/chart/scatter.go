// Package chart renders article polarity charts as standalone HTML pages.
package chart

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// Point is one article on the scatter.
type Point struct {
	Title    string
	URL      string
	Date     time.Time
	Polarity float64
}

// Default axis ranges. They widen to fit points that fall outside.
var (
	DefaultStart       = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	DefaultEnd         = time.Date(2021, time.December, 30, 0, 0, 0, 0, time.UTC)
	DefaultMinPolarity = -0.2
	DefaultMaxPolarity = 0.4
)

// RenderScatter writes an HTML scatter of polarity against publish date.
func RenderScatter(w io.Writer, title string, points []Point) error {
	start, end := DefaultStart, DefaultEnd
	minY, maxY := DefaultMinPolarity, DefaultMaxPolarity

	data := make([]opts.ScatterData, 0, len(points))
	for _, p := range points {
		if p.Date.Before(start) {
			start = p.Date
		}
		if p.Date.After(end) {
			end = p.Date
		}
		minY = math.Min(minY, p.Polarity)
		maxY = math.Max(maxY, p.Polarity)
		data = append(data, opts.ScatterData{
			Name:       p.Title,
			Value:      []interface{}{p.Date.UnixMilli(), p.Polarity},
			SymbolSize: 8,
		})
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: title,
			Width:     "1200px",
			Height:    "600px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: fmt.Sprintf("%d articles", len(points)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "item"}),
		charts.WithXAxisOpts(opts.XAxis{
			Name: "Date Published",
			Type: "time",
			Min:  start.UnixMilli(),
			Max:  end.UnixMilli(),
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name: "Average Sentence Polarity",
			Type: "value",
			Min:  minY,
			Max:  maxY,
		}),
	)
	scatter.AddSeries("average_sentence_polarity", data)

	if err := scatter.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}
