package render

import (
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/bbernhard/radiology-playground/analysis"
)

const radarColor = "rgb(255, 99, 132)"

// Radar builds the radar chart over the full ranked order of a view. Every axis
// runs from 0 to 1 since means are per-class scores.
func Radar(title string, radar analysis.Radar) *charts.Radar {
	indicators := make([]*opts.Indicator, 0, len(radar.Labels))
	for _, label := range radar.Labels {
		indicators = append(indicators, &opts.Indicator{Name: label, Max: 1})
	}

	chart := charts.NewRadar()
	chart.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: title,
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(false),
		}),
		charts.WithRadarComponentOpts(opts.RadarComponent{
			Indicator: indicators,
			Shape:     "polygon",
		}),
	)
	chart.AddSeries("predictions", []opts.RadarData{{Name: title, Value: radar.Values}},
		charts.WithItemStyleOpts(opts.ItemStyle{Color: radarColor}),
	)
	return chart
}

// RadarHTML writes the radar chart as a standalone html page.
func RadarHTML(w io.Writer, title string, radar analysis.Radar) error {
	return Radar(title, radar).Render(w)
}
