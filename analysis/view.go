package analysis

import (
	"fmt"
	"math"
)

// Row is one line of the ranked table.
type Row struct {
	Label    string  `json:"label"`
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
	Rank     int     `json:"rank"`
	Tier     Tier    `json:"tier"`
	Color    string  `json:"color"`
	Active   bool    `json:"active"`
	Display  string  `json:"display"`
}

// Radar is the full ranked order plotted on the radar chart.
type Radar struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// View is the presentation model of a loaded prediction set.
type View struct {
	Rows          []Row  `json:"rows"`
	ActiveLabel   string `json:"active_label"`
	ActiveHeatmap string `json:"active_heatmap"`
	Radar         Radar  `json:"radar"`
	ShowUp        bool   `json:"show_up"`
	ShowDown      bool   `json:"show_down"`
	Expanded      bool   `json:"expanded"`
	HasMore       bool   `json:"has_more"`
	Total         int    `json:"total"`
}

// Render derives the view from the current state. Nothing it returns is kept.
func Render(set *PredictionSet, ranked []RankedEntry, sel *Selection, scroll ScrollState, policy Policy) View {
	setMax := set.MaxMean()
	active := sel.ActiveLabel()

	v := View{
		Rows:        []Row{},
		ActiveLabel: active,
		Radar: Radar{
			Labels: make([]string, 0, len(ranked)),
			Values: make([]float64, 0, len(ranked)),
		},
		ShowUp:   scroll.ShowUp(),
		ShowDown: scroll.ShowDown(),
		Expanded: sel.Expanded(),
		HasMore:  len(ranked) > policy.TableLimit,
		Total:    len(ranked),
	}
	v.ActiveHeatmap, _ = set.Heatmap(active)

	for _, e := range TableSlice(ranked, sel.Expanded(), policy.TableLimit) {
		tier := policy.Classify(e.Mean, setMax)
		v.Rows = append(v.Rows, Row{
			Label:    e.Label,
			Mean:     e.Mean,
			Variance: e.Variance,
			Rank:     e.Rank,
			Tier:     tier,
			Color:    tier.Color(),
			Active:   e.Label == active,
			Display:  FormatScore(e.Mean, e.Variance),
		})
	}
	for _, e := range ranked {
		v.Radar.Labels = append(v.Radar.Labels, e.Label)
		v.Radar.Values = append(v.Radar.Values, e.Mean)
	}
	return v
}

// FormatScore renders mean and variance as whole percentages, e.g. "87%(4%)".
func FormatScore(mean, variance float64) string {
	return fmt.Sprintf("%d%%(%d%%)", int(math.Round(mean*100)), int(math.Round(variance*100)))
}
