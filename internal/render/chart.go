package render

import (
	"encoding/json"
	"math"
	"net/url"
)

// QuickChartBase is the chart rendering endpoint.
const QuickChartBase = "https://quickchart.io/chart"

// QuickChartURL serializes a Chart.js config into a QuickChart render URL.
func QuickChartURL(config any) string {
	payload, err := json.Marshal(config)
	if err != nil {
		// Chart configs are built from plain maps and never fail to marshal.
		return QuickChartBase
	}
	return QuickChartBase + "?c=" + url.QueryEscape(string(payload))
}

// PerformanceChartURL builds the standard three-bar performance chart.
func PerformanceChartURL(title string, winRatePct, profitablePct, avgX float64) string {
	avgReturnPct := (avgX - 1.0) * 100.0
	config := map[string]any{
		"type": "bar",
		"data": map[string]any{
			"labels": []string{"Win Rate %", "Profitable %", "Avg Return %"},
			"datasets": []map[string]any{
				{
					"label":           "Performance",
					"backgroundColor": []string{"#38bdf8", "#4ade80", "#f59e0b"},
					"data": []float64{
						round2(winRatePct),
						round2(profitablePct),
						round2(avgReturnPct),
					},
				},
			},
		},
		"options": map[string]any{
			"plugins": map[string]any{
				"title":  map[string]any{"display": true, "text": title},
				"legend": map[string]any{"display": false},
			},
			"scales": map[string]any{
				"y": map[string]any{"beginAtZero": true},
			},
		},
	}
	return QuickChartURL(config)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
