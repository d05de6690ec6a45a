package chart

import (
	"github.com/qredo/attestation-console/internal/status"
)

type TextStyle struct {
	FontSize int `json:"fontSize"`
}

type Legend struct {
	TextStyle TextStyle `json:"textStyle"`
}

// PieOptions are the donut chart options understood by the charting library
type PieOptions struct {
	Title             string    `json:"title"`
	PieHole           float64   `json:"pieHole"`
	TitleTextStyle    TextStyle `json:"titleTextStyle"`
	Colors            []string  `json:"colors"`
	PieSliceTextStyle TextStyle `json:"pieSliceTextStyle"`
	Legend            Legend    `json:"legend"`
}

func NewPieOptions() PieOptions {
	return PieOptions{
		Title:          "Agents Status Pie Chart",
		PieHole:        0.4,
		TitleTextStyle: TextStyle{FontSize: 25},
		Colors: []string{
			"#BEBEBE", "#FFFF00", "black", "#88FF99", "black", "black",
			"black", "black", "black", "#FF6666", "black",
		},
		PieSliceTextStyle: TextStyle{FontSize: 18},
		Legend:            Legend{TextStyle: TextStyle{FontSize: 20}},
	}
}

// PieTable returns the two column table of the pie chart, header row first
func PieTable(counts [status.Count]int) [][]interface{} {
	rows := make([][]interface{}, 0, status.Count+1)
	rows = append(rows, []interface{}{"Status", "status"})
	for _, code := range status.Codes() {
		rows = append(rows, []interface{}{status.Label(code), counts[code]})
	}
	return rows
}
