package chart

import (
	"github.com/qredo/attestation-console/internal/status"
)

const defaultColor = "black"

var bucketColors = map[string]string{
	status.Label(status.Registered):   "rgb(111, 111, 111)",
	status.Label(status.GetQuote):     "rgb(29, 176, 0)",
	status.Label(status.InvalidQuote): "rgb(219, 2, 2)",
	status.Label(status.Start):        "rgb(255, 255, 0)",
}

// Color returns the fill of a sunburst node given its path below the root.
// Every node takes the color of its top level bucket.
func Color(path []string) string {
	if len(path) == 0 {
		return defaultColor
	}
	if c, ok := bucketColors[path[0]]; ok {
		return c
	}
	return defaultColor
}
