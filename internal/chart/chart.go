// Package chart turns the tracked agents into the inputs of the pie and sunburst charts
package chart

import (
	"time"

	"github.com/qredo/attestation-console/internal/agent"
	"github.com/qredo/attestation-console/internal/status"
)

const (
	SunburstRootName = "agents sunburst chart"
	leafValue        = 100
)

type Leaf struct {
	ID    string `json:"id"`
	Value int    `json:"value"`
}

// Bucket groups the agents of one status code
type Bucket struct {
	Name     string `json:"name"`
	Children []Leaf `json:"children"`
}

// Tree is the two level hierarchy drawn by the sunburst chart: root, status bucket, agent
type Tree struct {
	Name     string   `json:"name"`
	Children []Bucket `json:"children"`
}

// Charts is the chart state published to the console
type Charts struct {
	Counts     [status.Count]int `json:"counts"`
	Pie        [][]interface{}   `json:"pie"`
	Options    PieOptions        `json:"options"`
	Sunburst   Tree              `json:"sunburst"`
	Skipped    int               `json:"skipped"`
	RenderedAt time.Time         `json:"renderedAt"`
}

// Build aggregates the agents in one pass. Agents without a known status are counted in Skipped.
func Build(agents []*agent.Agent, renderedAt time.Time) *Charts {
	counts, skipped := countStatuses(agents)

	return &Charts{
		Counts:     counts,
		Pie:        PieTable(counts),
		Options:    NewPieOptions(),
		Sunburst:   BuildSunburstTree(agents),
		Skipped:    skipped,
		RenderedAt: renderedAt,
	}
}

// BuildStatusCounts returns the number of agents per status code
func BuildStatusCounts(agents []*agent.Agent) [status.Count]int {
	counts, _ := countStatuses(agents)
	return counts
}

// BuildSunburstTree always returns every status bucket, empty ones included
func BuildSunburstTree(agents []*agent.Agent) Tree {
	tree := Tree{
		Name:     SunburstRootName,
		Children: make([]Bucket, status.Count),
	}
	for i, code := range status.Codes() {
		tree.Children[i] = Bucket{
			Name:     status.Label(code),
			Children: make([]Leaf, 0),
		}
	}

	for _, a := range agents {
		code, ok := knownCode(a)
		if !ok {
			continue
		}
		tree.Children[code].Children = append(tree.Children[code].Children, Leaf{ID: a.ID, Value: leafValue})
	}

	return tree
}

func countStatuses(agents []*agent.Agent) ([status.Count]int, int) {
	var counts [status.Count]int
	skipped := 0
	for _, a := range agents {
		code, ok := knownCode(a)
		if !ok {
			skipped++
			continue
		}
		counts[code]++
	}
	return counts, skipped
}

func knownCode(a *agent.Agent) (status.Code, bool) {
	if a == nil || a.OperationalState == nil || !a.OperationalState.Valid() {
		return 0, false
	}
	return *a.OperationalState, true
}
