package agent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/qredo/attestation-console/internal/status"
)

const (
	NotAvailable = "N/A"
	shortIDLen   = 8

	// unknownClass renders agents whose state can't be classified
	unknownClass = "invalid"
)

// Overview is the one line summary of an agent
type Overview struct {
	ID      string `json:"id"`
	ShortID string `json:"shortID"`
	Address string `json:"address"`
	Status  string `json:"status"`
	Class   string `json:"class"`
	Action  string `json:"action"`
}

type DetailLine struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Detail is the expanded panel listing every field of the agent
type Detail struct {
	Class string       `json:"class"`
	Lines []DetailLine `json:"lines"`
}

// Snapshot holds both renderable projections of one fetched agent
type Snapshot struct {
	Agent     *Agent    `json:"-"`
	Overview  Overview  `json:"overview"`
	Detail    Detail    `json:"detail"`
	FetchedAt time.Time `json:"fetchedAt"`
}

func NewSnapshot(a *Agent, fetchedAt time.Time) *Snapshot {
	class := unknownClass
	action := ""
	statusText := NotAvailable
	if a.OperationalState != nil {
		statusText = status.Format(*a.OperationalState)
	}
	if d, err := a.Status(); err == nil {
		class = d.DisplayClass
		action = d.Action
	}

	return &Snapshot{
		Agent: a,
		Overview: Overview{
			ID:      a.ID,
			ShortID: shortID(a.ID),
			Address: address(a),
			Status:  statusText,
			Class:   class,
			Action:  action,
		},
		Detail: Detail{
			Class: class,
			Lines: detailLines(a),
		},
		FetchedAt: fetchedAt,
	}
}

func shortID(id string) string {
	runes := []rune(id)
	if len(runes) <= shortIDLen {
		return id
	}
	return string(runes[:shortIDLen])
}

func address(a *Agent) string {
	if a.IP == nil || a.Port == nil {
		return NotAvailable
	}
	return fmt.Sprintf("%s:%d", *a.IP, *a.Port)
}

func detailLines(a *Agent) []DetailLine {
	lines := make([]DetailLine, 0, len(a.Fields))
	for _, f := range a.Fields {
		value := fieldText(f.Value)
		if f.Name == FieldOperationalState && a.OperationalState != nil {
			value = status.Format(*a.OperationalState)
		}

		lines = append(lines, DetailLine{Name: f.Name, Value: value})
	}
	return lines
}

// fieldText pretty prints objects and arrays, unquotes strings and keeps scalars as sent
func fieldText(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return ""
	}

	switch trimmed[0] {
	case '{', '[':
		buf := &bytes.Buffer{}
		if err := json.Indent(buf, trimmed, "", "  "); err != nil {
			return string(trimmed)
		}
		return buf.String()
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
	}

	return strings.TrimSpace(string(trimmed))
}
