// Package status classifies the operational state codes reported for an agent.
// Every known code maps to a human label, the CSS class used to render the agent
// and the HTTP method of the action offered for that state.
package status

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

type Code int

const (
	Registered Code = iota
	Start
	Saved
	GetQuote
	GetQuoteRetry
	ProvideV
	ProvideVRetry
	Failed
	Terminated
	InvalidQuote
	TenantQuoteFailed
)

// Count is the number of known status codes, 0 to Count-1
const Count = 11

var ErrUnknownStatus = errors.New("unknown operational state")

type Descriptor struct {
	Label        string `json:"label"`
	DisplayClass string `json:"class"`
	Action       string `json:"action"`
}

var table = [Count]Descriptor{
	Registered:        {"Registered", "inactive", http.MethodPost},
	Start:             {"Start", "processing", http.MethodDelete},
	Saved:             {"Saved", "inactive", http.MethodPut},
	GetQuote:          {"Get Quote", "processed", http.MethodDelete},
	GetQuoteRetry:     {"Get Quote (retry)", "processing", http.MethodDelete},
	ProvideV:          {"Provide V", "processed", http.MethodDelete},
	ProvideVRetry:     {"Provide V (retry)", "processing", http.MethodDelete},
	Failed:            {"Failed", "failed", http.MethodPost},
	Terminated:        {"Terminated", "inactive", http.MethodPut},
	InvalidQuote:      {"Invalid Quote", "invalid", http.MethodDelete},
	TenantQuoteFailed: {"Tenant Quote Failed", "invalid", http.MethodDelete},
}

func (c Code) Valid() bool {
	return c >= 0 && c < Count
}

// Describe returns the descriptor of a known code, ErrUnknownStatus otherwise
func Describe(code Code) (Descriptor, error) {
	if !code.Valid() {
		return Descriptor{}, errors.Wrapf(ErrUnknownStatus, "code %d", code)
	}

	return table[code], nil
}

// Label returns the label of a known code, or an empty string
func Label(code Code) string {
	if !code.Valid() {
		return ""
	}
	return table[code].Label
}

// Format renders a code the way the overview shows it, ex: `3 (Get Quote)`
func Format(code Code) string {
	if !code.Valid() {
		return fmt.Sprintf("%d (unknown)", code)
	}
	return fmt.Sprintf("%d (%s)", code, table[code].Label)
}

// Codes lists every known code in ascending order
func Codes() []Code {
	codes := make([]Code, Count)
	for i := range codes {
		codes[i] = Code(i)
	}
	return codes
}
