package apiclient

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
)

// Envelope is the standard backend response wrapper
type Envelope struct {
	Status     string
	Results    json.RawMessage
	HTTPStatus int
}

// Failed is true for envelopes delivered with an HTTP 500, the backend reported an application error
func (e *Envelope) Failed() bool {
	return e.HTTPStatus != http.StatusOK
}

// ResultsText renders results for log lines: strings unquoted, anything else as compact JSON
func (e *Envelope) ResultsText() string {
	return rawText(e.Results)
}

func parseEnvelope(data []byte, httpStatus int) (*Envelope, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}

	env := &Envelope{HTTPStatus: httpStatus}
	if status, ok := fields["status"]; ok {
		env.Status = rawText(status)
	}

	results, ok := fields["results"]
	if !ok {
		return env, &MalformedEnvelope{Missing: "results"}
	}
	env.Results = results

	return env, nil
}

func rawText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}

	buf := &bytes.Buffer{}
	if err := json.Compact(buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

type uuidsResults struct {
	UUIDs *[]string `json:"uuids"`
}

type logResults struct {
	Log *[]string `json:"log"`
}

// DecodeUUIDs extracts the agent id listing of a collection response
func DecodeUUIDs(env *Envelope) ([]string, error) {
	res := uuidsResults{}
	if err := decodeResults(env, &res); err != nil {
		return nil, err
	}

	if res.UUIDs == nil {
		return nil, &MalformedEnvelope{Missing: "uuids"}
	}

	return *res.UUIDs, nil
}

// DecodeLog extracts the log lines of a log response
func DecodeLog(env *Envelope) ([]string, error) {
	res := logResults{}
	if err := decodeResults(env, &res); err != nil {
		return nil, err
	}

	if res.Log == nil {
		return nil, &MalformedEnvelope{Missing: "log"}
	}

	return *res.Log, nil
}

// DecodeAgent checks the results are a single agent object and returns it raw
func DecodeAgent(env *Envelope) (json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := decodeResults(env, &fields); err != nil {
		return nil, err
	}

	if _, ok := fields["id"]; !ok {
		return nil, &MalformedEnvelope{Missing: "id"}
	}

	return env.Results, nil
}

func decodeResults(env *Envelope, v interface{}) error {
	if env == nil || len(env.Results) == 0 {
		return &MalformedEnvelope{Missing: "results"}
	}

	if env.Failed() {
		return &MalformedEnvelope{Reason: "backend reported status " + strconv.Itoa(env.HTTPStatus)}
	}

	if err := json.Unmarshal(env.Results, v); err != nil {
		return &MalformedEnvelope{Reason: "unexpected results shape: " + err.Error()}
	}

	return nil
}
