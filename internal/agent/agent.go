package agent

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"

	"github.com/qredo/attestation-console/internal/status"
)

const (
	FieldID               = "id"
	FieldOperationalState = "operational_state"
	FieldIP               = "ip"
	FieldPort             = "port"
)

// Field is one attribute of the agent object, kept in the order the backend sent it
type Field struct {
	Name  string
	Value json.RawMessage
}

// Agent is the last fetched state of a remote agent
type Agent struct {
	ID               string
	OperationalState *status.Code
	IP               *string
	Port             *int
	Fields           []Field
}

// Parse decodes an agent object. Unknown fields are kept as raw values in Fields.
func Parse(raw json.RawMessage) (*Agent, error) {
	fields, err := orderedFields(raw)
	if err != nil {
		return nil, err
	}

	a := &Agent{Fields: fields}
	for _, f := range fields {
		switch f.Name {
		case FieldID:
			if err := json.Unmarshal(f.Value, &a.ID); err != nil {
				return nil, errors.Wrap(err, "agent id")
			}
		case FieldOperationalState:
			if code, ok := parseInt(f.Value); ok {
				c := status.Code(code)
				a.OperationalState = &c
			}
		case FieldIP:
			var ip string
			if err := json.Unmarshal(f.Value, &ip); err == nil {
				a.IP = &ip
			}
		case FieldPort:
			if port, ok := parseInt(f.Value); ok {
				a.Port = &port
			}
		}
	}

	if a.ID == "" {
		return nil, errors.New("agent id is empty")
	}

	return a, nil
}

// Status returns the operational state descriptor. Agents without a known state get status.ErrUnknownStatus.
func (a *Agent) Status() (status.Descriptor, error) {
	if a.OperationalState == nil {
		return status.Descriptor{}, errors.Wrap(status.ErrUnknownStatus, "operational state missing")
	}
	return status.Describe(*a.OperationalState)
}

func orderedFields(raw json.RawMessage) ([]Field, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, errors.Wrap(err, "read agent object")
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("agent is not an object")
	}

	fields := make([]Field, 0)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, errors.Wrap(err, "read agent field")
		}

		name, ok := tok.(string)
		if !ok {
			return nil, errors.New("unexpected agent field name")
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, errors.Wrapf(err, "read agent field `%s`", name)
		}

		fields = append(fields, Field{Name: name, Value: value})
	}

	return fields, nil
}

// parseInt accepts numbers and numeric strings, the backend isn't consistent about ports
func parseInt(raw json.RawMessage) (int, bool) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
		return 0, false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if i, err := strconv.Atoi(s); err == nil {
			return i, true
		}
	}

	return 0, false
}
