// Package form handles the add-agent form: parsing the submitted fields, validating them
// before anything is sent to the backend and encoding them as the POST body.
package form

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

const (
	FieldUUID        = "uuid"
	FieldIP          = "ip"
	FieldPort        = "port"
	FieldPayloadType = "ptype"

	FieldTPMPolicy  = "tpm_policy"
	FieldVTPMPolicy = "vtpm_policy"
	FieldIMAPolicy  = "ima_policy"

	MalformedJSONMessage = "WEBAPP ERROR (FORM): Malformed JSON detected!"

	reasonMalformedJSON = "malformed JSON"
)

// JSONFields are the inputs holding JSON documents, checked in this order
var JSONFields = []string{FieldTPMPolicy, FieldVTPMPolicy, FieldIMAPolicy}

// FieldError points at the first input that failed validation
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return "invalid field `" + e.Field + "`: " + e.Reason
}

// MalformedJSON is true when one of the JSON inputs doesn't parse
func (e *FieldError) MalformedJSON() bool {
	return e.Reason == reasonMalformedJSON
}

// AddAgentRequest is the submitted add-agent form
type AddAgentRequest struct {
	UUID        string      `validate:"required,max=255"`
	IP          string      `validate:"omitempty,ip|hostname_rfc1123"`
	Port        int         `validate:"omitempty,min=1,max=65535"`
	PayloadType PayloadType `validate:"min=0,max=2"`

	JSON    map[string]string
	Uploads map[string]Upload

	// Extra holds the inputs the console doesn't interpret, forwarded untouched
	Extra url.Values
}

var validate = validator.New()

// Parse reads the form values. Port and payload type must be numeric when present.
func Parse(values url.Values) (*AddAgentRequest, error) {
	req := &AddAgentRequest{
		UUID:    strings.TrimSpace(values.Get(FieldUUID)),
		IP:      strings.TrimSpace(values.Get(FieldIP)),
		JSON:    make(map[string]string),
		Uploads: make(map[string]Upload),
		Extra:   url.Values{},
	}

	for key, v := range values {
		if !isKnownField(key) {
			req.Extra[key] = append([]string(nil), v...)
		}
	}

	if p := strings.TrimSpace(values.Get(FieldPort)); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, &FieldError{Field: FieldPort, Reason: "not a number"}
		}
		req.Port = port
	}

	if p := strings.TrimSpace(values.Get(FieldPayloadType)); p != "" {
		ptype, err := strconv.Atoi(p)
		if err != nil {
			return nil, &FieldError{Field: FieldPayloadType, Reason: "not a number"}
		}
		req.PayloadType = PayloadType(ptype)
	}

	for _, f := range JSONFields {
		if v, ok := values[f]; ok && len(v) > 0 {
			req.JSON[f] = v[0]
		}
	}

	for _, zone := range DropZones {
		upload := Upload{
			Data:  splitLines(values.Get(zone.DataField())),
			Names: splitLines(values.Get(zone.NameField())),
		}
		if len(upload.Data) > 0 {
			req.Uploads[zone.ID] = upload
		}
	}

	return req, nil
}

// Validate runs the struct rules, then parses every JSON input. The first failure is returned as *FieldError.
// Empty JSON inputs are left out of the request and pass.
func (r *AddAgentRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &FieldError{Field: structFieldName(verrs[0].StructField()), Reason: "failed `" + verrs[0].Tag() + "` rule"}
		}
		return errors.Wrap(err, "validate form")
	}

	for _, f := range JSONFields {
		raw := strings.TrimSpace(r.JSON[f])
		if raw == "" {
			continue
		}
		if !json.Valid([]byte(raw)) {
			return &FieldError{Field: f, Reason: reasonMalformedJSON}
		}
	}

	for id, u := range r.Uploads {
		zone, ok := FindDropZone(id)
		if !ok {
			continue
		}
		if len(u.Data) > 1 && !zone.Multi {
			return &FieldError{Field: zone.DataField(), Reason: ErrMultipleFiles.Error()}
		}
		if len(u.Data) != len(u.Names) {
			return &FieldError{Field: zone.NameField(), Reason: "file names don't match the uploaded files"}
		}
	}

	return nil
}

// Encode returns the form encoded POST body: the extra inputs as submitted, overridden by the normalised fields
func (r *AddAgentRequest) Encode() url.Values {
	values := url.Values{}
	for key, v := range r.Extra {
		values[key] = append([]string(nil), v...)
	}
	values.Set(FieldUUID, r.UUID)
	if r.IP != "" {
		values.Set(FieldIP, r.IP)
	}
	if r.Port != 0 {
		values.Set(FieldPort, strconv.Itoa(r.Port))
	}
	values.Set(FieldPayloadType, strconv.Itoa(int(r.PayloadType)))

	for _, f := range JSONFields {
		if v := strings.TrimSpace(r.JSON[f]); v != "" {
			values.Set(f, v)
		}
	}

	for _, zone := range DropZones {
		u, ok := r.Uploads[zone.ID]
		if !ok {
			continue
		}
		u.Set(zone, values)
	}

	return values
}

func isKnownField(key string) bool {
	switch key {
	case FieldUUID, FieldIP, FieldPort, FieldPayloadType:
		return true
	}
	for _, f := range JSONFields {
		if key == f {
			return true
		}
	}
	for _, zone := range DropZones {
		if key == zone.DataField() || key == zone.NameField() {
			return true
		}
	}
	return false
}

func structFieldName(name string) string {
	switch name {
	case "UUID":
		return FieldUUID
	case "IP":
		return FieldIP
	case "Port":
		return FieldPort
	case "PayloadType":
		return FieldPayloadType
	}
	return strings.ToLower(name)
}
