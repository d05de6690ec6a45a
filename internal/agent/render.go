package agent

import (
	"bytes"
	"html/template"
)

const fragmentsHTML = `
{{define "overview"}}<div class="tbl_ctrl_{{.Class}}" data-agent="{{.ID}}" data-action="{{.Action}}">&nbsp;</div>
<div class="tbl_row" data-toggle="{{.ID}}-det" style="display:block;float:left;">
<div class="tbl_col_{{.Class}}" title="{{.ID}}">{{.ShortID}}&hellip;</div>
<div class="tbl_col_{{.Class}}">{{if eq .Address "N/A"}}<i>N/A</i>{{else}}{{.Address}}{{end}}</div>
<div class="tbl_col_{{.Class}}">{{if eq .Status "N/A"}}<i>N/A</i>{{else}}{{.Status}}{{end}}</div>
<br style="clear:both;">
</div>
<br style="clear:both;">{{end}}

{{define "detail"}}<div class="tbl_det_{{.Class}}"><b><i>Details:</i></b><br><pre>
{{- range .Lines}}{{.Name}}: {{.Value}}<br>{{end -}}
</pre></div>{{end}}

{{define "agent"}}<div class="agent" id="{{.ID}}" style="display:block;">
<div id="{{.ID}}-over">{{if .Snapshot}}{{template "overview" .Snapshot.Overview}}{{else}}<i>Loading&hellip;</i>{{end}}</div>
<div id="{{.ID}}-det" style="display:none;">{{if .Snapshot}}{{template "detail" .Snapshot.Detail}}{{end}}</div>
</div>{{end}}
`

var fragments = template.Must(template.New("fragments").Parse(fragmentsHTML))

type agentElement struct {
	ID       string
	Snapshot *Snapshot
}

// RenderElement renders the wrapper element of an agent with its overview and detail regions.
// A nil snapshot renders the pending state shown until the first refresh arrives.
func RenderElement(id string, s *Snapshot) (string, error) {
	return execute("agent", agentElement{ID: id, Snapshot: s})
}

// RenderOverview renders the content of the `<id>-over` region
func (s *Snapshot) RenderOverview() (string, error) {
	return execute("overview", s.Overview)
}

// RenderDetail renders the content of the `<id>-det` region
func (s *Snapshot) RenderDetail() (string, error) {
	return execute("detail", s.Detail)
}

func execute(name string, data interface{}) (string, error) {
	buf := &bytes.Buffer{}
	if err := fragments.ExecuteTemplate(buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
