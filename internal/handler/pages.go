package handler

import (
	"html/template"

	"github.com/pkordes/rideshare-importer/internal/domain"
	"github.com/pkordes/rideshare-importer/internal/messages"
)

// pages holds the import screens. The progress page is written in pieces:
// "head" and "progress-open" once, one "progress" per trip, then "done" or
// "aborted".
var pages = template.Must(template.New("pages").Parse(`
{{- define "head" -}}
<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>{{.Msgs.Heading}}</title></head>
<body><div class="wrap"><h2>{{.Msgs.Heading}}</h2>
{{- end}}

{{- define "foot"}}</div></body></html>
{{end}}

{{- define "form" -}}
{{template "head" .}}
<div class="narrow">
<p>{{.Msgs.Intro}}</p>
<h3>{{.Msgs.HowTo}}</h3>
<ol>{{range .Msgs.Steps}}<li>{{.}}</li>{{end}}</ol>
<form enctype="multipart/form-data" method="post" action="{{.Action}}">
<p><input type="file" id="upload" name="import" accept=".json,application/json" required>
<input type="hidden" name="max_file_size" value="{{.MaxBytes}}"></p>
<p><button type="submit">{{.Msgs.SubmitButton}}</button></p>
</form>
</div>
{{template "foot" .}}
{{- end}}

{{- define "error" -}}
{{template "head" .}}
<p>{{.Msgs.UploadError}}</p>
<p><strong>{{.Detail}}</strong></p>
{{template "foot" .}}
{{- end}}

{{- define "progress-open" -}}
{{template "head" .}}
<ol>
{{- end}}

{{- define "progress" -}}
<li>{{printf .Msgs.Importing .Result.ExternalID}}
{{- with .Result.Err}} <strong>{{printf $.Msgs.Failed $.Result.ExternalID}}: {{.}}</strong>{{end}}</li>
{{end}}

{{- define "done" -}}
</ol>
<h3>{{.Msgs.AllDone}} <a href="{{.SiteURL}}">{{.Msgs.HaveFun}}</a></h3>
{{template "foot" .}}
{{- end}}

{{- define "aborted" -}}
</ol>
<p>{{.Msgs.UploadError}}</p>
<p><strong>{{.Detail}}</strong></p>
{{template "foot" .}}
{{- end}}
`))

// pageData is the input of every template in pages.
type pageData struct {
	Msgs     messages.Catalog
	Action   string
	MaxBytes int64
	Detail   string
	SiteURL  string
	Result   domain.TripResult
}
