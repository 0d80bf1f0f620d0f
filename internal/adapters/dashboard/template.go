package dashboard

import (
	"github.com/mikey/mail-lens/internal/adapters/export"
	"github.com/mikey/mail-lens/internal/core"
	"github.com/mikey/mail-lens/internal/report"
)

type indexView struct {
	Running    bool
	HasResults bool
	File       string
	Metadata   export.Metadata
	Summary    report.Summary
	Results    []core.ClassificationResult
}

const indexTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>mail-lens</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; }
td, th { border: 1px solid #ccc; padding: 4px 8px; text-align: left; }
.failed { color: #a00; }
</style>
</head>
<body>
<h1>mail-lens</h1>
<p>Run state: {{if .Running}}running{{else}}idle{{end}}</p>
<form method="post" action="/api/runs"><button type="submit">Classify input folder</button></form>
{{if .HasResults}}
<h2>Latest run</h2>
<p>{{.File}}, model {{.Metadata.Model}}, exported {{.Metadata.ExportDate.Format "2006-01-02 15:04:05"}}</p>
<p>Total {{.Summary.TotalEmails}}, processed {{.Summary.Successful}}, failed {{.Summary.Failed}}
({{printf "%.1f" .Summary.SuccessRate}}% success)</p>
{{with .Summary.Confidence}}<p>Confidence: avg {{printf "%.3f" .Average}}, min {{printf "%.3f" .Min}}, max {{printf "%.3f" .Max}}</p>{{end}}
<h3>Top categories</h3>
<table>
<tr><th>Category</th><th>Emails</th></tr>
{{range .Summary.TopCategories}}<tr><td>{{.Category}}</td><td>{{.Count}}</td></tr>
{{end}}</table>
<h3>Emails</h3>
<table>
<tr><th>File</th><th>Subject</th><th>Category</th><th>Confidence</th></tr>
{{range .Results}}<tr{{if not .Processed}} class="failed"{{end}}><td>{{.Filename}}</td><td>{{.SubjectDecoded}}</td><td>{{range $i, $c := .Categories}}{{if eq $i 0}}{{$c.Category}}{{end}}{{end}}</td><td>{{printf "%.4f" .Confidence}}</td></tr>
{{end}}</table>
{{else}}
<p>No results exported yet.</p>
{{end}}
</body>
</html>
`
