package report

import (
	"html/template"
	"io"

	"github.com/thefaftek-git/CA-Scanner-sub006/model"
)

// HTMLRenderer writes a standalone report page.
type HTMLRenderer struct{}

var htmlTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<title>Conditional Access Policy Comparison</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #ccc; padding: 6px 10px; text-align: left; }
th { background: #f0f0f0; }
.Identical { color: #2e7d32; }
.SemanticallyEquivalent { color: #558b2f; }
.Different { color: #c62828; }
.SourceOnly, .ReferenceOnly { color: #ef6c00; }
.diff { font-size: 0.9em; color: #555; }
</style>
</head>
<body>
<h1>Conditional Access Policy Comparison</h1>
<h2>Summary</h2>
<table>
<tr><th>Source</th><th>Reference</th><th>Identical</th><th>Equivalent</th><th>Different</th><th>Source only</th><th>Reference only</th></tr>
<tr>
<td>{{.Summary.TotalSource}}</td>
<td>{{.Summary.TotalReference}}</td>
<td>{{.Summary.Identical}}</td>
<td>{{.Summary.SemanticallyEquivalent}}</td>
<td>{{.Summary.Different}}</td>
<td>{{.Summary.SourceOnly}}</td>
<td>{{.Summary.ReferenceOnly}}</td>
</tr>
</table>
<h2>Policies</h2>
<table>
<tr><th>Policy</th><th>Outcome</th><th>Differences</th></tr>
{{range .Pairs}}
<tr>
<td>{{.Pair.DisplayName}}</td>
<td class="{{.Outcome}}">{{.Outcome}}</td>
<td>
{{range .Diffs}}<div class="diff">{{.FieldPath}} ({{.Kind}}): {{.SourceValue}} &rarr; {{.ReferenceValue}}</div>{{end}}
</td>
</tr>
{{end}}
</table>
{{if .Diagnostics}}
<h2>Diagnostics</h2>
<table>
<tr><th>Kind</th><th>File</th><th>Detail</th></tr>
{{range .Diagnostics}}
<tr><td>{{.Kind}}</td><td>{{.File}}</td><td>{{.Detail}}</td></tr>
{{end}}
</table>
{{end}}
</body>
</html>
`))

func (r *HTMLRenderer) Render(w io.Writer, result *model.ComparisonResult) error {
	return htmlTemplate.Execute(w, result)
}
