package report

import (
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/io-crosscheck/backend/internal/models"
)

var htmlTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>IO Crosscheck Report</title>
<style>
  body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; margin: 20px; background: #f5f5f5; }
  h1 { color: #2c3e50; }
  .summary { display: flex; gap: 16px; flex-wrap: wrap; margin-bottom: 24px; }
  .card { background: white; border-radius: 8px; padding: 16px 24px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); min-width: 140px; }
  .card .count { font-size: 2em; font-weight: bold; }
  .card .label { color: #666; font-size: 0.9em; }
  .both { color: #27ae60; }
  .rack-only { color: #f39c12; }
  .io-only { color: #e74c3c; }
  .plc-only { color: #3498db; }
  .conflict { color: #e67e22; }
  .spare { color: #95a5a6; }
  table { width: 100%; border-collapse: collapse; background: white; }
  th, td { border: 1px solid #ddd; padding: 6px 10px; font-size: 0.85em; text-align: left; }
  th { background: #4472C4; color: white; position: sticky; top: 0; }
  tr:hover { background-color: #eef; }
  .cls-Both { background-color: #d4edda; }
  .cls-Rack-Only { background-color: #fff3cd; }
  .cls-IO-List-Only { background-color: #f8d7da; }
  .cls-PLC-Only { background-color: #d1ecf1; }
  .cls-Conflict { background-color: #ffeaa7; }
  .cls-Spare { background-color: #e9ecef; }
</style>
</head>
<body>
<h1>IO Crosscheck — Verification Report</h1>

<div class="summary">
  <div class="card"><div class="count">{{.Total}}</div><div class="label">Total</div></div>
  <div class="card"><div class="count both">{{.Both}}</div><div class="label">Both</div></div>
  <div class="card"><div class="count rack-only">{{.RackOnly}}</div><div class="label">Rack Only</div></div>
  <div class="card"><div class="count io-only">{{.IOListOnly}}</div><div class="label">IO List Only</div></div>
  <div class="card"><div class="count plc-only">{{.PLCOnly}}</div><div class="label">PLC Only</div></div>
  <div class="card"><div class="count conflict">{{.Conflicts}}</div><div class="label">Conflicts</div></div>
  <div class="card"><div class="count spare">{{.Spares}}</div><div class="label">Spares</div></div>
</div>

<table>
<thead>
<tr>
  <th>Device Tag</th><th>IO Tag</th><th>Panel</th><th>Rack</th>
  <th>Slot</th><th>Channel</th><th>PLC Address</th><th>Module Type</th>
  <th>Classification</th><th>Strategy</th><th>Confidence</th>
  <th>PLC Tag</th><th>PLC Description</th><th>Conflict</th>
</tr>
</thead>
<tbody>
{{- range .Rows}}
<tr class="{{.Class}}">{{range .Cols}}<td>{{.}}</td>{{end}}</tr>
{{- end}}
</tbody>
</table>
</body>
</html>
`))

type htmlRow struct {
	Class string
	Cols  []string
}

type htmlData struct {
	Total      int
	Both       int
	RackOnly   int
	IOListOnly int
	PLCOnly    int
	Conflicts  int
	Spares     int
	Rows       []htmlRow
}

// classCSS turns an outcome into the row's CSS class name.
func classCSS(c models.Classification) string {
	return "cls-" + strings.ReplaceAll(string(c), " ", "-")
}

// WriteHTML renders the self-contained browser report. Template escaping
// covers tag descriptions that carry angle brackets or quotes.
func WriteHTML(results []*models.MatchResult, summary Summary, w io.Writer) error {
	data := htmlData{
		Total:      summary.Total,
		Both:       summary.Count(models.ClassBoth),
		RackOnly:   summary.Count(models.ClassRackOnly),
		IOListOnly: summary.Count(models.ClassIOListOnly),
		PLCOnly:    summary.Count(models.ClassPLCOnly),
		Conflicts:  summary.Conflicts,
		Spares:     summary.Count(models.ClassSpare),
		Rows:       make([]htmlRow, 0, len(results)),
	}
	for _, r := range results {
		values := detailValues(r)
		data.Rows = append(data.Rows, htmlRow{
			Class: classCSS(r.Classification),
			Cols:  values[:len(values)-1], // audit trail stays in the XLSX report
		})
	}

	if err := htmlTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("rendering html report: %w", err)
	}
	return nil
}
