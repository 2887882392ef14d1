package render

import (
	"fmt"
	"html/template"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/rotisserie/eris"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sentaiment/report-cli/internal/model"
)

// Output is a rendered report ready to be written or handed to the host.
type Output struct {
	HTML     string `json:"html"`
	Filename string `json:"filename"`
}

var nonSlugRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slug converts a company name to a filename-safe token: diacritics folded,
// lowercased, runs of non-alphanumerics collapsed to single dashes.
func Slug(name string) string {
	folded, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		name,
	)
	if err != nil {
		folded = name
	}
	slug := nonSlugRe.ReplaceAllString(strings.ToLower(folded), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "report"
	}
	return slug
}

// Filename builds the report's output name:
// competitive-report-{slug}-{timestamp}.html, with the RFC 3339 timestamp's
// colons and dots replaced by dashes so the name is safe on any filesystem.
func Filename(company string, ts time.Time) string {
	stamp := ts.UTC().Format(time.RFC3339)
	stamp = strings.NewReplacer(":", "-", ".", "-").Replace(stamp)
	return fmt.Sprintf("competitive-report-%s-%s.html", Slug(company), stamp)
}

// Render produces the static HTML report for a reconciled document.
func Render(doc *model.ReportDocument) (Output, error) {
	if doc == nil {
		return Output{}, eris.New("render: nil document")
	}

	var b strings.Builder
	if err := reportTmpl.Execute(&b, doc); err != nil {
		return Output{}, eris.Wrap(err, "render: execute template")
	}

	return Output{
		HTML:     b.String(),
		Filename: Filename(doc.Company, doc.Metadata.GeneratedAt),
	}, nil
}

var reportTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"pct": func(f float64) string { return fmt.Sprintf("%.0f%%", f*100) },
	"pos": func(f float64) string { return fmt.Sprintf("%.2f", f) },
	"score": func(s *float64) string {
		if s == nil {
			return "—"
		}
		return fmt.Sprintf("%.1f", *s)
	},
}).Parse(reportHTML))

const reportHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Competitive Report: {{.Company}}</title>
<style>
body { font-family: -apple-system, "Segoe UI", Helvetica, Arial, sans-serif; margin: 2rem auto; max-width: 960px; color: #1a202c; }
h1 { border-bottom: 3px solid #2b6cb0; padding-bottom: .5rem; }
h2 { color: #2b6cb0; margin-top: 2rem; }
table { border-collapse: collapse; width: 100%; margin: 1rem 0; }
th, td { border: 1px solid #cbd5e0; padding: .5rem .75rem; text-align: left; }
th { background: #ebf4ff; }
tr:nth-child(even) { background: #f7fafc; }
.meta { color: #718096; font-size: .875rem; }
.rank-1 { font-weight: 700; }
.placeholder { color: #a0aec0; font-style: italic; }
.rationale { font-size: .875rem; color: #4a5568; }
.badge { display: inline-block; padding: .1rem .4rem; border-radius: .25rem; font-size: .75rem; background: #edf2f7; }
</style>
</head>
<body>
<h1>Competitive Report: {{.Company}}</h1>
<p class="meta">Generated {{.Metadata.GeneratedAt.Format "2006-01-02 15:04 UTC"}} ·
{{.Metadata.TotalScenarios}} scenario(s) ·
{{len .Metadata.CompetitorsAnalyzed}} competitor(s) ·
{{.Metadata.FragmentsConsumed}} input fragment(s)</p>

{{if .HeadToHead}}
<h2>Head-to-Head</h2>
<table>
<tr><th>Company</th><th>Wins</th><th>Scenarios</th><th>Avg Position</th><th>Win Rate</th></tr>
{{range .HeadToHead}}
<tr><td>{{.Company}}</td><td>{{.Wins}}</td><td>{{.Scenarios}}</td><td>{{pos .AvgPosition}}</td><td>{{pct .WinRate}}</td></tr>
{{end}}
</table>
{{end}}

{{range .Scenarios}}
<h2>{{if .ID}}{{.ID}}. {{end}}{{.Title}}</h2>
{{if .Description}}<p>{{.Description}}</p>{{end}}
{{if .Error}}<p class="placeholder">Partial data: {{.Error}}</p>{{end}}
{{if .RankedCompetitors}}
<table>
<tr><th>Rank</th><th>Company</th><th>Score</th><th>Rationale</th></tr>
{{range .RankedCompetitors}}
<tr{{if eq .Rank 1}} class="rank-1"{{end}}><td>{{.Rank}}</td><td>{{.Company}}</td><td>{{score .Score}}</td><td class="rationale">{{.Rationale}}</td></tr>
{{end}}
</table>
{{else}}
<p class="placeholder">No ranked competitors.</p>
{{end}}
{{if .KeyFindings}}
<ul>{{range .KeyFindings}}<li>{{.}}</li>{{end}}</ul>
{{end}}
{{end}}

{{if .Citations}}
<h2>Citations</h2>
<table>
<tr><th>Claim</th><th>Source</th><th>Authority</th><th>Status</th><th>Origin</th></tr>
{{range .Citations}}
<tr>
<td>{{.ClaimText}}</td>
<td><a href="{{.SourceURL}}">{{if .SourceTitle}}{{.SourceTitle}}{{else}}{{.SourceURL}}{{end}}</a></td>
<td>{{.AuthorityScore}}/10</td>
<td><span class="badge">{{.VerificationStatus}}</span></td>
<td>{{.SourceOrigin}}</td>
</tr>
{{end}}
</table>
{{end}}

{{if .SourcesTable}}
<h2>Sources</h2>
<table>
<tr><th>Source</th><th>Origin</th><th>Citations</th></tr>
{{range .SourcesTable}}
<tr><td><a href="{{.URL}}">{{.Title}}</a></td><td>{{.Origin}}</td><td>{{.Citations}}</td></tr>
{{end}}
</table>
{{end}}

</body>
</html>
`
