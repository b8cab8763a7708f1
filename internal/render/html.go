// Package render turns a stored document payload into standalone HTML
// and, via a headless browser, PDF.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"go.uber.org/zap"

	"github.com/docmakerhq/docmaker/pkg/docmaker"
)

// Renderer renders documents.
type Renderer struct {
	tmpl   *template.Template
	logger *zap.Logger
}

// NewRenderer parses the built-in layouts.
func NewRenderer(logger *zap.Logger) (*Renderer, error) {
	tmpl, err := template.New("document").Funcs(template.FuncMap{
		"fragment": func(s string) template.HTML {
			return template.HTML(SanitizeFragment(s))
		},
		"join": strings.Join,
	}).Parse(documentTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document template: %w", err)
	}
	return &Renderer{tmpl: tmpl, logger: logger.Named("render")}, nil
}

// view is the template's root context.
type view struct {
	Title       string
	Kind        string
	IsDeck      bool
	Brief       *docmaker.CampaignBrief
	Research    *docmaker.BrandProfile
	Influencers []docmaker.Influencer
	Deck        *docmaker.Deck
	Theme       theme
}

type theme struct {
	Primary     string
	Secondary   string
	Accent      string
	Background  string
	Text        string
	HeadingFont string
	BodyFont    string
}

// defaultTheme fills in any colors the foundation call did not choose.
var defaultTheme = theme{
	Primary:     "#1a2b4a",
	Secondary:   "#3e5c94",
	Accent:      "#e8a33d",
	Background:  "#ffffff",
	Text:        "#20242b",
	HeadingFont: "Georgia, serif",
	BodyFont:    "Helvetica, Arial, sans-serif",
}

// HTML renders the document as a standalone page.
func (r *Renderer) HTML(doc *docmaker.Document) ([]byte, error) {
	payload, err := doc.DecodePayload()
	if err != nil {
		return nil, err
	}

	v := view{
		Title:       doc.Title,
		Kind:        doc.Kind,
		IsDeck:      doc.Kind == docmaker.KindDeck,
		Brief:       payload.Brief,
		Research:    payload.Research,
		Influencers: payload.Influencers,
		Deck:        payload.Deck,
		Theme:       themeFromDeck(payload.Deck),
	}
	if v.Title == "" && v.Brief != nil {
		v.Title = v.Brief.BrandName + " proposal"
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, v); err != nil {
		return nil, fmt.Errorf("failed to render document: %w", err)
	}
	r.logger.Debug("document rendered",
		zap.String("kind", doc.Kind),
		zap.Int("bytes", buf.Len()))
	return buf.Bytes(), nil
}

func themeFromDeck(deck *docmaker.Deck) theme {
	t := defaultTheme
	if deck == nil || deck.Theme == nil {
		return t
	}
	src := deck.Theme
	if src.Primary != "" {
		t.Primary = src.Primary
	}
	if src.Secondary != "" {
		t.Secondary = src.Secondary
	}
	if src.Accent != "" {
		t.Accent = src.Accent
	}
	if src.Background != "" {
		t.Background = src.Background
	}
	if src.Text != "" {
		t.Text = src.Text
	}
	if src.HeadingFont != "" {
		t.HeadingFont = src.HeadingFont
	}
	if src.BodyFont != "" {
		t.BodyFont = src.BodyFont
	}
	return t
}

const documentTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
:root {
  --primary: {{.Theme.Primary}};
  --secondary: {{.Theme.Secondary}};
  --accent: {{.Theme.Accent}};
  --background: {{.Theme.Background}};
  --text: {{.Theme.Text}};
}
body {
  margin: 0;
  background: var(--background);
  color: var(--text);
  font-family: {{.Theme.BodyFont}};
  line-height: 1.5;
}
h1, h2, h3 { font-family: {{.Theme.HeadingFont}}; color: var(--primary); }
.page { max-width: 960px; margin: 0 auto; padding: 48px 32px; }
.section { margin-bottom: 40px; }
.label { color: var(--secondary); text-transform: uppercase; font-size: 12px; letter-spacing: 1px; }
.slide {
  page-break-after: always;
  min-height: 540px;
  padding: 56px 64px;
  border-bottom: 4px solid var(--accent);
  box-sizing: border-box;
}
.slide h2 { font-size: 32px; margin-top: 0; }
.notes { color: var(--secondary); font-size: 13px; border-top: 1px solid var(--secondary); margin-top: 24px; padding-top: 8px; }
table { border-collapse: collapse; width: 100%; }
th, td { text-align: left; padding: 8px 12px; border-bottom: 1px solid #d8dce3; }
th { color: var(--secondary); font-size: 13px; }
.placeholder { opacity: 0.55; }
</style>
</head>
<body>
{{if .IsDeck}}
{{template "deck" .}}
{{else}}
{{template "proposal" .}}
{{end}}
</body>
</html>

{{define "deck"}}
{{if .Deck}}
{{range .Deck.Slides}}
<section class="slide{{if eq .Status "placeholder"}} placeholder{{end}}">
  <div class="label">{{.Section}}</div>
  {{if .HTML}}{{fragment .HTML}}{{else}}<h2>{{.Title}}</h2>{{end}}
  {{if .Bullets}}<ul>{{range .Bullets}}<li>{{.}}</li>{{end}}</ul>{{end}}
  {{if .Notes}}<div class="notes">{{.Notes}}</div>{{end}}
</section>
{{end}}
{{else}}
<div class="page"><h1>{{.Title}}</h1><p>Slides have not been generated yet.</p></div>
{{end}}
{{end}}

{{define "proposal"}}
<div class="page">
  <h1>{{.Title}}</h1>
  {{with .Deck}}{{if .Summary}}<p><em>{{.Summary}}</em></p>{{end}}{{end}}

  {{with .Brief}}
  <div class="section">
    <div class="label">The brief</div>
    {{if .Summary}}<p>{{.Summary}}</p>{{end}}
    <table>
      {{if .BrandName}}<tr><th>Brand</th><td>{{.BrandName}}</td></tr>{{end}}
      {{if .Industry}}<tr><th>Industry</th><td>{{.Industry}}</td></tr>{{end}}
      {{if .Budget}}<tr><th>Budget</th><td>{{.Budget}}</td></tr>{{end}}
      {{if .Audience}}<tr><th>Audience</th><td>{{.Audience}}</td></tr>{{end}}
      {{if .Channels}}<tr><th>Channels</th><td>{{join .Channels ", "}}</td></tr>{{end}}
      {{if .Timeline}}<tr><th>Timeline</th><td>{{.Timeline}}</td></tr>{{end}}
    </table>
    {{if .Goals}}
    <h3>Goals</h3>
    <ul>{{range .Goals}}<li>{{.}}</li>{{end}}</ul>
    {{end}}
    {{if .Deliverables}}
    <h3>Deliverables</h3>
    <ul>{{range .Deliverables}}<li>{{.}}</li>{{end}}</ul>
    {{end}}
  </div>
  {{end}}

  {{with .Research}}
  <div class="section">
    <div class="label">Brand research</div>
    {{if .Summary}}<p>{{.Summary}}</p>{{end}}
    {{if .Positioning}}<p><strong>Positioning:</strong> {{.Positioning}}</p>{{end}}
    {{if .ToneWords}}<p><strong>Tone:</strong> {{join .ToneWords ", "}}</p>{{end}}
    {{if .SocialStats}}
    <table>
      <tr><th>Platform</th><th>Handle</th><th>Followers</th></tr>
      {{range .SocialStats}}<tr><td>{{.Platform}}</td><td>@{{.Handle}}</td><td>{{.Followers}}</td></tr>{{end}}
    </table>
    {{end}}
  </div>
  {{end}}

  {{if .Influencers}}
  <div class="section">
    <div class="label">Recommended creators</div>
    <table>
      <tr><th>Creator</th><th>Platform</th><th>Followers</th><th>Why</th></tr>
      {{range .Influencers}}
      <tr>
        <td>@{{.Handle}}</td>
        <td>{{.Platform}}</td>
        <td>{{.Followers}}</td>
        <td>{{join .Reasons "; "}}</td>
      </tr>
      {{end}}
    </table>
  </div>
  {{end}}

  {{with .Deck}}
  {{range .Slides}}
  <div class="section{{if eq .Status "placeholder"}} placeholder{{end}}">
    <div class="label">{{.Section}}</div>
    {{if .HTML}}{{fragment .HTML}}{{else}}<h2>{{.Title}}</h2>{{end}}
  </div>
  {{end}}
  {{end}}
</div>
{{end}}`
