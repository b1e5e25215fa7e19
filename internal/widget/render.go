package widget

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/and161185/dora-molecule/model"
)

const (
	headingPrefix = "DORA Metrics: "
	// FallbackService is shown when a payload carries no service name.
	FallbackService = "Unknown Service"
)

// Card is one rendered metric.
type Card struct {
	Key    model.MetricKey
	Title  string
	Value  string
	Rating model.Rating
	Colors Colors
}

// Style returns the inline style of the card. Colors come from the fixed palette.
func (c Card) Style() template.CSS {
	return template.CSS(fmt.Sprintf("color:%s;background:%s;border-radius:8px;padding:12px", c.Colors.Color, c.Colors.Background))
}

// View is the complete visual state produced from one payload.
type View struct {
	Heading string
	Cards   []Card
}

// Render builds the view of payload. Cards follow model.MetricOrder and
// absent metrics produce no card.
func Render(payload *model.MetricsPayload) View {
	service := payload.Service
	if service == "" {
		service = FallbackService
	}

	v := View{Heading: headingPrefix + service, Cards: make([]Card, 0, len(model.MetricOrder))}
	for _, key := range model.MetricOrder {
		s, ok := payload.Sample(key)
		if !ok {
			continue
		}
		rating := s.Rating.Normalize()
		v.Cards = append(v.Cards, Card{
			Key:    key,
			Title:  key.Title(),
			Value:  FormatValue(s.Value, s.Unit),
			Rating: rating,
			Colors: Palette(rating),
		})
	}
	return v
}

var fragmentTmpl = template.Must(template.New("fragment").Parse(
	`<h2 class="dora-heading">{{.Heading}}</h2>` +
		`<div class="dora-grid" style="display:grid;grid-template-columns:repeat(2, 1fr);gap:12px">` +
		`{{range .Cards}}<div class="dora-card" data-metric="{{.Key}}" data-rating="{{.Rating}}" style="{{.Style}}">` +
		`<div class="dora-card-title">{{.Title}}</div>` +
		`<div class="dora-card-value">{{.Value}}</div>` +
		`<div class="dora-card-rating">{{.Rating}}</div>` +
		`</div>{{end}}</div>`))

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.View.Heading}}</title></head>
<body style="font-family:sans-serif;margin:16px">
<div id="dora-metrics-root">{{.Fragment}}</div>
</body>
</html>
`))

// HTML renders the view as an HTML fragment.
func (v View) HTML() (template.HTML, error) {
	var buf bytes.Buffer
	if err := fragmentTmpl.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("render fragment: %w", err)
	}
	return template.HTML(buf.String()), nil
}

// Page renders the view as a standalone HTML document.
func (v View) Page() ([]byte, error) {
	frag, err := v.HTML()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	err = pageTmpl.Execute(&buf, struct {
		View     View
		Fragment template.HTML
	}{v, frag})
	if err != nil {
		return nil, fmt.Errorf("render page: %w", err)
	}
	return buf.Bytes(), nil
}
