package widget

import (
	"html/template"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"github.com/and161185/dora-molecule/model"
)

func fullPayload() *model.MetricsPayload {
	return &model.MetricsPayload{
		Service:             "checkout",
		PeriodDays:          30,
		DeploymentFrequency: &model.MetricSample{Value: 8.4, Unit: model.UnitDeploymentsPerDay, Rating: model.RatingElite},
		LeadTimeForChanges:  &model.MetricSample{Value: 4.5, Unit: model.UnitHours, Rating: model.RatingHigh},
		MeanTimeToRecovery:  &model.MetricSample{Value: 0.75, Unit: model.UnitHours, Rating: model.RatingElite},
		ChangeFailureRate:   &model.MetricSample{Value: 4.37, Unit: model.UnitPercent, Rating: model.RatingElite},
	}
}

func parseFragment(t *testing.T, v View) *goquery.Document {
	t.Helper()
	frag, err := v.HTML()
	require.NoError(t, err)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(frag)))
	require.NoError(t, err)
	return doc
}

func TestRender_FixedOrder(t *testing.T) {
	doc := parseFragment(t, Render(fullPayload()))

	require.Equal(t, "DORA Metrics: checkout", doc.Find("h2.dora-heading").Text())

	var keys, values []string
	doc.Find(".dora-grid .dora-card").Each(func(_ int, s *goquery.Selection) {
		key, _ := s.Attr("data-metric")
		keys = append(keys, key)
		values = append(values, s.Find(".dora-card-value").Text())
	})
	require.Equal(t, []string{
		"deployment_frequency",
		"lead_time_for_changes",
		"mean_time_to_recovery",
		"change_failure_rate",
	}, keys)
	require.Equal(t, []string{"8.4/day", "4.5h", "45min", "4.37%"}, values)

	style, _ := doc.Find(".dora-grid").Attr("style")
	require.Contains(t, style, "repeat(2, 1fr)")
}

func TestRender_MissingMetricsAndFallbacks(t *testing.T) {
	p := &model.MetricsPayload{
		ChangeFailureRate: &model.MetricSample{Value: 42, Unit: model.UnitPercent, Rating: "unheard-of"},
	}
	v := Render(p)
	require.Equal(t, "DORA Metrics: "+FallbackService, v.Heading)
	require.Len(t, v.Cards, 1)
	require.Equal(t, model.RatingMedium, v.Cards[0].Rating)

	doc := parseFragment(t, v)
	card := doc.Find(".dora-card")
	require.Equal(t, 1, card.Length())
	rating, _ := card.Attr("data-rating")
	require.Equal(t, "medium", rating)
	style, _ := card.Attr("style")
	require.Contains(t, style, Palette(model.RatingMedium).Background)
	require.Equal(t, "42%", card.Find(".dora-card-value").Text())
}

func TestRender_EscapesServiceName(t *testing.T) {
	p := &model.MetricsPayload{Service: `<script>alert(1)</script>`}
	frag, err := Render(p).HTML()
	require.NoError(t, err)
	require.NotContains(t, string(frag), "<script>")

	doc := parseFragment(t, Render(p))
	require.Equal(t, "DORA Metrics: <script>alert(1)</script>", doc.Find("h2").Text())
	require.Equal(t, 0, doc.Find(".dora-card").Length())
}

func TestView_Page(t *testing.T) {
	page, err := Render(fullPayload()).Page()
	require.NoError(t, err)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(page)))
	require.NoError(t, err)
	require.Equal(t, "DORA Metrics: checkout", doc.Find("title").Text())
	require.Equal(t, 4, doc.Find("#dora-metrics-root .dora-card").Length())
}

func stringsReader(h template.HTML) *strings.Reader {
	return strings.NewReader(string(h))
}
