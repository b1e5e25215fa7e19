package widget_test

import (
	"fmt"

	"github.com/and161185/dora-molecule/internal/widget"
	"github.com/and161185/dora-molecule/model"
)

func ExampleFormatValue() {
	fmt.Println(widget.FormatValue(8.4, model.UnitDeploymentsPerDay))
	fmt.Println(widget.FormatValue(4.5, model.UnitHours))
	fmt.Println(widget.FormatValue(0.75, model.UnitHours))
	fmt.Println(widget.FormatValue(12, model.UnitPercent))
	// Output:
	// 8.4/day
	// 4.5h
	// 45min
	// 12%
}

func ExampleRender() {
	v := widget.Render(&model.MetricsPayload{
		ChangeFailureRate: &model.MetricSample{Value: 12, Unit: model.UnitPercent, Rating: model.RatingLow},
	})
	fmt.Println(v.Heading)
	for _, c := range v.Cards {
		fmt.Println(c.Title, c.Value, c.Rating)
	}
	// Output:
	// DORA Metrics: Unknown Service
	// Change Failure Rate 12% low
}
