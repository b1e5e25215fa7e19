package widget

import "github.com/and161185/dora-molecule/model"

// Colors is the color scheme of a metric card.
type Colors struct {
	Color      string
	Background string
}

var palette = map[model.Rating]Colors{
	model.RatingElite:  {Color: "#166534", Background: "#dcfce7"},
	model.RatingHigh:   {Color: "#1e40af", Background: "#dbeafe"},
	model.RatingMedium: {Color: "#92400e", Background: "#fef3c7"},
	model.RatingLow:    {Color: "#991b1b", Background: "#fee2e2"},
}

// Palette returns the colors for rating; unrecognized ratings use medium.
func Palette(rating model.Rating) Colors {
	return palette[rating.Normalize()]
}
