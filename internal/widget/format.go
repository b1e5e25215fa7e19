// Package widget renders DORA metrics payloads the same way the browser
// widget does and models its lifecycle and message handshake.
package widget

import (
	"math"
	"strconv"
	"strings"

	"github.com/and161185/dora-molecule/model"
)

// FormatValue formats value for display according to unit.
func FormatValue(value float64, unit model.Unit) string {
	switch unit {
	case model.UnitDeploymentsPerDay:
		return formatNumber(value) + "/day"
	case model.UnitHours:
		if value < 1 {
			return formatNumber(jsRound(value*60)) + "min"
		}
		return formatNumber(value) + "h"
	case model.UnitPercent:
		return formatNumber(value) + "%"
	default:
		return formatNumber(value)
	}
}

// jsRound rounds half up, like Math.round.
func jsRound(v float64) float64 {
	return math.Floor(v + 0.5)
}

// formatNumber stringifies v the way JavaScript's Number#toString does.
func formatNumber(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	case v == 0:
		return "0" // also -0
	}

	abs := math.Abs(v)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(v, 'e', -1, 64)
		mant, exp, _ := strings.Cut(s, "e")
		sign := exp[:1]
		exp = strings.TrimLeft(exp[1:], "0")
		return mant + "e" + sign + exp
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
