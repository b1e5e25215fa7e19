package dora

import (
	"math"

	"github.com/and161185/dora-molecule/model"
)

// RateDeploymentFrequency rates deployments per day.
// Elite deploys at least daily, high about weekly, medium about monthly.
func RateDeploymentFrequency(perDay float64) model.Rating {
	switch {
	case perDay >= 1:
		return model.RatingElite
	case perDay >= 0.14:
		return model.RatingHigh
	case perDay >= 0.03:
		return model.RatingMedium
	default:
		return model.RatingLow
	}
}

// RateLeadTime rates the commit to production time in hours.
func RateLeadTime(hours float64) model.Rating {
	return rateDuration(hours)
}

// RateRecoveryTime rates the mean time to recovery in hours.
func RateRecoveryTime(hours float64) model.Rating {
	return rateDuration(hours)
}

func rateDuration(hours float64) model.Rating {
	switch {
	case hours < 1:
		return model.RatingElite
	case hours < 24:
		return model.RatingHigh
	case hours < 168: // one week
		return model.RatingMedium
	default:
		return model.RatingLow
	}
}

// RateChangeFailureRate rates the percentage of failed deployments.
func RateChangeFailureRate(percent float64) model.Rating {
	switch {
	case percent <= 15:
		return model.RatingElite
	case percent <= 30:
		return model.RatingHigh
	case percent <= 45:
		return model.RatingMedium
	default:
		return model.RatingLow
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func deploymentFrequency(s model.Snapshot) model.MetricSample {
	perDay := 0.0
	if s.PeriodDays > 0 {
		perDay = round2(float64(s.TotalDeployments) / float64(s.PeriodDays))
	}
	return model.MetricSample{Value: perDay, Unit: model.UnitDeploymentsPerDay, Rating: RateDeploymentFrequency(perDay)}
}

func leadTime(s model.Snapshot) model.MetricSample {
	v := round2(s.LeadTimeHours)
	return model.MetricSample{Value: v, Unit: model.UnitHours, Rating: RateLeadTime(v)}
}

func recoveryTime(s model.Snapshot) model.MetricSample {
	v := round2(s.RecoveryHours)
	return model.MetricSample{Value: v, Unit: model.UnitHours, Rating: RateRecoveryTime(v)}
}

func changeFailureRate(s model.Snapshot) model.MetricSample {
	pct := 0.0
	if s.TotalDeployments > 0 {
		pct = round2(float64(s.FailedDeployments) / float64(s.TotalDeployments) * 100)
	}
	return model.MetricSample{Value: pct, Unit: model.UnitPercent, Rating: RateChangeFailureRate(pct)}
}
