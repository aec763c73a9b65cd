package domain

import "math"

// Risk model weights. Stage dominates, trend second, precipitation last.
const (
	stageWeight  = 0.55
	trendWeight  = 0.30
	precipWeight = 0.15
)

// ScoreRisk blends the stage, trend, and precipitation factors into a single
// 0-100 flood-risk score. The stage ratio is computed against the major
// threshold (the one tier the calculated fallback guarantees >= 4). Pure;
// any non-finite intermediate collapses to 0, the "unknown, assume safe
// minimum" floor.
func ScoreRisk(currentStage float64, stages FloodStageSet, flowTrend, precipFactor float64) float64 {
	for _, v := range []float64{currentStage, stages.Major, flowTrend, precipFactor} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
	}

	stage := StageFactor(currentStage, stages)
	trend := TrendFactor(flowTrend)
	precip := PrecipFactor(precipFactor)

	score := stageWeight*stage + trendWeight*trend + precipWeight*precip
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0
	}
	return clampFloat(score, 0, 100)
}

// StageFactor maps the current-stage-to-major-threshold ratio onto a 0-100
// piecewise curve: a quadratic rise to 30 below 70% of the major threshold,
// then progressively steeper linear segments through 70 and 95, saturating
// at 100 past 125% of the threshold.
func StageFactor(currentStage float64, stages FloodStageSet) float64 {
	if stages.Major <= 0 {
		return 0
	}
	ratio := currentStage / stages.Major
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) || ratio < 0 {
		return 0
	}

	var f float64
	switch {
	case ratio < 0.7:
		f = math.Pow(ratio/0.7, 2) * 30
	case ratio < 0.9:
		f = 30 + ((ratio-0.7)/0.2)*40
	case ratio < 1.0:
		f = 70 + ((ratio-0.9)/0.1)*25
	default:
		f = 95 + math.Min(5, (ratio-1.0)*20)
	}
	return clampFloat(f, 0, 100)
}

// TrendFactor maps the normalized flow-change rate onto 0-100. Rapidly
// rising flow (> 0.5) scores 60+, modest rises 30+, stable flow around 10,
// and falling flow decays toward 0.
func TrendFactor(flowTrend float64) float64 {
	if math.IsNaN(flowTrend) || math.IsInf(flowTrend, 0) {
		return 0
	}

	var f float64
	switch {
	case flowTrend > 0.5:
		f = 60 + (flowTrend-0.5)*80
	case flowTrend > 0.2:
		f = 30 + (flowTrend-0.2)*100
	case flowTrend > -0.2:
		f = 10 + (flowTrend+0.2)*50
	default:
		f = math.Max(0, 10+flowTrend*25)
	}
	return clampFloat(f, 0, 100)
}

// PrecipFactor scales a 0-1 precipitation intensity onto 0-100.
func PrecipFactor(precipFactor float64) float64 {
	if math.IsNaN(precipFactor) || math.IsInf(precipFactor, 0) || precipFactor < 0 {
		return 0
	}
	return math.Min(100, precipFactor*100)
}

// PrecipIntensity normalizes a current precipitation reading in mm/h onto
// [0, 1], saturating at 10 mm/h.
func PrecipIntensity(precipMM float64) float64 {
	if math.IsNaN(precipMM) || precipMM <= 0 {
		return 0
	}
	return math.Min(1, precipMM/10)
}
