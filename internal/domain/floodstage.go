package domain

import (
	"context"
	"log/slog"
)

// Flood-stage set provenance.
const (
	StageSourceOfficial   = "official"
	StageSourceCalculated = "calculated"
)

// Flood status labels, ordered by increasing severity.
const (
	StatusNormal   = "normal"
	StatusAction   = "action"
	StatusMinor    = "minor"
	StatusModerate = "moderate"
	StatusMajor    = "major"
)

// FloodStageSet holds the four flood thresholds for a station, in feet.
// Invariant: action < minor < moderate < major.
type FloodStageSet struct {
	Action   float64 `json:"action"`
	Minor    float64 `json:"minor"`
	Moderate float64 `json:"moderate"`
	Major    float64 `json:"major"`
	Source   string  `json:"source"`
}

// Complete reports whether all four tiers are present and strictly
// increasing. Official sets failing this are discarded wholesale; a partial
// mix of official and calculated tiers is never produced.
func (f FloodStageSet) Complete() bool {
	return f.Action > 0 && f.Minor > 0 && f.Moderate > 0 && f.Major > 0 &&
		f.Action < f.Minor && f.Minor < f.Moderate && f.Moderate < f.Major
}

// StatusFor returns the highest tier at or below the given stage, or
// "normal" below the action threshold.
func (f FloodStageSet) StatusFor(stage float64) string {
	switch {
	case stage >= f.Major:
		return StatusMajor
	case stage >= f.Moderate:
		return StatusModerate
	case stage >= f.Minor:
		return StatusMinor
	case stage >= f.Action:
		return StatusAction
	default:
		return StatusNormal
	}
}

// StageAuthority looks up official flood thresholds for a USGS site.
type StageAuthority interface {
	// FloodCategories returns the authoritative tier set for the site.
	// Missing tiers are zero; the caller decides whether the set is usable.
	FloodCategories(ctx context.Context, siteID string) (FloodStageSet, error)
}

// ResolveFloodStages produces a usable flood-stage set for a station. The
// official set from the authority is accepted only when complete; any lookup
// failure or partial set falls through to the calculated fallback, so the
// resolver never fails. A nil authority skips the lookup entirely.
func ResolveFloodStages(ctx context.Context, siteID string, currentStage float64, authority StageAuthority, logger *slog.Logger) FloodStageSet {
	if authority == nil {
		return CalculatedFloodStages(currentStage)
	}

	official, err := authority.FloodCategories(ctx, siteID)
	if err != nil {
		logger.Warn("flood-stage authority lookup failed, using calculated fallback",
			"site_id", siteID,
			"error", err,
		)
		return CalculatedFloodStages(currentStage)
	}

	official.Source = StageSourceOfficial
	if !official.Complete() {
		return CalculatedFloodStages(currentStage)
	}
	return official
}

// CalculatedFloodStages derives proportional thresholds from the current
// stage when no official set is available. base = max(currentStage, 1); the
// per-tier floors keep the set strictly increasing even for very low stages.
func CalculatedFloodStages(currentStage float64) FloodStageSet {
	base := currentStage
	if base < 1 {
		base = 1
	}
	return FloodStageSet{
		Action:   maxFloat(1, base*0.8),
		Minor:    maxFloat(2, base*1.2),
		Moderate: maxFloat(3, base*1.5),
		Major:    maxFloat(4, base*2.0),
		Source:   StageSourceCalculated,
	}
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
