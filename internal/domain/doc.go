// Package domain models USGS river-gauge telemetry and flood-risk scoring.
//
// # Data Sources
//
// Gauge readings come from the USGS Instantaneous Values (IV) service at
// https://waterservices.usgs.gov/nwis/iv/, queried by bounding box with a
// seven-day lookback. Each response carries one time series per
// (station x parameter) pair.
//
// USGS parameter codes consumed here:
//
//	00060  discharge (streamflow), cubic feet per second
//	00065  gage height (stage), feet above local datum
//	00010  water temperature, degrees Celsius
//	00045  precipitation, inches
//
// Site codes are 8-15 digit strings, e.g. "08158000" (Colorado River at Austin).
//
// Official flood-stage thresholds come from the NOAA National Water Prediction
// Service (NWPS) gauge API. A gauge's flood categories define four tiers:
// action, minor, moderate, major. The official set is used only when all four
// tiers are present and strictly increasing; otherwise a calculated fallback
// proportional to the current stage is substituted (see [ResolveFloodStages]).
//
// # Bounding Boxes
//
// Nearby-station queries convert a center point plus a radius in miles into a
// lat/lng bounding box using the 69 miles-per-degree approximation, with the
// longitude delta widened by 1/cos(lat). Bounds are rounded to 7 decimal
// places, the maximum precision the USGS bBox parameter accepts.
//
// # Risk Model
//
// The 0-100 risk score is a fixed weighted blend of three sub-scores:
//
//	0.55 * stage factor   (current stage relative to the major flood threshold)
//	0.30 * trend factor   (normalized flow-change rate over the lookback window)
//	0.15 * precip factor  (current precipitation intensity)
//
// Each sub-score is itself bounded to [0, 100]. The stage ratio is always
// computed against the major threshold; the fallback guarantees major >= 4,
// keeping the ratio finite. See [ScoreRisk].
package domain
