// Package schema defines the canonical column vocabulary shared by all
// pipelines and resolves the ambiguous column names found in input files
// against it. Resolution is pure and happens exactly once per run, at the
// pipeline boundary, never inside per-row processing.
package schema

// Canonical column names. These are the logical names pipelines emit;
// input files may use any of the aliases listed in Candidates.
const (
	ColTimestamp    = "timestamp"
	ColConsumption  = "consumption"
	ColDemand       = "demand"
	ColPower        = "power"
	ColLoad         = "load"
	ColActual       = "actual"
	ColForecast     = "forecast"
	ColAnomalyScore = "anomaly_score"
	ColIsAnomaly    = "is_anomaly"
	ColMeterID      = "meter_id"
	ColGroundTruth  = "ground_truth"
)

// Role identifies a logical column a pipeline needs resolved before it can
// run. Required roles abort the run when unresolved; optional roles degrade
// to a disabled feature.
type Role string

const (
	RoleTimestamp   Role = "timestamp"
	RoleValue       Role = "value"
	RoleMeterID     Role = "meter_id"
	RoleGroundTruth Role = "ground_truth"
)

// candidates maps each role to its accepted column names in priority order.
// The first name present in the input wins, regardless of column order in
// the file.
var candidates = map[Role][]string{
	RoleTimestamp:   {ColTimestamp, "time", "datetime", "date", "ts"},
	RoleValue:       {ColConsumption, ColDemand, ColPower, "load_mw", ColLoad, "value", "kwh"},
	RoleMeterID:     {ColMeterID, "meter", "entity_id", "sensor_id"},
	RoleGroundTruth: {ColGroundTruth, "label", "is_anomaly_true"},
}

// Candidates returns the accepted column names for a role in priority order.
// The returned slice is a copy; callers may reorder or extend it.
func Candidates(role Role) []string {
	src := candidates[role]
	out := make([]string, len(src))
	copy(out, src)
	return out
}

// Resolve returns the first candidate present in columns, preserving
// candidate priority order. The second return is false when no candidate
// matches.
func Resolve(columns []string, names []string) (string, bool) {
	present := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		present[c] = struct{}{}
	}
	for _, name := range names {
		if _, ok := present[name]; ok {
			return name, true
		}
	}
	return "", false
}
