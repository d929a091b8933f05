package schema

import (
	"fmt"

	"github.com/gridsmith-data/grid.report/internal/table"
)

// ValidationError reports an input table that fails a required-column or
// type check. It names the role so operators know which override to set.
type ValidationError struct {
	Role   Role
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schema validation failed for role %q: %s", e.Role, e.Reason)
}

// Overrides lets a run config pin a role to a specific column name instead
// of the canonical candidate search. An empty field means "search".
type Overrides struct {
	Timestamp   string
	Value       string
	MeterID     string
	GroundTruth string
}

// ResolvedSchema maps canonical roles to the actual column names found in
// the loaded table. Optional roles resolve to "" when absent. Immutable
// once produced.
type ResolvedSchema struct {
	Timestamp   string
	Value       string
	MeterID     string
	GroundTruth string
}

// HasMeterID reports whether the optional meter id role resolved.
func (s *ResolvedSchema) HasMeterID() bool { return s.MeterID != "" }

// HasGroundTruth reports whether the optional ground truth role resolved.
func (s *ResolvedSchema) HasGroundTruth() bool { return s.GroundTruth != "" }

// Validate resolves all roles against the frame and checks that the
// resolved columns are coercible to their declared types. It fails fast
// with a ValidationError naming the first role that is missing or invalid;
// no repair is attempted. Call once per run, before any analytical work.
func Validate(f *table.Frame, overrides Overrides) (*ResolvedSchema, error) {
	// A header-only table resolves every role but has nothing to analyse.
	if f.NumRows() == 0 {
		return nil, &ValidationError{Role: RoleValue, Reason: "input table has no data rows"}
	}

	resolved := &ResolvedSchema{}

	var err error
	resolved.Timestamp, err = resolveRequired(f, RoleTimestamp, overrides.Timestamp)
	if err != nil {
		return nil, err
	}
	resolved.Value, err = resolveRequired(f, RoleValue, overrides.Value)
	if err != nil {
		return nil, err
	}
	resolved.MeterID = resolveOptional(f, RoleMeterID, overrides.MeterID)
	resolved.GroundTruth = resolveOptional(f, RoleGroundTruth, overrides.GroundTruth)

	// Type checks on the resolved columns.
	if _, err := f.Times(resolved.Timestamp); err != nil {
		return nil, &ValidationError{Role: RoleTimestamp, Reason: err.Error()}
	}
	if _, err := f.Floats(resolved.Value); err != nil {
		return nil, &ValidationError{Role: RoleValue, Reason: err.Error()}
	}
	if resolved.GroundTruth != "" {
		if _, err := f.Bools(resolved.GroundTruth); err != nil {
			return nil, &ValidationError{Role: RoleGroundTruth, Reason: err.Error()}
		}
	}

	return resolved, nil
}

func resolveRequired(f *table.Frame, role Role, override string) (string, error) {
	if override != "" {
		if !f.HasColumn(override) {
			return "", &ValidationError{Role: role, Reason: fmt.Sprintf("configured column %q not present", override)}
		}
		return override, nil
	}
	name, ok := Resolve(f.Columns(), Candidates(role))
	if !ok {
		return "", &ValidationError{
			Role:   role,
			Reason: fmt.Sprintf("none of the candidate columns %v present", Candidates(role)),
		}
	}
	return name, nil
}

func resolveOptional(f *table.Frame, role Role, override string) string {
	if override != "" {
		if f.HasColumn(override) {
			return override
		}
		return ""
	}
	name, _ := Resolve(f.Columns(), Candidates(role))
	return name
}
