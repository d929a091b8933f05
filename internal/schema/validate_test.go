package schema

import (
	"errors"
	"strings"
	"testing"

	"github.com/gridsmith-data/grid.report/internal/table"
)

func makeFrame(t *testing.T, columns []string, rows [][]string) *table.Frame {
	t.Helper()
	f := table.NewFrame(columns)
	for _, row := range rows {
		if err := f.AppendRow(row); err != nil {
			t.Fatalf("append row: %v", err)
		}
	}
	return f
}

func TestValidateResolvesAllRoles(t *testing.T) {
	f := makeFrame(t,
		[]string{"timestamp", "consumption", "meter_id", "ground_truth"},
		[][]string{
			{"2024-01-01 00:00:00", "10.5", "m1", "0"},
			{"2024-01-01 01:00:00", "11.0", "m1", "1"},
		})

	resolved, err := Validate(f, Overrides{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Timestamp != "timestamp" || resolved.Value != "consumption" {
		t.Errorf("unexpected required roles: %+v", resolved)
	}
	if !resolved.HasMeterID() || !resolved.HasGroundTruth() {
		t.Errorf("optional roles should have resolved: %+v", resolved)
	}
}

func TestValidateRejectsEmptyTable(t *testing.T) {
	f := makeFrame(t, []string{"timestamp", "consumption"}, nil)

	_, err := Validate(f, Overrides{})
	if err == nil {
		t.Fatal("expected error for a table with no data rows")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if !strings.Contains(verr.Reason, "no data rows") {
		t.Errorf("reason should name the empty table: %s", verr.Reason)
	}
}

func TestValidateMissingValueNamesRole(t *testing.T) {
	f := makeFrame(t,
		[]string{"timestamp", "humidity"},
		[][]string{{"2024-01-01", "0.4"}})

	_, err := Validate(f, Overrides{})
	if err == nil {
		t.Fatal("expected error for missing value role")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if verr.Role != RoleValue {
		t.Errorf("error should name the value role, got %q", verr.Role)
	}
}

func TestValidateMissingTimestampNamesRole(t *testing.T) {
	f := makeFrame(t,
		[]string{"consumption"},
		[][]string{{"10"}})

	_, err := Validate(f, Overrides{})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Role != RoleTimestamp {
		t.Errorf("error should name the timestamp role, got %q", verr.Role)
	}
}

func TestValidateUnparseableTimestamp(t *testing.T) {
	f := makeFrame(t,
		[]string{"timestamp", "consumption"},
		[][]string{{"not-a-time", "10"}})

	_, err := Validate(f, Overrides{})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Role != RoleTimestamp {
		t.Errorf("expected timestamp role, got %q", verr.Role)
	}
}

func TestValidateNonNumericValue(t *testing.T) {
	f := makeFrame(t,
		[]string{"timestamp", "consumption"},
		[][]string{{"2024-01-01", "lots"}})

	_, err := Validate(f, Overrides{})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Role != RoleValue {
		t.Errorf("expected value role, got %q", verr.Role)
	}
	if !strings.Contains(verr.Reason, "not numeric") {
		t.Errorf("reason should mention the coercion failure: %s", verr.Reason)
	}
}

func TestValidateOverrideWins(t *testing.T) {
	f := makeFrame(t,
		[]string{"ts", "kwh_total", "consumption"},
		[][]string{{"2024-01-01", "5.0", "9.0"}})

	resolved, err := Validate(f, Overrides{Timestamp: "ts", Value: "kwh_total"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Value != "kwh_total" {
		t.Errorf("override should win over canonical search, got %q", resolved.Value)
	}
}

func TestValidateMissingOverrideIsError(t *testing.T) {
	f := makeFrame(t,
		[]string{"timestamp", "consumption"},
		[][]string{{"2024-01-01", "5"}})

	_, err := Validate(f, Overrides{Value: "no_such_column"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Role != RoleValue {
		t.Errorf("expected value role, got %q", verr.Role)
	}
}

func TestValidateOptionalRolesDegrade(t *testing.T) {
	f := makeFrame(t,
		[]string{"timestamp", "consumption"},
		[][]string{{"2024-01-01", "5"}})

	resolved, err := Validate(f, Overrides{})
	if err != nil {
		t.Fatalf("optional roles must not fail validation: %v", err)
	}
	if resolved.HasMeterID() || resolved.HasGroundTruth() {
		t.Errorf("optional roles should be unresolved: %+v", resolved)
	}
}

func TestValidateBadGroundTruthLabels(t *testing.T) {
	f := makeFrame(t,
		[]string{"timestamp", "consumption", "ground_truth"},
		[][]string{{"2024-01-01", "5", "maybe"}})

	_, err := Validate(f, Overrides{})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Role != RoleGroundTruth {
		t.Errorf("expected ground_truth role, got %q", verr.Role)
	}
}
