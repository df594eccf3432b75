package measure

import (
	"math"
	"testing"
)

func TestDerive(t *testing.T) {
	cases := []struct {
		name           string
		record         Record
		wantPower      float64
		wantEfficiency float64
	}{
		{
			name:           "nominal",
			record:         Record{Voltage: 10, Current: 2, Thrust: 4},
			wantPower:      20,
			wantEfficiency: 0.2,
		},
		{
			name:           "high power low thrust",
			record:         Record{Voltage: 24, Current: 10, Thrust: 1.2},
			wantPower:      240,
			wantEfficiency: 0.005,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := Derive(tc.record)
			if d.Power != tc.wantPower {
				t.Errorf("power: expected %g, got %g", tc.wantPower, d.Power)
			}
			if d.Efficiency != tc.wantEfficiency {
				t.Errorf("efficiency: expected %g, got %g", tc.wantEfficiency, d.Efficiency)
			}
		})
	}
}

func TestDerive_ZeroPower(t *testing.T) {
	// Zero power must yield a defined value, never a crash.
	d := Derive(Record{Voltage: 0, Current: 0, Thrust: 1})
	if d.Power != 0 {
		t.Errorf("expected zero power, got %g", d.Power)
	}
	if !math.IsInf(d.Efficiency, 1) {
		t.Errorf("expected +Inf efficiency for thrust/0, got %g", d.Efficiency)
	}

	d = Derive(Record{Voltage: 0, Current: 0, Thrust: 0})
	if !math.IsNaN(d.Efficiency) {
		t.Errorf("expected NaN efficiency for 0/0, got %g", d.Efficiency)
	}
}

func TestDeriveAll_PreservesOrder(t *testing.T) {
	result := Result{
		{Throttle: 10, Voltage: 10, Current: 1, Thrust: 1},
		{Throttle: 20, Voltage: 10, Current: 2, Thrust: 2},
		{Throttle: 30, Voltage: 10, Current: 3, Thrust: 3},
	}

	derived := DeriveAll(result)
	if len(derived) != len(result) {
		t.Fatalf("expected %d derived rows, got %d", len(result), len(derived))
	}

	for i, want := range []float64{10, 20, 30} {
		if derived[i].Power != want {
			t.Errorf("row %d: expected power %g, got %g", i, want, derived[i].Power)
		}
	}
}
