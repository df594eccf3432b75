package measure

// Record is a single row of collected test stand data: one throttle step of
// a sweep with the sensor readings taken at that step.
type Record struct {
	Throttle float64 `json:"throttle"` // Commanded throttle in percent
	RPM      float64 `json:"rpm"`      // Motor speed in revolutions per minute
	Voltage  float64 `json:"voltage"`  // Bus voltage in volts
	Current  float64 `json:"current"`  // Bus current in amperes
	Thrust   float64 `json:"thrust"`   // Measured thrust in kilograms
}

// Result is the ordered sequence of records collected by one measurement
// command. A session holds at most one Result; each successful measurement
// replaces it wholesale.
type Result []Record

// Derived holds the quantities computed from a Record at visualization time.
// They are never persisted; data.csv carries raw columns only.
type Derived struct {
	Power      float64 // Electrical power in watts (voltage * current)
	Efficiency float64 // Thrust per watt (kg/W)
}

// Derive computes the derived quantities for a single record.
// When power is zero the division follows IEEE semantics: efficiency is
// +Inf for a non-zero thrust and NaN for 0/0. Callers render these as-is.
func Derive(r Record) Derived {
	power := r.Voltage * r.Current
	return Derived{
		Power:      power,
		Efficiency: r.Thrust / power,
	}
}

// DeriveAll computes derived quantities for every record in the result,
// preserving order.
func DeriveAll(result Result) []Derived {
	out := make([]Derived, len(result))
	for i, r := range result {
		out[i] = Derive(r)
	}
	return out
}
