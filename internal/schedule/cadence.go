package schedule

import "fmt"

// Cadence is how often a task recurs. Values outside the four constants are
// rejected at the validation boundary; code past that point may assume a
// Cadence is one of these.
type Cadence string

const (
	Daily   Cadence = "daily"
	Weekly  Cadence = "weekly"
	Monthly Cadence = "monthly"
	Yearly  Cadence = "yearly"
)

// ParseCadence validates a raw cadence string.
func ParseCadence(raw string) (Cadence, error) {
	c := Cadence(raw)
	if !c.Valid() {
		return "", fmt.Errorf("unknown cadence %q (want daily, weekly, monthly or yearly)", raw)
	}
	return c, nil
}

// Valid reports whether c is one of the known cadences.
func (c Cadence) Valid() bool {
	switch c {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

func (c Cadence) String() string {
	return string(c)
}
