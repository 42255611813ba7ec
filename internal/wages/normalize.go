package wages

import "fmt"

const (
	// MinHourlyCents is the lowest normalized hourly wage accepted for storage.
	MinHourlyCents int64 = 200
	// MaxHourlyCents is the highest normalized hourly wage accepted for storage.
	MaxHourlyCents int64 = 20000

	// DefaultHoursPerWeek is assumed when a submission omits weekly hours.
	DefaultHoursPerWeek = 40
	// DefaultShiftHours is assumed when a per-shift submission omits shift length.
	DefaultShiftHours = 8

	weeksPerYear   = 52
	monthsPerYear  = 12
	weeksPerPayRun = 2
)

// Normalize converts a submitted amount in the given pay period to a canonical
// hourly rate in cents. All arithmetic is integer with truncating division:
// normalized values round toward zero so stored wages stay conservative.
func Normalize(amountCents int64, period Period, hoursPerWeek int, shiftHours int) (int64, error) {
	if amountCents <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidAmount, amountCents)
	}
	if hoursPerWeek <= 0 {
		hoursPerWeek = DefaultHoursPerWeek
	}
	if shiftHours <= 0 {
		shiftHours = DefaultShiftHours
	}

	hours := int64(hoursPerWeek)
	var hourlyCents int64
	switch period {
	case PeriodHourly:
		hourlyCents = amountCents
	case PeriodWeekly:
		hourlyCents = amountCents / hours
	case PeriodBiweekly:
		hourlyCents = amountCents / (weeksPerPayRun * hours)
	case PeriodMonthly:
		hourlyCents = (amountCents * monthsPerYear) / (weeksPerYear * hours)
	case PeriodYearly:
		hourlyCents = amountCents / (weeksPerYear * hours)
	case PeriodPerShift:
		hourlyCents = amountCents / int64(shiftHours)
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
	}

	if hourlyCents < MinHourlyCents || hourlyCents > MaxHourlyCents {
		return 0, fmt.Errorf("%w: %d cents/hour outside [%d, %d]",
			ErrOutOfBounds, hourlyCents, MinHourlyCents, MaxHourlyCents)
	}
	return hourlyCents, nil
}
