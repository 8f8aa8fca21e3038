package cache

import (
	"fmt"
	"math"
	"time"

	appErrors "github.com/xqvvu/yokg/internal/errors"
)

// Unit is the time unit of a TTL quantity.
type Unit string

const (
	UnitSecond Unit = "second"
	UnitMinute Unit = "minute"
	UnitHour   Unit = "hour"
	UnitDay    Unit = "day"
	UnitMonth  Unit = "month"
	UnitSeason Unit = "season"
	UnitYear   Unit = "year"
)

// MaxSafeSeconds is the largest TTL accepted, 2^53-1, so a TTL survives a
// round trip through any JSON number.
const MaxSafeSeconds int64 = 1<<53 - 1

// Common TTLs in seconds.
const (
	OneMinute                 int64 = 60
	FiveMinutes               int64 = 300
	TenMinutes                int64 = 600
	ThirtyMinutes             int64 = 1800
	OneHour                   int64 = 3600
	TwoHours                  int64 = 7200
	SixHours                  int64 = 21600
	TwelveHours               int64 = 43200
	OneDay                    int64 = 86400
	ThreeDays                 int64 = 259200
	SevenDays                 int64 = 604800
	FourteenDays              int64 = 1209600
	ThirtyDays                int64 = 2592000
	SixtyDays                 int64 = 5184000
	NinetyDays                int64 = 7776000
	OneHundredEightyDays      int64 = 15552000
	ThreeHundredSixtyFiveDays int64 = 31536000
)

// the shortest month still has 28 days, so more months than this always
// exceed MaxSafeSeconds
const maxCalendarMonths = MaxSafeSeconds/(28*86400) + 1

var fixedUnitSeconds = map[Unit]int64{
	UnitSecond: 1,
	UnitMinute: OneMinute,
	UnitHour:   OneHour,
	UnitDay:    OneDay,
}

var monthsPerUnit = map[Unit]int64{
	UnitMonth:  1,
	UnitSeason: 3,
	UnitYear:   12,
}

// TTLCalculator turns a quantity and unit into whole seconds. Calendar units
// are measured from the clock's current instant: one month from January 31
// lands on the last day of February.
type TTLCalculator struct {
	now func() time.Time
}

// NewTTLCalculator returns a calculator reading time from now, or time.Now when nil.
func NewTTLCalculator(now func() time.Time) *TTLCalculator {
	if now == nil {
		now = time.Now
	}
	return &TTLCalculator{now: now}
}

// Raw converts quantity units into seconds. It fails with an InvalidDuration
// error when the result is not positive or exceeds MaxSafeSeconds.
func (c *TTLCalculator) Raw(quantity int64, unit Unit) (int64, error) {
	if quantity <= 0 {
		return 0, invalidTTL(quantity, unit, "non-positive")
	}

	if mult, ok := fixedUnitSeconds[unit]; ok {
		if quantity > MaxSafeSeconds/mult {
			return 0, invalidTTL(quantity, unit, "too large")
		}
		return quantity * mult, nil
	}

	perUnit, ok := monthsPerUnit[unit]
	if !ok {
		return 0, invalidTTL(quantity, unit, "unknown unit")
	}
	if quantity > maxCalendarMonths/perUnit {
		return 0, invalidTTL(quantity, unit, "too large")
	}

	now := c.now()
	seconds := addMonths(now, quantity*perUnit).Unix() - now.Unix()
	if seconds <= 0 {
		return 0, invalidTTL(quantity, unit, "non-positive")
	}
	if seconds > MaxSafeSeconds {
		return 0, invalidTTL(quantity, unit, "too large")
	}
	return seconds, nil
}

func (c *TTLCalculator) Seconds(n int64) (int64, error) { return c.Raw(n, UnitSecond) }
func (c *TTLCalculator) Minutes(n int64) (int64, error) { return c.Raw(n, UnitMinute) }
func (c *TTLCalculator) Hours(n int64) (int64, error)   { return c.Raw(n, UnitHour) }
func (c *TTLCalculator) Days(n int64) (int64, error)    { return c.Raw(n, UnitDay) }
func (c *TTLCalculator) Months(n int64) (int64, error)  { return c.Raw(n, UnitMonth) }
func (c *TTLCalculator) Seasons(n int64) (int64, error) { return c.Raw(n, UnitSeason) }
func (c *TTLCalculator) Years(n int64) (int64, error)   { return c.Raw(n, UnitYear) }

// maxDurationSeconds is the longest TTL a time.Duration can hold, about 292 years.
const maxDurationSeconds = math.MaxInt64 / int64(time.Second)

// Duration is Raw as a time.Duration. It also fails when the seconds do not
// fit in a time.Duration.
func (c *TTLCalculator) Duration(quantity int64, unit Unit) (time.Duration, error) {
	seconds, err := c.Raw(quantity, unit)
	if err != nil {
		return 0, err
	}
	if seconds > maxDurationSeconds {
		return 0, invalidTTL(quantity, unit, "too large")
	}
	return time.Duration(seconds) * time.Second, nil
}

// ParseUnit accepts singular or plural unit names.
func ParseUnit(s string) (Unit, error) {
	switch s {
	case "second", "seconds", "s":
		return UnitSecond, nil
	case "minute", "minutes", "m":
		return UnitMinute, nil
	case "hour", "hours", "h":
		return UnitHour, nil
	case "day", "days", "d":
		return UnitDay, nil
	case "month", "months":
		return UnitMonth, nil
	case "season", "seasons":
		return UnitSeason, nil
	case "year", "years", "y":
		return UnitYear, nil
	}
	return "", fmt.Errorf("unknown ttl unit %q", s)
}

// addMonths moves t forward by n calendar months in t's location, clamping
// the day to the end of the target month. Time of day is kept.
func addMonths(t time.Time, n int64) time.Time {
	year, month, day := t.Date()
	total := int64(month-1) + n
	targetYear := int64(year) + total/12
	targetMonth := time.Month(total%12 + 1)

	if last := daysIn(int(targetYear), targetMonth, t.Location()); day > last {
		day = last
	}
	return time.Date(int(targetYear), targetMonth, day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

func invalidTTL(quantity int64, unit Unit, reason string) error {
	return appErrors.InvalidDuration(appErrors.CodeInvalidTTL, "cache ttl is invalid (too large or non-positive)").
		WithDetails(fmt.Sprintf("%d %s: %s", quantity, unit, reason)).
		WithOperation("ttl.Raw").
		Build()
}
